package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
)

// defaultQueueSize bounds entries waiting to be written.
const defaultQueueSize = 256

// writeTimeout bounds a single insert.
const writeTimeout = 5 * time.Second

// Logger defines the logging interface used by the recorder.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder is a climate.Observer that queues each dispatched command and
// writes it to the repository on a background goroutine. When the queue
// is full new entries are dropped and logged.
type Recorder struct {
	repo   Repository
	queue  chan Entry
	logger Logger

	mu     sync.Mutex
	closed bool

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

// NewRecorder creates a recorder. queueSize <= 0 uses the default.
func NewRecorder(repo Repository, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Recorder{
		repo:   repo,
		queue:  make(chan Entry, queueSize),
		logger: noopLogger{},
		done:   make(chan struct{}),
	}
}

// SetLogger sets the logger. Call before Start.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// Start launches the writer goroutine.
func (r *Recorder) Start() {
	r.startOnce.Do(func() {
		go r.run()
	})
}

// Close stops accepting entries, drains the queue and waits for the
// writer to finish. Start must have been called.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.queue)
		r.mu.Unlock()
		<-r.done
	})
}

func (r *Recorder) run() {
	defer close(r.done)
	for e := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := r.repo.Create(ctx, &e); err != nil {
			r.logger.Error("failed to record command", "device_id", e.DeviceID, "error", err)
		}
		cancel()
	}
}

// RequestHandled implements climate.Observer. Requests are not audited.
func (r *Recorder) RequestHandled(climate.Request, climate.Reply, time.Duration) {}

// CommandDispatched implements climate.Observer.
func (r *Recorder) CommandDispatched(result climate.DeviceResult) {
	e := entryFrom(result)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.logger.Warn("command audit closed, entry dropped", "device_id", e.DeviceID)
		return
	}

	select {
	case r.queue <- e:
	default:
		r.logger.Warn("command audit queue full, entry dropped", "device_id", e.DeviceID)
	}
}

func entryFrom(result climate.DeviceResult) Entry {
	e := Entry{
		RequestID:  result.RequestID,
		DeviceID:   result.DeviceID,
		Status:     string(result.Status),
		Error:      result.Error,
		DurationMS: result.Duration.Milliseconds(),
	}
	if cmd := result.Command; cmd != nil {
		e.Action = string(cmd.Action)
		e.IssuedAt = cmd.IssuedAt
		if v, err := json.Marshal(cmd.Value); err == nil {
			e.Value = v
		}
	}
	return e
}
