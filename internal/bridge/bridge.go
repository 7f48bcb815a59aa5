package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
	"github.com/nerrad567/gray-logic-climate/internal/device"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/mqtt"
)

// requestTimeout bounds how long one intent may take end to end.
const requestTimeout = 30 * time.Second

// IntentHandler turns a request into a spoken reply. *climate.Engine
// satisfies it.
type IntentHandler interface {
	Handle(ctx context.Context, req climate.Request) (climate.Reply, error)
}

// Refresher reloads the entity registry. *registry.Registry satisfies it.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options holds configuration for creating a bridge.
type Options struct {
	Bus     Bus
	Handler IntentHandler

	// Registry is refreshed when core announces registry changes. Optional.
	Registry Refresher

	// Dispatcher is started with the bridge so acks are routed. Optional.
	Dispatcher *MQTTDispatcher

	Topics mqtt.Topics

	// IntentTopic and RegistryTopic override the built-in topics.
	IntentTopic   string
	RegistryTopic string

	// QoS for subscriptions. Replies use the bus's configured QoS.
	QoS byte

	Logger Logger
}

// Bridge connects the climate engine to the MQTT bus: it consumes intents,
// publishes replies, and keeps the registry current.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	opts   Options
	logger Logger

	wg        sync.WaitGroup
	stopMu    sync.Mutex
	stopped   bool
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc
}

// New creates a bridge. Call Start to subscribe.
func New(opts Options) (*Bridge, error) {
	if opts.Bus == nil {
		return nil, fmt.Errorf("bus is required")
	}
	if opts.Handler == nil {
		return nil, fmt.Errorf("intent handler is required")
	}
	if opts.IntentTopic == "" {
		opts.IntentTopic = opts.Topics.Intents()
	}
	if opts.RegistryTopic == "" {
		opts.RegistryTopic = opts.Topics.RegistryChanged()
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		opts:      opts,
		logger:    logger,
		ctx:       ctx,
		ctxCancel: cancel,
	}, nil
}

// Start subscribes to intents and, when a registry is configured, to
// registry change events.
func (b *Bridge) Start() error {
	if b.opts.Dispatcher != nil {
		if err := b.opts.Dispatcher.Start(); err != nil {
			return err
		}
	}

	if err := b.opts.Bus.Subscribe(b.opts.IntentTopic, b.opts.QoS, b.handleIntent); err != nil {
		return fmt.Errorf("subscribe to intents: %w", err)
	}
	b.logger.Info("subscribed to intents", "topic", b.opts.IntentTopic)

	if b.opts.Registry != nil {
		if err := b.opts.Bus.Subscribe(b.opts.RegistryTopic, b.opts.QoS, b.handleRegistryChanged); err != nil {
			return fmt.Errorf("subscribe to registry events: %w", err)
		}
		b.logger.Info("subscribed to registry events", "topic", b.opts.RegistryTopic)
	}

	return nil
}

// Stop unsubscribes from the bus, cancels in-flight requests and waits
// for them to finish. Unsubscribe failures are logged; a disconnected bus
// is not unsubscribed at all.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.stopMu.Lock()
		b.stopped = true
		b.stopMu.Unlock()

		if b.opts.Bus.IsConnected() {
			b.unsubscribe()
		}

		b.ctxCancel()
		b.wg.Wait()
		b.logger.Info("bridge stopped")
	})
}

func (b *Bridge) unsubscribe() {
	topics := []string{b.opts.IntentTopic}
	if b.opts.Registry != nil {
		topics = append(topics, b.opts.RegistryTopic)
	}
	for _, topic := range topics {
		if err := b.opts.Bus.Unsubscribe(topic); err != nil {
			b.logger.Warn("failed to unsubscribe", "topic", topic, "error", err)
		}
	}
	if b.opts.Dispatcher != nil {
		if err := b.opts.Dispatcher.Stop(); err != nil {
			b.logger.Warn("failed to stop dispatcher", "error", err)
		}
	}
}

// IntentTopic returns the topic intents are consumed from.
func (b *Bridge) IntentTopic() string {
	return b.opts.IntentTopic
}

// handleIntent decodes an intent and processes it on its own goroutine so
// a slow group request never holds up the next one.
func (b *Bridge) handleIntent(_ string, payload []byte) error {
	var req climate.Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedIntent, err)
	}

	b.stopMu.Lock()
	defer b.stopMu.Unlock()
	if b.stopped {
		return nil
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.process(req)
	}()
	return nil
}

func (b *Bridge) process(req climate.Request) {
	ctx, cancel := context.WithTimeout(b.ctx, requestTimeout)
	defer cancel()

	// The engine logs its own failures and always returns a speakable reply.
	reply, err := b.opts.Handler.Handle(ctx, req)
	if err != nil {
		b.logger.Debug("intent returned error", "request_id", reply.RequestID, "error", err)
	}

	if err := b.Reply(req.ReplyTopic, reply); err != nil {
		b.logger.Error("failed to publish reply", "request_id", reply.RequestID, "error", err)
	}
}

// Reply publishes reply to topic, or to the default response topic when
// topic is empty or unusable.
func (b *Bridge) Reply(topic string, reply climate.Reply) error {
	if topic != "" {
		valid, err := device.ValidateTopic(topic)
		if err != nil {
			b.logger.Warn("ignoring invalid reply topic", "request_id", reply.RequestID, "topic", topic, "error", err)
			topic = ""
		} else {
			topic = valid
		}
	}
	if topic == "" {
		topic = b.opts.Topics.Response(reply.RequestID)
	}

	if err := b.opts.Bus.PublishJSON(topic, ResponseMessage{RequestID: reply.RequestID, Text: reply.Text}); err != nil {
		return fmt.Errorf("%w: reply to %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

// handleRegistryChanged reloads the registry. A failed reload keeps the
// previous snapshot and is reported to the MQTT client's logger.
func (b *Bridge) handleRegistryChanged(_ string, _ []byte) error {
	if err := b.opts.Registry.Refresh(b.ctx); err != nil {
		return fmt.Errorf("refreshing registry: %w", err)
	}
	return nil
}
