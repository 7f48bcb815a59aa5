package climate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Engine defaults.
const (
	DefaultMaxConcurrent   = 4
	DefaultDispatchTimeout = 5 * time.Second
)

// Config tunes the engine.
type Config struct {
	// MaxConcurrent bounds outstanding commands for one group request.
	MaxConcurrent int

	// DispatchTimeout is the deadline for each device to accept a command.
	DispatchTimeout time.Duration

	// RatePerSecond caps commands sent across all requests. 0 disables.
	RatePerSecond float64

	// AmbiguityMargin is the fuzzy score gap under which candidates tie.
	// Zero uses DefaultAmbiguityMargin.
	AmbiguityMargin float64

	// Clock stamps commands. Nil uses time.Now.
	Clock func() time.Time
}

// Engine handles climate intents end to end: resolve the target, pick one
// device (or a group), validate, build commands, dispatch, and render one
// reply.
//
// Requests are independent and Handle may be called concurrently.
type Engine struct {
	resolver   *Resolver
	renderer   *Renderer
	builder    *CommandBuilder
	dispatcher Dispatcher
	limiter    *rate.Limiter
	cfg        Config

	observers []Observer
	logger    Logger
}

// NewEngine wires an engine. Zero Config fields take the package defaults.
func NewEngine(resolver *Resolver, renderer *Renderer, dispatcher Dispatcher, cfg Config) *Engine {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = DefaultDispatchTimeout
	}
	if cfg.AmbiguityMargin <= 0 {
		cfg.AmbiguityMargin = DefaultAmbiguityMargin
	}

	e := &Engine{
		resolver:   resolver,
		renderer:   renderer,
		builder:    NewCommandBuilder(cfg.Clock),
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     noopLogger{},
	}
	if cfg.RatePerSecond > 0 {
		burst := max(1, int(cfg.RatePerSecond))
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return e
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// AddObserver registers an observer. Call before the first Handle.
func (e *Engine) AddObserver(o Observer) {
	e.observers = append(e.observers, o)
}

// trail records the stages a request passed through.
type trail []Stage

func (t *trail) enter(s Stage) { *t = append(*t, s) }

// Handle processes one request and returns the reply to speak.
//
// Every expected failure (not found, ambiguous, unsupported, out of range,
// dispatch timeout or failure) is rendered into the reply and the error is
// nil. The error is non-nil only when the registry is unavailable; it wraps
// ErrRegistryUnavailable and the reply carries the generic failure text.
func (e *Engine) Handle(ctx context.Context, req Request) (Reply, error) {
	start := time.Now()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	reply, err := e.handle(ctx, req)
	reply.RequestID = req.ID

	elapsed := time.Since(start)
	for _, o := range e.observers {
		o.RequestHandled(req, reply, elapsed)
	}

	if err != nil {
		e.logger.Error("intent failed", "request_id", req.ID, "verb", req.Verb, "error", err)
	} else {
		e.logger.Info("intent handled",
			"request_id", req.ID,
			"verb", req.Verb,
			"outcome", reply.Outcome,
			"duration_ms", elapsed.Milliseconds(),
		)
	}
	return reply, err
}

func (e *Engine) handle(ctx context.Context, req Request) (Reply, error) {
	var t trail
	t.enter(StageReceived)

	respond := func(outcome, text string, results []DeviceResult) Reply {
		t.enter(StageResponded)
		return Reply{Text: text, Outcome: outcome, Stages: t, Results: results}
	}
	fail := func(f *Failure, results []DeviceResult) Reply {
		text, err := e.renderer.RenderFailure(f)
		if err != nil {
			e.logger.Error("rendering reply", "reason", f.Reason, "error", err)
			return respond(tmplGenericFailure, e.renderer.RenderGenericFailure(), results)
		}
		return respond(failureTemplate(f), text, results)
	}
	render := func(outcome string, text string, err error, results []DeviceResult) Reply {
		if err != nil {
			e.logger.Error("rendering reply", "outcome", outcome, "error", err)
			return respond(tmplGenericFailure, e.renderer.RenderGenericFailure(), results)
		}
		return respond(outcome, text, results)
	}

	verb := normaliseVerb(req.Verb)
	if verb == VerbHelp {
		text, err := e.renderer.RenderHelp()
		return render(tmplHelp, text, err, nil), nil
	}
	action, ok := actionFor(verb, req.Parameter)
	if !ok {
		e.logger.Debug("unknown verb", "request_id", req.ID, "verb", req.Verb)
		text, err := e.renderer.RenderUnknownIntent()
		return render(tmplUnknownIntent, text, err, nil), nil
	}

	t.enter(StageResolving)
	res, err := e.resolver.Resolve(ctx, req.TargetPhrase, req.RoomHint)
	if err != nil {
		return respond(tmplGenericFailure, e.renderer.RenderGenericFailure(), nil), err
	}
	e.logger.Debug("target resolved",
		"request_id", req.ID,
		"phrase", res.Phrase,
		"candidates", len(res.Candidates),
		"group", res.Group,
		"room_hint_unmatched", res.RoomHintUnmatched,
	)

	if res.Group {
		if len(res.Candidates) == 0 {
			return fail(notFound(res), nil), nil
		}
		return e.handleGroup(ctx, req, res, action, &t, render), nil
	}

	target, f := Disambiguate(res, req.OriginRoom, e.cfg.AmbiguityMargin)
	if f != nil {
		return fail(f, nil), nil
	}

	t.enter(StageValidating)
	va, f := Validate(target, action, req.Parameter)
	if f != nil {
		return fail(f, []DeviceResult{rejected(req.ID, target, f)}), nil
	}

	cmd := e.builder.Build(va)
	t.enter(StageDispatching)
	result := e.dispatch(ctx, req.ID, va, cmd)
	results := []DeviceResult{result}
	if f := dispatchFailure(va, result); f != nil {
		return fail(f, results), nil
	}

	text, err := e.renderer.RenderSuccess(va)
	return render(successTemplate(va.Action), text, err, results), nil
}

// handleGroup validates every candidate, dispatches the valid commands with
// bounded concurrency, and renders a single aggregate reply. There is no
// rollback: devices that succeeded stay changed when others fail.
func (e *Engine) handleGroup(ctx context.Context, req Request, res Resolution, action CommandAction,
	t *trail, render func(string, string, error, []DeviceResult) Reply) Reply {
	t.enter(StageValidating)

	type job struct {
		idx int
		va  ValidatedAction
		cmd Command
	}

	results := make([]DeviceResult, len(res.Candidates))
	failures := make([]*Failure, len(res.Candidates))
	var jobs []job
	for i, c := range res.Candidates {
		va, f := Validate(c, action, req.Parameter)
		if f != nil {
			failures[i] = f
			results[i] = rejected(req.ID, c, f)
			continue
		}
		jobs = append(jobs, job{idx: i, va: va, cmd: e.builder.Build(va)})
	}

	if len(jobs) > 0 {
		t.enter(StageDispatching)

		var g errgroup.Group
		g.SetLimit(e.cfg.MaxConcurrent)
		for _, j := range jobs {
			g.Go(func() error {
				results[j.idx] = e.dispatch(ctx, req.ID, j.va, j.cmd)
				return nil
			})
		}
		_ = g.Wait() // workers never return errors; results carry them

		for _, j := range jobs {
			failures[j.idx] = dispatchFailure(j.va, results[j.idx])
		}
	}

	summary := GroupSummary{
		Action: action,
		Room:   res.roomName(),
		Total:  len(res.Candidates),
	}
	for i, f := range failures {
		if f != nil {
			summary.Failures = append(summary.Failures, f)
			continue
		}
		if results[i].Status == StatusOK {
			summary.Succeeded++
		}
	}
	for i, j := range jobs {
		if i == 0 {
			summary.Value = j.va.Value
		} else if j.va.Value != summary.Value {
			// Devices snapped to different grids; no single value to quote.
			summary.Value = nil
			break
		}
	}

	e.logger.Debug("group dispatched",
		"request_id", req.ID,
		"devices", summary.Total,
		"succeeded", summary.Succeeded,
	)

	text, err := e.renderer.RenderGroup(summary)
	return render(tmplGroup, text, err, results)
}

// dispatch sends one command with the per-dispatch deadline. A dispatcher
// that ignores its context still times out; its late result is discarded.
func (e *Engine) dispatch(ctx context.Context, requestID string, va ValidatedAction, cmd Command) DeviceResult {
	result := DeviceResult{
		RequestID:  requestID,
		DeviceID:   va.Device.ID,
		DeviceName: va.Device.Name,
		RoomName:   va.RoomName,
		Command:    &cmd,
	}
	start := time.Now()

	err := e.send(ctx, va, cmd)
	result.Duration = time.Since(start)

	switch {
	case err == nil:
		result.Status = StatusOK
	case errors.Is(err, ErrDispatchTimeout):
		result.Status = StatusTimeout
		result.Error = err.Error()
	default:
		result.Status = StatusFailed
		result.Error = err.Error()
	}

	if result.Status != StatusOK {
		e.logger.Warn("dispatch unsuccessful",
			"request_id", requestID,
			"device_id", va.Device.ID,
			"status", result.Status,
			"error", err,
		)
	}
	for _, o := range e.observers {
		o.CommandDispatched(result)
	}
	return result
}

// send applies rate limiting and the deadline. Deadline expiry is reported
// as ErrDispatchTimeout; cancellation of ctx itself is not.
func (e *Engine) send(ctx context.Context, va ValidatedAction, cmd Command) error {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	dctx, cancel := context.WithTimeout(ctx, e.cfg.DispatchTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- e.dispatcher.Dispatch(dctx, cmd, va.Device)
	}()

	var err error
	select {
	case err = <-done:
	case <-dctx.Done():
		err = dctx.Err()
	}

	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrDispatchTimeout, e.cfg.DispatchTimeout)
	}
	return err
}

// dispatchFailure converts an unsuccessful result into a Failure.
func dispatchFailure(va ValidatedAction, r DeviceResult) *Failure {
	var reason Reason
	switch r.Status {
	case StatusOK:
		return nil
	case StatusTimeout:
		reason = ReasonDispatchTimeout
	default:
		reason = ReasonDispatchFailed
	}
	d := va.Device
	return &Failure{
		Reason:   reason,
		Device:   &d,
		RoomName: va.RoomName,
		Action:   va.Action,
		Err:      errors.New(r.Error),
	}
}

func rejected(requestID string, c Candidate, f *Failure) DeviceResult {
	return DeviceResult{
		RequestID:  requestID,
		DeviceID:   c.Device.ID,
		DeviceName: c.Device.Name,
		RoomName:   c.RoomName,
		Status:     StatusRejected,
		Error:      string(f.Reason),
	}
}

// actionFor maps a verb to the command it requests. "set" becomes a
// temperature change for numbers (or no parameter) and a mode change for
// words.
func actionFor(verb Verb, p Parameter) (CommandAction, bool) {
	switch verb {
	case VerbSet:
		if _, ok := p.Number(); ok || p.IsZero() {
			return CommandSetTemperature, true
		}
		return CommandSetMode, true
	case VerbSetTemperature:
		return CommandSetTemperature, true
	case VerbSetMode:
		return CommandSetMode, true
	case VerbTurnOn:
		return CommandTurnOn, true
	case VerbTurnOff:
		return CommandTurnOff, true
	default:
		return "", false
	}
}
