package climate

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/device"
)

// Dispatcher sends a command to a device over the host's control channel.
//
// Dispatch should return when the device has accepted the command, the
// context is done, or delivery failed. The context carries the
// per-dispatch deadline. Return ErrDispatchTimeout or a context error on
// timeout and ErrDispatchRejected when the device refused the command.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd Command, target device.Device) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, cmd Command, target device.Device) error

// Dispatch calls f.
func (f DispatcherFunc) Dispatch(ctx context.Context, cmd Command, target device.Device) error {
	return f(ctx, cmd, target)
}

// Observer is notified of engine activity. Implementations must be safe
// for concurrent use and must not block.
type Observer interface {
	// RequestHandled is called once per request with the final reply.
	RequestHandled(req Request, reply Reply, elapsed time.Duration)

	// CommandDispatched is called once per command sent, including
	// commands that timed out or failed.
	CommandDispatched(result DeviceResult)
}

// Logger defines the logging interface used by the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
