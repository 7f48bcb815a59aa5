package climate

import "time"

// CommandBuilder turns validated actions into commands.
// It performs no I/O; the clock is the only input besides the action.
type CommandBuilder struct {
	now func() time.Time
}

// NewCommandBuilder creates a builder. A nil clock uses time.Now.
func NewCommandBuilder(now func() time.Time) *CommandBuilder {
	if now == nil {
		now = time.Now
	}
	return &CommandBuilder{now: now}
}

// Build creates the command for va.
func (b *CommandBuilder) Build(va ValidatedAction) Command {
	return Command{
		DeviceID: va.Device.ID,
		Action:   va.Action,
		Value:    va.Value,
		IssuedAt: b.now().UTC(),
	}
}
