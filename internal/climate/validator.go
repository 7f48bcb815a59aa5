package climate

import (
	"math"

	"github.com/nerrad567/gray-logic-climate/internal/device"
)

// gridEpsilon keeps values that sit on a half step in float terms
// (20.15 / 0.1 = 41.4999...) rounding up as written.
const gridEpsilon = 1e-9

// Validate checks a requested action against the candidate's declared
// capabilities and normalises the value.
//
//   - An undeclared capability is UnsupportedAction.
//   - set_temperature needs a number inside [min, max]. Values outside are
//     OutOfCapability and never clamped. Values inside are snapped to the
//     step grid anchored at min, half steps rounding up.
//   - set_mode needs one of the declared modes, compared ignoring case.
//     Anything else is UnsupportedAction naming the allowed set.
func Validate(c Candidate, action CommandAction, p Parameter) (ValidatedAction, *Failure) {
	d := c.Device
	caps := d.Capabilities

	fail := func(reason Reason) *Failure {
		return &Failure{
			Reason:    reason,
			Device:    &d,
			RoomName:  c.RoomName,
			Action:    action,
			Requested: p.String(),
		}
	}

	if !caps.Supports(action.capability()) {
		return ValidatedAction{}, fail(ReasonUnsupportedAction)
	}

	va := ValidatedAction{Device: d, RoomName: c.RoomName, Action: action}

	switch action {
	case CommandSetTemperature:
		v, ok := p.Number()
		if !ok {
			return ValidatedAction{}, fail(ReasonInvalidParameter)
		}
		rng := caps.Temperature
		if rng == nil {
			return ValidatedAction{}, fail(ReasonUnsupportedAction)
		}
		if v < rng.Min {
			f := fail(ReasonOutOfCapability)
			f.Bound, f.Limit = BoundBelow, rng.Min
			return ValidatedAction{}, f
		}
		if v > rng.Max {
			f := fail(ReasonOutOfCapability)
			f.Bound, f.Limit = BoundAbove, rng.Max
			return ValidatedAction{}, f
		}
		va.Value = SnapToStep(v, *rng)

	case CommandSetMode:
		if p.IsZero() {
			f := fail(ReasonInvalidParameter)
			f.Modes = caps.Modes
			return ValidatedAction{}, f
		}
		mode, ok := caps.MatchMode(p.String())
		if !ok {
			f := fail(ReasonUnsupportedAction)
			f.Modes = caps.Modes
			return ValidatedAction{}, f
		}
		va.Value = mode

	case CommandTurnOn:
		va.Value = true

	case CommandTurnOff:
		va.Value = false
	}

	return va, nil
}

// SnapToStep rounds v to the nearest point of the range's step grid,
// rounding half steps up. A result past Max steps back once so the value
// always stays inside the range. v must already lie within [Min, Max].
func SnapToStep(v float64, r device.TemperatureRange) float64 {
	steps := math.Floor((v-r.Min)/r.Step + 0.5 + gridEpsilon)
	out := r.Min + steps*r.Step
	if out > r.Max+gridEpsilon {
		out -= r.Step
	}
	return math.Round(out*1e6) / 1e6
}
