package climate

import (
	"slices"
	"testing"

	"github.com/nerrad567/gray-logic-climate/internal/device"
)

func TestValidate_SetTemperature(t *testing.T) {
	c := Candidate{Device: dev("t1", "living", "Living Room Thermostat", device.KindThermostat, thermostatCaps), RoomName: "Living Room"}

	tests := []struct {
		name       string
		param      Parameter
		want       float64
		wantReason Reason
		wantBound  Bound
		wantLimit  float64
	}{
		{name: "on grid unchanged", param: NumberParam(20.0), want: 20.0},
		{name: "rounds to nearest step", param: NumberParam(21.3), want: 21.5},
		{name: "rounds down", param: NumberParam(21.2), want: 21.0},
		{name: "half step rounds up", param: NumberParam(21.25), want: 21.5},
		{name: "minimum", param: NumberParam(16), want: 16},
		{name: "maximum", param: NumberParam(28), want: 28},
		{name: "numeric text", param: TextParam("22.5"), want: 22.5},
		{name: "text with unit", param: TextParam("21 degrees"), want: 21},
		{name: "text with symbol", param: TextParam("19°C"), want: 19},
		{name: "comma decimal", param: TextParam("19,5"), want: 19.5},
		{name: "above range", param: NumberParam(30), wantReason: ReasonOutOfCapability, wantBound: BoundAbove, wantLimit: 28},
		{name: "below range", param: NumberParam(10), wantReason: ReasonOutOfCapability, wantBound: BoundBelow, wantLimit: 16},
		{name: "just above range", param: NumberParam(28.1), wantReason: ReasonOutOfCapability, wantBound: BoundAbove, wantLimit: 28},
		{name: "not a number", param: TextParam("warm"), wantReason: ReasonInvalidParameter},
		{name: "missing", param: Parameter{}, wantReason: ReasonInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			va, f := Validate(c, CommandSetTemperature, tt.param)
			if tt.wantReason != "" {
				if f == nil {
					t.Fatalf("Validate() = %v, want %s", va.Value, tt.wantReason)
				}
				if f.Reason != tt.wantReason {
					t.Errorf("Reason = %s, want %s", f.Reason, tt.wantReason)
				}
				if f.Bound != tt.wantBound || f.Limit != tt.wantLimit {
					t.Errorf("Bound/Limit = %s %g, want %s %g", f.Bound, f.Limit, tt.wantBound, tt.wantLimit)
				}
				if f.Device == nil || f.Device.ID != "t1" {
					t.Errorf("failure does not name the device")
				}
				return
			}
			if f != nil {
				t.Fatalf("Validate() failure = %s", f.Reason)
			}
			if got := va.Value.(float64); got != tt.want {
				t.Errorf("Value = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate_SetMode(t *testing.T) {
	c := Candidate{Device: dev("t1", "living", "Living Room Thermostat", device.KindThermostat, thermostatCaps)}

	va, f := Validate(c, CommandSetMode, TextParam("HEAT"))
	if f != nil {
		t.Fatalf("Validate(HEAT) failure = %s", f.Reason)
	}
	if va.Value != "heat" {
		t.Errorf("Value = %v, want declared spelling heat", va.Value)
	}

	_, f = Validate(c, CommandSetMode, TextParam("turbo"))
	if f == nil || f.Reason != ReasonUnsupportedAction {
		t.Fatalf("Validate(turbo) = %+v, want UnsupportedAction", f)
	}
	if !slices.Equal(f.Modes, []string{"heat", "cool", "auto", "off"}) {
		t.Errorf("Modes = %v, want the allowed set", f.Modes)
	}
	if f.Requested != "turbo" {
		t.Errorf("Requested = %q", f.Requested)
	}

	_, f = Validate(c, CommandSetMode, Parameter{})
	if f == nil || f.Reason != ReasonInvalidParameter {
		t.Errorf("Validate(missing) = %+v, want InvalidParameter", f)
	}
}

func TestValidate_Unsupported(t *testing.T) {
	thermostat := Candidate{Device: dev("t1", "living", "Thermostat", device.KindThermostat, thermostatCaps)}
	heater := Candidate{Device: dev("h1", "kitchen", "Heater", device.KindHeater, heaterCaps)}

	tests := []struct {
		name   string
		c      Candidate
		action CommandAction
		param  Parameter
	}{
		{"thermostat cannot switch off", thermostat, CommandTurnOff, Parameter{}},
		{"heater has no setpoint", heater, CommandSetTemperature, NumberParam(21)},
		{"heater has no modes", heater, CommandSetMode, TextParam("heat")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, f := Validate(tt.c, tt.action, tt.param)
			if f == nil || f.Reason != ReasonUnsupportedAction {
				t.Errorf("Validate() = %+v, want UnsupportedAction", f)
			}
		})
	}
}

func TestValidate_OnOff(t *testing.T) {
	heater := Candidate{Device: dev("h1", "kitchen", "Heater", device.KindHeater, heaterCaps)}

	va, f := Validate(heater, CommandTurnOn, Parameter{})
	if f != nil || va.Value != true {
		t.Errorf("turn_on = %v, %+v", va.Value, f)
	}
	va, f = Validate(heater, CommandTurnOff, Parameter{})
	if f != nil || va.Value != false {
		t.Errorf("turn_off = %v, %+v", va.Value, f)
	}
}

func TestSnapToStep(t *testing.T) {
	tests := []struct {
		v    float64
		r    device.TemperatureRange
		want float64
	}{
		{21.3, device.TemperatureRange{Min: 16, Max: 28, Step: 0.5}, 21.5},
		{20.15, device.TemperatureRange{Min: 16, Max: 28, Step: 0.1}, 20.2},
		{20.14, device.TemperatureRange{Min: 16, Max: 28, Step: 0.1}, 20.1},
		{17.4, device.TemperatureRange{Min: 16.5, Max: 30, Step: 1}, 17.5},
		{28.3, device.TemperatureRange{Min: 16, Max: 28.3, Step: 0.5}, 28},
		{22, device.TemperatureRange{Min: 22, Max: 22, Step: 1}, 22},
	}

	for _, tt := range tests {
		if got := SnapToStep(tt.v, tt.r); got != tt.want {
			t.Errorf("SnapToStep(%v, %+v) = %v, want %v", tt.v, tt.r, got, tt.want)
		}
	}
}
