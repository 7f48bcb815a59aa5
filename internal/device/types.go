package device

import (
	"slices"
	"strings"
	"time"
)

// Device represents a climate device known to the entity registry.
// This matches the devices table in migrations/20260301_090000_entity_registry.up.sql.
type Device struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`

	// RoomID is the owning room. Every device belongs to exactly one room.
	RoomID string `json:"room_id"`

	// Kind classifies the device (thermostat, ac_unit, ...). It also gives
	// the generic words a user may say for it ("radiator", "heater").
	Kind Kind `json:"kind"`

	// Aliases are alternative spoken names, unique within the room.
	Aliases []string `json:"aliases,omitempty"`

	// Topic is the device-control MQTT topic. Empty means the default
	// scheme graylogic/command/climate/{id} is used.
	Topic string `json:"topic,omitempty"`

	// Capabilities declares what the device accepts.
	Capabilities Capabilities `json:"capabilities"`

	// PayloadTemplates optionally replace the standard command envelope for
	// an action with a device-specific payload.
	PayloadTemplates PayloadTemplates `json:"payload_templates,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy creates a complete independent copy of the Device.
// All map and slice fields are cloned so modifications to the copy
// do not affect the original. Registry snapshots depend on this.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d
	cpy.Aliases = slices.Clone(d.Aliases)
	cpy.Capabilities = d.Capabilities.clone()
	if d.PayloadTemplates != nil {
		cpy.PayloadTemplates = make(PayloadTemplates, len(d.PayloadTemplates))
		for k, v := range d.PayloadTemplates {
			cpy.PayloadTemplates[k] = v
		}
	}
	return &cpy
}

// Kind is the category of climate device.
type Kind string

// Climate device kinds.
const (
	KindThermostat    Kind = "thermostat"
	KindACUnit        Kind = "ac_unit"
	KindRadiatorValve Kind = "radiator_valve"
	KindHeater        Kind = "heater"
)

// AllKinds returns all valid kind values.
func AllKinds() []Kind {
	return []Kind{KindThermostat, KindACUnit, KindRadiatorValve, KindHeater}
}

// spokenKinds maps each kind to the generic phrases people use for it.
var spokenKinds = map[Kind][]string{
	KindThermostat:    {"thermostat", "thermostats", "temperature", "climate"},
	KindACUnit:        {"ac", "ac unit", "air conditioner", "air conditioning", "aircon", "air con", "cooler"},
	KindRadiatorValve: {"radiator", "radiators", "radiator valve", "valve", "trv"},
	KindHeater:        {"heater", "heaters", "heating"},
}

// SpokenForms returns the generic phrases that refer to this kind of device.
func (k Kind) SpokenForms() []string {
	return spokenKinds[k]
}

// Label returns a human-readable form of the kind ("ac unit").
func (k Kind) Label() string {
	return strings.ReplaceAll(string(k), "_", " ")
}

// Action is a capability a device can declare.
type Action string

// Declared capability actions.
const (
	ActionSetTemperature Action = "set_temperature"
	ActionSetMode        Action = "set_mode"
	ActionOnOff          Action = "on_off"
)

// AllActions returns all valid capability actions.
func AllActions() []Action {
	return []Action{ActionSetTemperature, ActionSetMode, ActionOnOff}
}

// TemperatureRange is the operating envelope for set_temperature.
// Valid setpoints are Min, Min+Step, Min+2*Step, ... up to Max.
type TemperatureRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// Capabilities is a device's capability descriptor.
//
// Stored as JSON, for example:
//
//	{"actions": ["set_temperature", "set_mode", "on_off"],
//	 "temperature": {"min": 16, "max": 28, "step": 0.5},
//	 "modes": ["heat", "cool", "auto", "off"]}
type Capabilities struct {
	Actions     []Action          `json:"actions"`
	Temperature *TemperatureRange `json:"temperature,omitempty"`
	Modes       []string          `json:"modes,omitempty"`
}

// Supports reports whether the device declares the action.
func (c Capabilities) Supports(a Action) bool {
	return slices.Contains(c.Actions, a)
}

// MatchMode returns the declared spelling of mode, compared case-insensitively.
func (c Capabilities) MatchMode(mode string) (string, bool) {
	mode = strings.TrimSpace(mode)
	for _, m := range c.Modes {
		if strings.EqualFold(m, mode) {
			return m, true
		}
	}
	return "", false
}

func (c Capabilities) clone() Capabilities {
	cpy := Capabilities{
		Actions: slices.Clone(c.Actions),
		Modes:   slices.Clone(c.Modes),
	}
	if c.Temperature != nil {
		t := *c.Temperature
		cpy.Temperature = &t
	}
	return cpy
}

// PayloadTemplates maps a command action (set_temperature, set_mode,
// turn_on, turn_off) to a text/template body rendered with the command.
//
// Example for a Zigbee thermostat:
//
//	{"set_temperature": "{\"occupied_heating_setpoint\": {{.Value}}}"}
type PayloadTemplates map[string]string
