package climate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/device"
	"github.com/nerrad567/gray-logic-climate/internal/location"
)

// Verb is the intent verb supplied by the upstream parser.
type Verb string

// Recognised verbs.
const (
	VerbSet            Verb = "set"
	VerbSetTemperature Verb = "set_temperature"
	VerbSetMode        Verb = "set_mode"
	VerbTurnOn         Verb = "turn_on"
	VerbTurnOff        Verb = "turn_off"
	VerbHelp           Verb = "help"
)

// normaliseVerb lower-cases a verb and joins words with underscores
// ("Turn Off" -> "turn_off").
func normaliseVerb(v Verb) Verb {
	s := strings.ToLower(strings.TrimSpace(string(v)))
	s = strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
	return Verb(s)
}

// Request is one parsed voice intent.
type Request struct {
	ID           string    `json:"id"`
	Verb         Verb      `json:"verb"`
	TargetPhrase string    `json:"target_phrase"`
	RoomHint     string    `json:"room_hint,omitempty"`
	Parameter    Parameter `json:"parameter,omitzero"`

	// OriginRoom is the room (ID or name) of the satellite that heard the
	// request. It breaks ties between otherwise equal candidates.
	OriginRoom string `json:"origin_room,omitempty"`

	// ReplyTopic overrides the default response topic.
	ReplyTopic string `json:"reply_topic,omitempty"`
}

// Parameter is the optional request argument. On the wire it is a JSON
// number, a JSON string, or absent.
type Parameter struct {
	text  string
	num   float64
	isNum bool
	set   bool
}

// NumberParam returns a numeric parameter.
func NumberParam(v float64) Parameter {
	return Parameter{num: v, isNum: true, set: true}
}

// TextParam returns a text parameter.
func TextParam(s string) Parameter {
	return Parameter{text: s, set: true}
}

// IsZero reports whether no parameter was supplied.
func (p Parameter) IsZero() bool {
	return !p.set || (!p.isNum && strings.TrimSpace(p.text) == "")
}

// numericText accepts "21", "21.5", "21,5", "21 degrees", "21°C", "21 c".
var numericText = regexp.MustCompile(`(?i)^\s*([-+]?\d+(?:[.,]\d+)?)\s*(?:°\s*c?|degrees?(?:\s+c(?:elsius)?)?|c(?:elsius)?)?\s*$`)

// Number returns the parameter as a number, parsing numeric text.
func (p Parameter) Number() (float64, bool) {
	if !p.set {
		return 0, false
	}
	if p.isNum {
		return p.num, true
	}
	m := numericText.FindStringSubmatch(p.text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// String returns the parameter as spoken text.
func (p Parameter) String() string {
	if p.isNum {
		return formatNumber(p.num)
	}
	return strings.TrimSpace(p.text)
}

// UnmarshalJSON accepts a number, a string, or null.
func (p *Parameter) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*p = Parameter{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = TextParam(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("parameter must be a number or a string: %w", err)
	}
	*p = NumberParam(f)
	return nil
}

// MarshalJSON writes the parameter in the form it was given.
func (p Parameter) MarshalJSON() ([]byte, error) {
	switch {
	case !p.set:
		return []byte("null"), nil
	case p.isNum:
		return json.Marshal(p.num)
	default:
		return json.Marshal(p.text)
	}
}

// Stage is a step of request handling.
type Stage string

// Request stages, in order.
const (
	StageReceived    Stage = "received"
	StageResolving   Stage = "resolving"
	StageValidating  Stage = "validating"
	StageDispatching Stage = "dispatching"
	StageResponded   Stage = "responded"
)

// Tier is the strength of a name match. Lower is stronger.
type Tier int

// Match tiers.
const (
	TierName  Tier = 1
	TierAlias Tier = 2
	TierFuzzy Tier = 3
)

func (t Tier) String() string {
	switch t {
	case TierName:
		return "name"
	case TierAlias:
		return "alias"
	case TierFuzzy:
		return "fuzzy"
	default:
		return "tier(" + strconv.Itoa(int(t)) + ")"
	}
}

// Candidate is a device considered for a spoken target.
type Candidate struct {
	Device   device.Device
	RoomName string
	Tier     Tier
	Score    float64
}

// Label is how the candidate is read back to the user.
func (c Candidate) Label() string {
	if c.RoomName == "" {
		return c.Device.Name
	}
	return c.Device.Name + " in the " + c.RoomName
}

// Resolution is the resolver's ranked view of a target phrase.
type Resolution struct {
	// Phrase is the normalised target phrase with group words removed.
	Phrase string

	// Candidates are ordered by tier, then score, then name.
	Candidates []Candidate

	// Group is set when the phrase addressed several devices ("all radiators").
	Group bool

	// RoomHint is the hint as given; Rooms are the rooms it matched.
	RoomHint string
	Rooms    []location.Room

	// RoomHintUnmatched is set when a hint was given but matched no room.
	// The search then ran across all rooms.
	RoomHintUnmatched bool
}

// roomName returns the matched room's name when the hint picked exactly one.
func (r Resolution) roomName() string {
	if len(r.Rooms) == 1 {
		return r.Rooms[0].Name
	}
	return ""
}

// CommandAction is the operation a command performs on a device.
type CommandAction string

// Command actions.
const (
	CommandSetTemperature CommandAction = "set_temperature"
	CommandSetMode        CommandAction = "set_mode"
	CommandTurnOn         CommandAction = "turn_on"
	CommandTurnOff        CommandAction = "turn_off"
)

// capability returns the declared capability an action needs.
func (a CommandAction) capability() device.Action {
	switch a {
	case CommandSetTemperature:
		return device.ActionSetTemperature
	case CommandSetMode:
		return device.ActionSetMode
	default:
		return device.ActionOnOff
	}
}

// Reason tags a failed outcome.
type Reason string

// Failure reasons.
const (
	ReasonNotFound          Reason = "not_found"
	ReasonAmbiguous         Reason = "ambiguous"
	ReasonUnsupportedAction Reason = "unsupported_action"
	ReasonOutOfCapability   Reason = "out_of_capability"
	ReasonInvalidParameter  Reason = "invalid_parameter"
	ReasonDispatchTimeout   Reason = "dispatch_timeout"
	ReasonDispatchFailed    Reason = "dispatch_failed"
)

// Bound names the side of a range a value fell outside.
type Bound string

// Range bounds.
const (
	BoundBelow Bound = "below"
	BoundAbove Bound = "above"
)

// Failure is an expected, user-facing outcome. It carries what the reply
// needs to explain itself.
type Failure struct {
	Reason Reason

	// Target
	Phrase            string
	RoomName          string
	RoomHint          string
	RoomHintUnmatched bool
	Candidates        []Candidate // Ambiguous
	Device            *device.Device

	// Validation
	Action    CommandAction
	Requested string
	Bound     Bound   // OutOfCapability
	Limit     float64 // OutOfCapability
	Modes     []string

	// Dispatch
	Err error
}

// ValidatedAction is a device, action and normalised value that passed
// capability checks.
type ValidatedAction struct {
	Device   device.Device
	RoomName string
	Action   CommandAction

	// Value is float64 for set_temperature, string for set_mode, and bool
	// for turn_on/turn_off.
	Value any
}

// Command is a transport-agnostic device instruction.
type Command struct {
	DeviceID string        `json:"device_id"`
	Action   CommandAction `json:"action"`
	Value    any           `json:"value"`
	IssuedAt time.Time     `json:"issued_at"`
}

// DispatchStatus is the per-device result of a request.
type DispatchStatus string

// Dispatch statuses. Rejected devices failed validation and were never sent.
const (
	StatusOK       DispatchStatus = "ok"
	StatusTimeout  DispatchStatus = "timeout"
	StatusFailed   DispatchStatus = "failed"
	StatusRejected DispatchStatus = "rejected"
)

// DeviceResult records what happened to one targeted device.
type DeviceResult struct {
	RequestID  string         `json:"request_id"`
	DeviceID   string         `json:"device_id"`
	DeviceName string         `json:"device_name"`
	RoomName   string         `json:"room_name,omitempty"`
	Status     DispatchStatus `json:"status"`
	Command    *Command       `json:"command,omitempty"`
	Error      string         `json:"error,omitempty"`
	Duration   time.Duration  `json:"duration_ns,omitempty"`
}

// Reply is the result of handling one request.
type Reply struct {
	RequestID string         `json:"request_id"`
	Text      string         `json:"text"`
	Outcome   string         `json:"outcome"`
	Stages    []Stage        `json:"stages"`
	Results   []DeviceResult `json:"results,omitempty"`
}

// formatNumber prints 21 as "21" and 21.5 as "21.5".
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
