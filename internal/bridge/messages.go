package bridge

import (
	"bytes"
	"encoding/json"
	"time"
)

// MQTT message types exchanged with the voice front end and the protocol
// bridges that own climate devices.

// CommandMessage is sent to a device's command topic.
// Topic: the device's topic, default graylogic/command/climate/{device_id}
type CommandMessage struct {
	// ID correlates the command with its acknowledgement.
	ID string `json:"id"`

	DeviceID string `json:"device_id"`

	// Action is set_temperature, set_mode, turn_on or turn_off.
	Action string `json:"action"`

	// Value is a number for set_temperature, a mode name for set_mode and
	// a bool for turn_on/turn_off.
	Value any `json:"value"`

	IssuedAt time.Time `json:"issued_at"`

	// Source names the skill that issued the command.
	Source string `json:"source"`
}

// AckStatus represents the acknowledgement status of a command.
type AckStatus string

const (
	// AckAccepted indicates the device took the command.
	AckAccepted AckStatus = "accepted"

	// AckFailed indicates the command could not be executed.
	AckFailed AckStatus = "failed"
)

// AckMessage is published by the owning bridge after handling a command.
// Topic: graylogic/ack/climate/{device_id}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	DeviceID  string    `json:"device_id"`
	Status    AckStatus `json:"status"`
	Timestamp time.Time `json:"timestamp,omitzero"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError describes a failed command. Bridges may send either an object
// or a bare string; a string becomes Message.
type AckError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// UnmarshalJSON accepts {"code":..,"message":..} or "message".
func (e *AckError) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &e.Message)
	}
	type plain AckError
	return json.Unmarshal(data, (*plain)(e))
}

func (e *AckError) String() string {
	switch {
	case e == nil:
		return ""
	case e.Code != "" && e.Message != "":
		return e.Code + ": " + e.Message
	case e.Code != "":
		return e.Code
	}
	return e.Message
}

// ResponseMessage carries the spoken reply back to the voice front end.
// Topic: the request's reply_topic, default graylogic/voice/response/{request_id}
type ResponseMessage struct {
	RequestID string `json:"request_id"`
	Text      string `json:"text"`
}

// templateData is exposed to device payload templates.
type templateData struct {
	ID       string
	DeviceID string
	Action   string
	Value    any
	IssuedAt string
	Source   string
}
