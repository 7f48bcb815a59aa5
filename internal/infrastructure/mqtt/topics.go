package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes used by the climate skill.
//
// Voice topics carry intents in and spoken replies out. Device commands and
// acknowledgements use the flat bridge scheme graylogic/{category}/{domain}/{id}.
const (
	// TopicPrefix is the root of every Gray Logic topic.
	TopicPrefix = "graylogic"

	// TopicPrefixVoice is the base for voice assistant traffic.
	TopicPrefixVoice = "graylogic/voice"

	// TopicPrefixCore is the base for core topics.
	TopicPrefixCore = "graylogic/core"

	// TopicPrefixSkill is the base for skill presence topics.
	TopicPrefixSkill = "graylogic/skill"

	// DomainClimate is the command domain for heating and cooling devices.
	DomainClimate = "climate"

	// EventRegistryChanged is published by core after rooms or devices change.
	EventRegistryChanged = "registry_changed"
)

// Topics provides builders for the climate skill's MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.Command("thermostat-living")
//	// Returns: "graylogic/command/climate/thermostat-living"
//
// A Topics value with an empty SkillID reports presence as "climate".
type Topics struct {
	SkillID string
}

// Intents returns the topic the voice front end publishes climate intents on.
//
// Example: graylogic/voice/intent/climate
func (Topics) Intents() string {
	return fmt.Sprintf("%s/intent/%s", TopicPrefixVoice, DomainClimate)
}

// Response returns the default reply topic for a request.
//
// Example: graylogic/voice/response/req-abc123
func (Topics) Response(requestID string) string {
	return fmt.Sprintf("%s/response/%s", TopicPrefixVoice, requestID)
}

// Command returns the default command topic for a climate device.
//
// Example: graylogic/command/climate/thermostat-living
func (Topics) Command(deviceID string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, DomainClimate, deviceID)
}

// Ack returns the acknowledgement topic for a climate device.
//
// Example: graylogic/ack/climate/thermostat-living
func (Topics) Ack(deviceID string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefix, DomainClimate, deviceID)
}

// AllAcks returns a pattern matching every climate acknowledgement.
//
// Pattern: graylogic/ack/climate/+
func (Topics) AllAcks() string {
	return fmt.Sprintf("%s/ack/%s/+", TopicPrefix, DomainClimate)
}

// CoreEvent returns the topic for a core event.
//
// Example: graylogic/core/event/registry_changed
func (Topics) CoreEvent(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefixCore, eventType)
}

// RegistryChanged returns the topic announcing registry edits.
func (t Topics) RegistryChanged() string {
	return t.CoreEvent(EventRegistryChanged)
}

// SkillStatus returns the retained presence topic for this skill.
//
// Example: graylogic/skill/climate/status
func (t Topics) SkillStatus() string {
	id := t.SkillID
	if id == "" {
		id = DomainClimate
	}
	return fmt.Sprintf("%s/%s/status", TopicPrefixSkill, id)
}

// LastSegment returns the final level of a topic, which for command, ack
// and response topics is the device or request ID.
func LastSegment(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
