package device

import (
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength    = 100
	maxSlugLength    = 50
	maxAliasLength   = 64
	maxAliases       = 20
	maxModes         = 16
	maxTemplateBytes = 4096
	slugPattern      = `^[a-z0-9]+(?:-[a-z0-9]+)*$`

	// maxTopicLength bounds MQTT control topics.
	maxTopicLength = 128
)

var (
	slugRegex = regexp.MustCompile(slugPattern)

	// invalidTopicChars matches wildcards, the reserved '$' prefix character,
	// whitespace and control characters, none of which may appear in a
	// topic the skill publishes to.
	invalidTopicChars = regexp.MustCompile(`[$#+\s\x00-\x1f]`)
)

// Pre-computed validation sets for O(1) lookups.
var (
	validKinds   map[Kind]struct{}
	validActions map[Action]struct{}
)

// commandActions are the keys allowed in PayloadTemplates.
var commandActions = map[string]struct{}{
	"set_temperature": {},
	"set_mode":        {},
	"turn_on":         {},
	"turn_off":        {},
}

func init() {
	validKinds = make(map[Kind]struct{}, len(AllKinds()))
	for _, k := range AllKinds() {
		validKinds[k] = struct{}{}
	}

	validActions = make(map[Action]struct{}, len(AllActions()))
	for _, a := range AllActions() {
		validActions[a] = struct{}{}
	}
}

// ValidateDevice performs comprehensive validation on a device.
// Returns an error describing the first validation failure found.
func ValidateDevice(d *Device) error {
	if d == nil {
		return ErrInvalidDevice
	}

	if err := ValidateName(d.Name); err != nil {
		return err
	}
	if d.Slug != "" {
		if err := ValidateSlug(d.Slug); err != nil {
			return err
		}
	}
	if strings.TrimSpace(d.RoomID) == "" {
		return fmt.Errorf("%w: room_id is required", ErrInvalidDevice)
	}
	if err := ValidateKind(d.Kind); err != nil {
		return err
	}
	if err := ValidateAliases(d.Aliases); err != nil {
		return err
	}
	if d.Topic != "" {
		if _, err := ValidateTopic(d.Topic); err != nil {
			return err
		}
	}
	if err := ValidateCapabilities(d.Capabilities); err != nil {
		return err
	}
	return ValidatePayloadTemplates(d.PayloadTemplates)
}

// ValidateName checks if a device name is valid.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateSlug checks if a slug format is valid.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("%w: slug cannot be empty", ErrInvalidSlug)
	}
	if len(slug) > maxSlugLength {
		return fmt.Errorf("%w: slug exceeds %d characters", ErrInvalidSlug, maxSlugLength)
	}
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("%w: slug must be lowercase alphanumeric with hyphens", ErrInvalidSlug)
	}
	return nil
}

// ValidateKind checks if a device kind is recognised.
func ValidateKind(kind Kind) error {
	if _, ok := validKinds[kind]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	return nil
}

// ValidateAliases checks a device's alias list for empties and repeats.
// Uniqueness across devices in the room is enforced by the store.
func ValidateAliases(aliases []string) error {
	if len(aliases) > maxAliases {
		return fmt.Errorf("%w: more than %d aliases", ErrInvalidAlias, maxAliases)
	}
	seen := make(map[string]struct{}, len(aliases))
	for _, a := range aliases {
		key := strings.ToLower(strings.TrimSpace(a))
		if key == "" {
			return fmt.Errorf("%w: alias cannot be empty", ErrInvalidAlias)
		}
		if len(key) > maxAliasLength {
			return fmt.Errorf("%w: alias exceeds %d characters", ErrInvalidAlias, maxAliasLength)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate alias %q", ErrInvalidAlias, a)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// ValidateCapabilities checks a capability descriptor.
//
// Rules:
//   - every action is recognised
//   - set_temperature requires a range with Min <= Max and Step > 0
//   - set_mode requires at least one mode; modes are unique ignoring case
func ValidateCapabilities(c Capabilities) error {
	for _, a := range c.Actions {
		if _, ok := validActions[a]; !ok {
			return fmt.Errorf("%w: unknown action %q", ErrInvalidCapability, a)
		}
	}

	if c.Supports(ActionSetTemperature) && c.Temperature == nil {
		return fmt.Errorf("%w: set_temperature requires a temperature range", ErrInvalidCapability)
	}
	if t := c.Temperature; t != nil {
		if t.Min > t.Max {
			return fmt.Errorf("%w: temperature min %g exceeds max %g", ErrInvalidCapability, t.Min, t.Max)
		}
		if t.Step <= 0 {
			return fmt.Errorf("%w: temperature step must be positive", ErrInvalidCapability)
		}
	}

	if c.Supports(ActionSetMode) && len(c.Modes) == 0 {
		return fmt.Errorf("%w: set_mode requires at least one mode", ErrInvalidCapability)
	}
	if len(c.Modes) > maxModes {
		return fmt.Errorf("%w: more than %d modes", ErrInvalidCapability, maxModes)
	}
	seen := make(map[string]struct{}, len(c.Modes))
	for _, m := range c.Modes {
		key := strings.ToLower(strings.TrimSpace(m))
		if key == "" {
			return fmt.Errorf("%w: empty mode name", ErrInvalidCapability)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate mode %q", ErrInvalidCapability, m)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// ValidateTopic trims and checks a device-control topic, returning the
// trimmed form.
func ValidateTopic(topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", fmt.Errorf("%w: topic cannot be empty", ErrInvalidTopic)
	}
	if len(topic) > maxTopicLength {
		return "", fmt.Errorf("%w: topic exceeds %d characters", ErrInvalidTopic, maxTopicLength)
	}
	if invalidTopicChars.MatchString(topic) {
		return "", fmt.Errorf("%w: %q contains wildcard, whitespace or control characters", ErrInvalidTopic, topic)
	}
	return topic, nil
}

// ValidatePayloadTemplates checks that templates are keyed by a known
// command action and parse.
func ValidatePayloadTemplates(p PayloadTemplates) error {
	for action, body := range p {
		if _, ok := commandActions[action]; !ok {
			return fmt.Errorf("%w: payload template for unknown action %q", ErrInvalidDevice, action)
		}
		if len(body) > maxTemplateBytes {
			return fmt.Errorf("%w: payload template for %s too large", ErrInvalidDevice, action)
		}
		if _, err := template.New(action).Parse(body); err != nil {
			return fmt.Errorf("%w: payload template for %s: %v", ErrInvalidDevice, action, err)
		}
	}
	return nil
}

// GenerateSlug creates a URL-safe slug from a name.
func GenerateSlug(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastHyphen = false
		case r == ' ' || r == '-' || r == '_':
			if !lastHyphen {
				b.WriteRune('-')
				lastHyphen = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}

// GenerateID creates a new UUID for a device.
func GenerateID() string {
	return uuid.New().String()
}
