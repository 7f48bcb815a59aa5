package bridge

import "errors"

// Domain errors for the bus bridge.
var (
	// ErrMalformedIntent is returned when an intent payload cannot be decoded.
	ErrMalformedIntent = errors.New("bridge: malformed intent")

	// ErrMalformedAck is returned when an acknowledgement cannot be decoded.
	ErrMalformedAck = errors.New("bridge: malformed acknowledgement")

	// ErrPayloadTemplate is returned when a device payload template fails to render.
	ErrPayloadTemplate = errors.New("bridge: payload template failed")

	// ErrPublishFailed wraps bus errors while sending a command or reply.
	ErrPublishFailed = errors.New("bridge: publish failed")
)
