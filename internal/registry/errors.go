package registry

import "errors"

var (
	// ErrUnavailable is returned when the backing store cannot be read.
	// No resolution is possible without the registry.
	ErrUnavailable = errors.New("registry: store unavailable")

	// ErrRoomNotFound is returned by Room for an unknown room ID.
	ErrRoomNotFound = errors.New("registry: room not found")

	// ErrDeviceUnusable is returned by GetDevice for a stored device that
	// fails the checks a snapshot applies, such as an unknown room or an
	// invalid command topic.
	ErrDeviceUnusable = errors.New("registry: device unusable")
)
