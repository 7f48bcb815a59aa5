package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when creating a device with an ID that already exists.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidKind is returned when a kind value is not recognised.
	ErrInvalidKind = errors.New("device: invalid kind")

	// ErrInvalidCapability is returned when a capability descriptor is malformed.
	ErrInvalidCapability = errors.New("device: invalid capability")

	// ErrInvalidName is returned when a device name is empty or too long.
	ErrInvalidName = errors.New("device: invalid name")

	// ErrInvalidSlug is returned when a slug format is invalid.
	ErrInvalidSlug = errors.New("device: invalid slug")

	// ErrInvalidAlias is returned when an alias is empty, too long, or repeated.
	ErrInvalidAlias = errors.New("device: invalid alias")

	// ErrAliasTaken is returned when another device in the same room already uses an alias.
	ErrAliasTaken = errors.New("device: alias already in use in room")

	// ErrInvalidTopic is returned when a control topic is not publishable.
	ErrInvalidTopic = errors.New("device: invalid topic")

	// ErrRoomNotFound is returned when a referenced room does not exist.
	ErrRoomNotFound = errors.New("device: room not found")
)
