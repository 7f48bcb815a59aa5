package location

import "errors"

var (
	// ErrRoomNotFound is returned when a room ID does not exist.
	ErrRoomNotFound = errors.New("location: room not found")

	// ErrRoomExists is returned when creating a room whose ID or slug is taken.
	ErrRoomExists = errors.New("location: room already exists")

	// ErrAliasTaken is returned when an alias is already used by another room.
	ErrAliasTaken = errors.New("location: alias already in use")

	// ErrInvalidName is returned when a room name is empty or too long.
	ErrInvalidName = errors.New("location: invalid name")

	// ErrInvalidSlug is returned when a slug format is invalid.
	ErrInvalidSlug = errors.New("location: invalid slug")

	// ErrInvalidAlias is returned when an alias is empty or too long.
	ErrInvalidAlias = errors.New("location: invalid alias")
)
