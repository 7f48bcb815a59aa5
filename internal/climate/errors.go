package climate

import "errors"

var (
	// ErrRegistryUnavailable is returned by Handle when the entity registry
	// cannot be read. The accompanying reply is the generic failure text.
	ErrRegistryUnavailable = errors.New("climate: registry unavailable")

	// ErrDispatchTimeout may be returned by a Dispatcher when a device did
	// not acknowledge in time.
	ErrDispatchTimeout = errors.New("climate: dispatch timed out")

	// ErrDispatchRejected may be returned by a Dispatcher when the device
	// refused the command.
	ErrDispatchRejected = errors.New("climate: command rejected by device")

	// ErrTemplateMissing is returned by NewRenderer when a required
	// response template is not defined.
	ErrTemplateMissing = errors.New("climate: response template missing")
)
