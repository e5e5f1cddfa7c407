package device

import "errors"

// Registry and validation failures. Callers match them with errors.Is;
// the wrapped message names the device or pin involved.
var (
	ErrDeviceNotFound = errors.New("device: not found")
	ErrDeviceExists   = errors.New("device: already exists")
	ErrInvalidDevice  = errors.New("device: invalid")

	// ErrInvalidState rejects anything other than "on" or "off".
	ErrInvalidState = errors.New("device: invalid state")

	// ErrPinInUse means two devices claim one relay pin.
	ErrPinInUse = errors.New("device: pin already in use")

	// ErrPinImmutable means an update tried to move a device to another
	// pin; pins are fixed for the process lifetime.
	ErrPinImmutable = errors.New("device: pin is immutable")
)
