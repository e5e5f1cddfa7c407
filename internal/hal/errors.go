package hal

import "errors"

var (
	// ErrUnknownPin is returned when a pin was not opened by the actuator.
	ErrUnknownPin = errors.New("hal: unknown pin")

	// ErrPinNotFound is returned when the host has no GPIO with the requested number.
	ErrPinNotFound = errors.New("hal: gpio pin not found")

	// ErrCRCMismatch is returned when a sensor word fails its checksum.
	ErrCRCMismatch = errors.New("hal: crc mismatch")

	// ErrSensorClosed is returned by Read after Close.
	ErrSensorClosed = errors.New("hal: sensor closed")
)
