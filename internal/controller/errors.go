package controller

import "errors"

// Errors returned by the owner, the command channel and the client.
//
// Check them with errors.Is:
//
//	if errors.Is(err, controller.ErrUnknownDevice) {
//	    // 404
//	}
var (
	// ErrUnknownDevice is returned when a command names a device id that is
	// not in the registry. The registry is left unchanged.
	ErrUnknownDevice = errors.New("controller: unknown device")

	// ErrChannelFull is returned when the command channel stayed full for
	// the whole send timeout.
	ErrChannelFull = errors.New("controller: command channel full")

	// ErrReplyTimeout is returned when the owner did not reply in time.
	ErrReplyTimeout = errors.New("controller: reply timeout")

	// ErrActuatorFault is returned when a relay write fails. It is fatal:
	// the owner stops and Run returns an error wrapping it.
	ErrActuatorFault = errors.New("controller: actuator fault")

	// ErrOwnerStopped is returned for commands sent after the owner exited.
	ErrOwnerStopped = errors.New("controller: owner stopped")

	// ErrUnsupportedCommand is returned for a command the owner does not handle.
	ErrUnsupportedCommand = errors.New("controller: unsupported command")

	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("controller: owner already running")
)
