package bridge

import (
	"errors"

	"github.com/sporehut/sporehut-core/internal/controller"
)

// Domain-specific errors for MQTT command handling.
var (
	// ErrInvalidCommand is returned for payloads that are not valid command JSON
	// or name an unknown command.
	ErrInvalidCommand = errors.New("bridge: invalid command")

	// ErrInvalidTopic is returned when the device ID cannot be taken from the topic.
	ErrInvalidTopic = errors.New("bridge: invalid command topic")
)

// errorCode maps a command error to the code carried in acks.
func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCommand):
		return "invalid_command"
	case errors.Is(err, controller.ErrUnknownDevice):
		return "unknown_device"
	case errors.Is(err, controller.ErrChannelFull):
		return "channel_full"
	case errors.Is(err, controller.ErrReplyTimeout):
		return "reply_timeout"
	case errors.Is(err, controller.ErrOwnerStopped):
		return "owner_stopped"
	case errors.Is(err, controller.ErrActuatorFault):
		return "actuator_fault"
	default:
		return "internal_error"
	}
}
