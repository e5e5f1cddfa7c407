package controller

import (
	"time"

	"github.com/google/uuid"

	"github.com/sporehut/sporehut-core/internal/device"
)

// Command is a request to the device owner.
//
// The set is closed: GetAllDeviceConfigs, ToggleDevice, EnableDevice and
// DisableDevice are the only implementations.
type Command interface {
	// Name is the stable snake_case name used in logs, metrics and audit rows.
	Name() string
	isCommand()
}

// GetAllDeviceConfigs asks for a snapshot of every device.
type GetAllDeviceConfigs struct{}

// ToggleDevice flips a device between on and off.
type ToggleDevice struct {
	DeviceID string
}

// EnableDevice switches a device on. Re-enabling an enabled device still
// drives the relay.
type EnableDevice struct {
	DeviceID string
}

// DisableDevice switches a device off. Re-disabling still drives the relay.
type DisableDevice struct {
	DeviceID string
}

func (GetAllDeviceConfigs) Name() string { return "get_all_device_configs" }
func (ToggleDevice) Name() string        { return "toggle_device" }
func (EnableDevice) Name() string        { return "enable_device" }
func (DisableDevice) Name() string       { return "disable_device" }

func (GetAllDeviceConfigs) isCommand() {}
func (ToggleDevice) isCommand()        {}
func (EnableDevice) isCommand()        {}
func (DisableDevice) isCommand()       {}

// SetDevice returns EnableDevice or DisableDevice for the wanted state.
func SetDevice(id string, state device.State) Command {
	if state.IsOn() {
		return EnableDevice{DeviceID: id}
	}
	return DisableDevice{DeviceID: id}
}

// commandName tolerates a nil command so a malformed envelope can still be logged.
func commandName(cmd Command) string {
	if cmd == nil {
		return "unknown"
	}
	return cmd.Name()
}

// Reply is the owner's answer to a request/reply command.
type Reply struct {
	// Devices is set for GetAllDeviceConfigs.
	Devices []device.Record

	// Device is the record after a device command. On failure it holds the
	// unchanged record when the device exists.
	Device device.Record

	Err error
}

// Envelope carries a command through the command channel.
//
// Reply is optional. A nil Reply makes the command fire-and-forget; a
// non-nil Reply should be buffered (capacity 1) because the owner never
// blocks on it.
type Envelope struct {
	ID         string
	Command    Command
	Source     string
	Reply      chan<- Reply
	EnqueuedAt time.Time
}

// NewEnvelope wraps cmd with a fresh correlation id.
func NewEnvelope(cmd Command, source string, reply chan<- Reply) Envelope {
	return Envelope{
		ID:         uuid.NewString(),
		Command:    cmd,
		Source:     source,
		Reply:      reply,
		EnqueuedAt: time.Now(),
	}
}
