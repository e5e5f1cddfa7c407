package device

import "fmt"

// State is the on/off state of a relay-driven device.
type State string

const (
	// StateOff means the relay is released.
	StateOff State = "off"

	// StateOn means the relay is energised.
	StateOn State = "on"
)

// ParseState converts "on"/"off" into a State.
func ParseState(s string) (State, error) {
	switch State(s) {
	case StateOn, StateOff:
		return State(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidState, s)
	}
}

// IsOn reports whether the state is StateOn.
func (s State) IsOn() bool {
	return s == StateOn
}

// Record is the configuration and current state of one device.
//
// Records are plain values. Copying a Record yields an independent
// snapshot, which is what the registry hands out.
type Record struct {
	ID    string `json:"device_id"`
	Name  string `json:"name"`
	State State  `json:"state"`
	Pin   int    `json:"pin"`
}

// Enabled returns a copy of r switched on.
func (r Record) Enabled() Record {
	r.State = StateOn
	return r
}

// Disabled returns a copy of r switched off.
func (r Record) Disabled() Record {
	r.State = StateOff
	return r
}

// Toggled returns a copy of r with the state flipped.
func (r Record) Toggled() Record {
	if r.State.IsOn() {
		return r.Disabled()
	}
	return r.Enabled()
}

// WithState returns a copy of r in the given state.
func (r Record) WithState(s State) Record {
	if s.IsOn() {
		return r.Enabled()
	}
	return r.Disabled()
}

// Transition is a pure state change applied by the device owner.
type Transition func(Record) Record
