package hal

import (
	"fmt"
	"sync"
)

// Actuator drives relay pins.
//
// Activate energises the relay on pin and Deactivate releases it. Both are
// expected to complete quickly; the controller calls them while holding
// exclusive ownership of the device registry.
type Actuator interface {
	Activate(pin int) error
	Deactivate(pin int) error
}

// ActuatorCall is one recorded call on a MemoryActuator.
type ActuatorCall struct {
	Pin    int
	Active bool
}

// MemoryActuator is an in-memory Actuator used in simulation mode and tests.
//
// It is safe for concurrent use.
type MemoryActuator struct {
	mu     sync.Mutex
	levels map[int]bool
	calls  []ActuatorCall
	fault  error
}

// NewMemoryActuator returns a MemoryActuator with every pin inactive.
func NewMemoryActuator(pins ...int) *MemoryActuator {
	m := &MemoryActuator{levels: make(map[int]bool, len(pins))}
	for _, p := range pins {
		m.levels[p] = false
	}
	return m
}

// Activate marks pin as active.
func (m *MemoryActuator) Activate(pin int) error {
	return m.set(pin, true)
}

// Deactivate marks pin as inactive.
func (m *MemoryActuator) Deactivate(pin int) error {
	return m.set(pin, false)
}

func (m *MemoryActuator) set(pin int, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fault != nil {
		return fmt.Errorf("pin %d: %w", pin, m.fault)
	}
	m.levels[pin] = active
	m.calls = append(m.calls, ActuatorCall{Pin: pin, Active: active})
	return nil
}

// SetFault makes every following call fail with err. Pass nil to clear it.
func (m *MemoryActuator) SetFault(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fault = err
}

// Active reports whether pin is currently active.
func (m *MemoryActuator) Active(pin int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.levels[pin]
}

// Calls returns a copy of every successful call in order.
func (m *MemoryActuator) Calls() []ActuatorCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ActuatorCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of successful calls for pin.
func (m *MemoryActuator) CallCount(pin int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Pin == pin {
			n++
		}
	}
	return n
}
