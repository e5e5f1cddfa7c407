package hal

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// GPIORelays drives relay pins on the host GPIO header.
type GPIORelays struct {
	mu        sync.Mutex
	pins      map[int]gpio.PinOut
	activeLow bool
}

// OpenGPIORelays initialises the periph host drivers, looks up GPIO<n> for
// each pin and drives every pin to its inactive level.
//
// Parameters:
//   - pins: BCM pin numbers of the relays
//   - activeLow: true when a LOW output energises the relay
//
// Returns:
//   - *GPIORelays: Ready relay driver with all relays released
//   - error: If host initialisation fails or a pin does not exist
func OpenGPIORelays(pins []int, activeLow bool) (*GPIORelays, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initialising periph host: %w", err)
	}

	out := make(map[int]gpio.PinOut, len(pins))
	for _, n := range pins {
		p := gpioreg.ByName(fmt.Sprintf("GPIO%d", n))
		if p == nil {
			return nil, fmt.Errorf("%w: GPIO%d", ErrPinNotFound, n)
		}
		out[n] = p
	}

	return NewGPIORelays(out, activeLow)
}

// NewGPIORelays wraps already resolved pins. Every pin is driven inactive.
func NewGPIORelays(pins map[int]gpio.PinOut, activeLow bool) (*GPIORelays, error) {
	g := &GPIORelays{pins: pins, activeLow: activeLow}
	for n := range pins {
		if err := g.drive(n, false); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Activate energises the relay on pin.
func (g *GPIORelays) Activate(pin int) error {
	return g.drive(pin, true)
}

// Deactivate releases the relay on pin.
func (g *GPIORelays) Deactivate(pin int) error {
	return g.drive(pin, false)
}

func (g *GPIORelays) drive(pin int, active bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.pins[pin]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPin, pin)
	}
	if err := p.Out(g.level(active)); err != nil {
		return fmt.Errorf("driving GPIO%d: %w", pin, err)
	}
	return nil
}

func (g *GPIORelays) level(active bool) gpio.Level {
	if g.activeLow {
		return gpio.Level(!active)
	}
	return gpio.Level(active)
}

// Close releases every relay.
func (g *GPIORelays) Close() error {
	var first error
	for n := range g.pins {
		if err := g.drive(n, false); err != nil && first == nil {
			first = err
		}
	}
	return first
}
