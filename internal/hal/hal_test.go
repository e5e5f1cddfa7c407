package hal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// ─── Mock Dependencies ─────────────────────────────────────────────

// fakeSCD41 emulates the SCD41 I2C protocol: every write is a command and
// the following read returns that command's response.
type fakeSCD41 struct {
	mu       sync.Mutex
	last     uint16
	notReady int // data-ready polls answered "not ready" before a sample
	sample   [3]uint16
	corrupt  bool
	commands []uint16
	readErr  error
}

func (f *fakeSCD41) String() string      { return "fake-scd41" }
func (f *fakeSCD41) Duplex() conn.Duplex { return conn.Half }

func (f *fakeSCD41) Tx(w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(w) == 2 {
		f.last = uint16(w[0])<<8 | uint16(w[1])
		f.commands = append(f.commands, f.last)
	}
	if len(r) == 0 {
		return nil
	}
	if f.readErr != nil {
		return f.readErr
	}

	var words []uint16
	switch f.last {
	case scd41GetDataReady:
		if f.notReady > 0 {
			f.notReady--
			words = []uint16{0x8000}
		} else {
			words = []uint16{0x8006}
		}
	case scd41ReadMeasurement:
		words = f.sample[:]
	}

	for i, w := range words {
		r[3*i] = byte(w >> 8)
		r[3*i+1] = byte(w)
		r[3*i+2] = crc8(r[3*i : 3*i+2])
	}
	if f.corrupt {
		r[2] ^= 0xff
	}
	return nil
}

// ─── SCD41 ──────────────────────────────────────────────────────────

func TestCRC8(t *testing.T) {
	// Example from the Sensirion datasheet.
	if got := crc8([]byte{0xbe, 0xef}); got != 0x92 {
		t.Errorf("crc8(0xbeef) = 0x%02x, want 0x92", got)
	}
}

func TestDecodeMeasurement(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := decodeMeasurement([]uint16{0x01f4, 0x6667, 0x5eb9}, at)

	if r.CO2 != 500 {
		t.Errorf("CO2 = %d, want 500", r.CO2)
	}
	if r.Temperature < 24.9 || r.Temperature > 25.1 {
		t.Errorf("Temperature = %.2f, want ~25.0", r.Temperature)
	}
	if r.Humidity < 36.9 || r.Humidity > 37.1 {
		t.Errorf("Humidity = %.2f, want ~37.0", r.Humidity)
	}
	if !r.At.Equal(at) {
		t.Errorf("At = %v, want %v", r.At, at)
	}
}

func TestSCD41_ReadWaitsForDataReady(t *testing.T) {
	dev := &fakeSCD41{notReady: 2, sample: [3]uint16{0x01f4, 0x6667, 0x5eb9}}
	s := NewSCD41(dev, time.Millisecond)

	r, err := s.Read(context.Background())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if r.CO2 != 500 {
		t.Errorf("CO2 = %d, want 500", r.CO2)
	}

	polls := 0
	for _, c := range dev.commands {
		if c == scd41GetDataReady {
			polls++
		}
	}
	if polls != 3 {
		t.Errorf("data ready polls = %d, want 3", polls)
	}
}

func TestSCD41_ReadHonoursContext(t *testing.T) {
	dev := &fakeSCD41{notReady: 1 << 30}
	s := NewSCD41(dev, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Read(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Read() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestSCD41_ReadCRCMismatch(t *testing.T) {
	dev := &fakeSCD41{corrupt: true}
	s := NewSCD41(dev, time.Millisecond)

	if _, err := s.Read(context.Background()); !errors.Is(err, ErrCRCMismatch) {
		t.Errorf("Read() error = %v, want ErrCRCMismatch", err)
	}
}

func TestSCD41_Close(t *testing.T) {
	dev := &fakeSCD41{}
	s := NewSCD41(dev, time.Millisecond)

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := dev.commands[len(dev.commands)-1]; got != scd41StopPeriodic {
		t.Errorf("last command = 0x%04x, want stop periodic", got)
	}
	if _, err := s.Read(context.Background()); !errors.Is(err, ErrSensorClosed) {
		t.Errorf("Read() after Close error = %v, want ErrSensorClosed", err)
	}
}

// ─── Actuators ──────────────────────────────────────────────────────

func TestMemoryActuator(t *testing.T) {
	m := NewMemoryActuator(17, 27)

	if err := m.Activate(17); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if !m.Active(17) || m.Active(27) {
		t.Errorf("levels after Activate(17): 17=%v 27=%v", m.Active(17), m.Active(27))
	}

	fault := errors.New("relay board unplugged")
	m.SetFault(fault)
	if err := m.Deactivate(17); !errors.Is(err, fault) {
		t.Errorf("Deactivate() error = %v, want fault", err)
	}
	if !m.Active(17) {
		t.Error("failed Deactivate changed the level")
	}

	m.SetFault(nil)
	if err := m.Deactivate(17); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if got := m.CallCount(17); got != 2 {
		t.Errorf("CallCount(17) = %d, want 2", got)
	}
}

func TestGPIORelays_ActiveLow(t *testing.T) {
	fogger := &gpiotest.Pin{N: "GPIO17", Num: 17}
	fan := &gpiotest.Pin{N: "GPIO27", Num: 27}

	g, err := NewGPIORelays(map[int]gpio.PinOut{17: fogger, 27: fan}, true)
	if err != nil {
		t.Fatalf("NewGPIORelays() error = %v", err)
	}

	// Released relays sit HIGH on an active-low board.
	if fogger.Read() != gpio.High || fan.Read() != gpio.High {
		t.Fatal("pins not initialised HIGH")
	}

	if err := g.Activate(17); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if fogger.Read() != gpio.Low {
		t.Error("active pin not driven LOW")
	}

	if err := g.Deactivate(17); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if fogger.Read() != gpio.High {
		t.Error("released pin not driven HIGH")
	}
}

func TestGPIORelays_ActiveHigh(t *testing.T) {
	p := &gpiotest.Pin{N: "GPIO5", Num: 5}

	g, err := NewGPIORelays(map[int]gpio.PinOut{5: p}, false)
	if err != nil {
		t.Fatalf("NewGPIORelays() error = %v", err)
	}
	if err := g.Activate(5); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if p.Read() != gpio.High {
		t.Error("active pin not driven HIGH")
	}
	if err := g.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if p.Read() != gpio.Low {
		t.Error("Close() left relay energised")
	}
}

func TestGPIORelays_UnknownPin(t *testing.T) {
	g, err := NewGPIORelays(map[int]gpio.PinOut{}, true)
	if err != nil {
		t.Fatalf("NewGPIORelays() error = %v", err)
	}
	if err := g.Activate(4); !errors.Is(err, ErrUnknownPin) {
		t.Errorf("Activate(4) error = %v, want ErrUnknownPin", err)
	}
}

// ─── Simulated sensor ───────────────────────────────────────────────

func TestSimulatedSensor_FollowsFogger(t *testing.T) {
	act := NewMemoryActuator(17)
	s := NewSimulatedSensor(0, 90, act, 17)
	ctx := context.Background()

	r1, _ := s.Read(ctx)
	r2, _ := s.Read(ctx)
	if r2.Humidity >= r1.Humidity {
		t.Errorf("humidity should fall with fogger off: %.1f -> %.1f", r1.Humidity, r2.Humidity)
	}

	_ = act.Activate(17)
	_, _ = s.Read(ctx)
	r4, _ := s.Read(ctx)
	r5, _ := s.Read(ctx)
	if r5.Humidity <= r4.Humidity {
		t.Errorf("humidity should rise with fogger on: %.1f -> %.1f", r4.Humidity, r5.Humidity)
	}

	s.Set(42)
	if r, _ := s.Read(ctx); r.Humidity != 42 {
		t.Errorf("Humidity after Set = %.1f, want 42", r.Humidity)
	}
}

func TestSimulatedSensor_ReadHonoursContext(t *testing.T) {
	s := NewSimulatedSensor(time.Hour, 90, nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Read(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Read() error = %v, want context.Canceled", err)
	}
}
