package hal

import (
	"context"
	"math"
	"sync"
	"time"
)

// Reading is one environment sample.
type Reading struct {
	CO2         uint16    `json:"co2_ppm"`
	Temperature float64   `json:"temperature_c"`
	Humidity    float64   `json:"humidity_pct"`
	At          time.Time `json:"timestamp"`
}

// Sensor returns fresh environment readings.
//
// Read blocks until a sample newer than the previous one is available or
// ctx is done. Implementations must be safe for concurrent use; concurrent
// callers may receive the same or successive samples.
type Sensor interface {
	Read(ctx context.Context) (Reading, error)
}

// SimulatedSensor produces readings that respond to the fogger relay.
//
// Humidity rises while the fogger pin is active and falls otherwise, which
// is enough to watch the humidity triggers cycle the fogger off-device.
type SimulatedSensor struct {
	mu       sync.Mutex
	interval time.Duration
	actuator *MemoryActuator
	pin      int
	humidity float64
	rise     float64
	fall     float64
	now      func() time.Time
}

// NewSimulatedSensor returns a sensor sampling every interval, starting at
// startHumidity. When actuator is non-nil, the fogger pin drives the drift.
func NewSimulatedSensor(interval time.Duration, startHumidity float64, actuator *MemoryActuator, foggerPin int) *SimulatedSensor {
	return &SimulatedSensor{
		interval: interval,
		actuator: actuator,
		pin:      foggerPin,
		humidity: startHumidity,
		rise:     1.5,
		fall:     0.8,
		now:      time.Now,
	}
}

// Set forces the next reading's humidity.
func (s *SimulatedSensor) Set(humidity float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.humidity = humidity
}

// Read waits one sampling interval and returns the next sample.
func (s *SimulatedSensor) Read(ctx context.Context) (Reading, error) {
	if s.interval > 0 {
		t := time.NewTimer(s.interval)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return Reading{}, ctx.Err()
		case <-t.C:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.humidity
	if s.actuator != nil {
		if s.actuator.Active(s.pin) {
			s.humidity = math.Min(100, s.humidity+s.rise)
		} else {
			s.humidity = math.Max(40, s.humidity-s.fall)
		}
	}

	return Reading{
		CO2:         850,
		Temperature: 21.5,
		Humidity:    h,
		At:          s.now(),
	}, nil
}
