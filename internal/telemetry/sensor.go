package telemetry

import (
	"context"
	"sync"

	"github.com/sporehut/sporehut-core/internal/hal"
	"github.com/sporehut/sporehut-core/internal/infrastructure/metrics"
)

// Logger defines the logging interface used by the telemetry package.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ReadingObserver receives every successful sensor reading.
// ObserveReading runs on the reader's goroutine and must not block.
type ReadingObserver interface {
	ObserveReading(sensor string, r hal.Reading)
}

// ReadingObserverFunc adapts a function to ReadingObserver.
type ReadingObserverFunc func(sensor string, r hal.Reading)

// ObserveReading calls f(sensor, r).
func (f ReadingObserverFunc) ObserveReading(sensor string, r hal.Reading) { f(sensor, r) }

// Sensor wraps a hal.Sensor and records each reading it returns.
type Sensor struct {
	name      string
	inner     hal.Sensor
	metrics   *metrics.Metrics
	observers []ReadingObserver
	logger    Logger

	mu     sync.RWMutex
	latest hal.Reading
	seen   bool
}

// NewSensor decorates inner. The name labels every metric and point.
func NewSensor(name string, inner hal.Sensor) *Sensor {
	return &Sensor{name: name, inner: inner, logger: noopLogger{}}
}

// SetMetrics sets the metrics sink.
func (s *Sensor) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SetLogger sets the logger used when an observer panics.
func (s *Sensor) SetLogger(logger Logger) {
	s.logger = logger
}

// AddObserver registers an observer. It must be called before the first
// Read.
func (s *Sensor) AddObserver(obs ReadingObserver) {
	s.observers = append(s.observers, obs)
}

// Name returns the sensor label.
func (s *Sensor) Name() string {
	return s.name
}

// Read implements hal.Sensor.
func (s *Sensor) Read(ctx context.Context) (hal.Reading, error) {
	r, err := s.inner.Read(ctx)
	if err != nil {
		return r, err
	}

	s.mu.Lock()
	s.latest, s.seen = r, true
	s.mu.Unlock()

	s.metrics.SensorReading(s.name, r.CO2, r.Temperature, r.Humidity)
	for _, obs := range s.observers {
		s.notify(obs, r)
	}
	return r, nil
}

func (s *Sensor) notify(obs ReadingObserver, r hal.Reading) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("reading observer panicked", "sensor", s.name, "panic", p)
		}
	}()
	obs.ObserveReading(s.name, r)
}

// Latest returns the most recent reading, if any read has succeeded.
func (s *Sensor) Latest() (hal.Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.seen
}
