package controller

import (
	"context"
	"time"

	"github.com/sporehut/sporehut-core/internal/device"
	"github.com/sporehut/sporehut-core/internal/infrastructure/metrics"
)

// Event describes one processed device command.
//
// Before and After are equal when the command failed or when an enable or
// disable found the device already in the wanted state.
type Event struct {
	EnvelopeID string
	Command    string
	DeviceID   string
	Source     string
	Before     device.Record
	After      device.Record
	Err        error
	At         time.Time
}

// Changed reports whether the device state changed.
func (e Event) Changed() bool {
	return e.Err == nil && e.Before.State != e.After.State
}

// Observer receives events from the owner goroutine.
//
// Observe must not block. Anything doing I/O should be wrapped in an
// AsyncObserver.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f(ev).
func (f ObserverFunc) Observe(ev Event) { f(ev) }

// AsyncObserver hands events to a slower observer through a bounded buffer.
// When the buffer is full the event is dropped and counted.
type AsyncObserver struct {
	name    string
	next    Observer
	events  chan Event
	logger  Logger
	metrics *metrics.Metrics
}

// NewAsyncObserver wraps next. Call Run to start delivery.
func NewAsyncObserver(name string, next Observer, buffer int) *AsyncObserver {
	if buffer < 1 {
		buffer = 1
	}
	return &AsyncObserver{
		name:   name,
		next:   next,
		events: make(chan Event, buffer),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger used for dropped events.
func (a *AsyncObserver) SetLogger(logger Logger) {
	a.logger = logger
}

// SetMetrics sets the metrics sink.
func (a *AsyncObserver) SetMetrics(m *metrics.Metrics) {
	a.metrics = m
}

// Observe queues ev without blocking.
func (a *AsyncObserver) Observe(ev Event) {
	select {
	case a.events <- ev:
	default:
		a.metrics.ObserverDropped(a.name)
		a.logger.Warn("observer buffer full, event dropped",
			"observer", a.name,
			"device_id", ev.DeviceID,
			"command", ev.Command,
		)
	}
}

// Run delivers queued events until ctx is cancelled, then flushes what is
// already buffered.
func (a *AsyncObserver) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case ev := <-a.events:
					a.deliver(ev)
				default:
					return nil
				}
			}
		case ev := <-a.events:
			a.deliver(ev)
		}
	}
}

func (a *AsyncObserver) deliver(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("observer panicked", "observer", a.name, "panic", r)
		}
	}()
	a.next.Observe(ev)
}
