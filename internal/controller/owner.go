package controller

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sporehut/sporehut-core/internal/device"
	"github.com/sporehut/sporehut-core/internal/hal"
	"github.com/sporehut/sporehut-core/internal/infrastructure/metrics"
)

// Logger defines the logging interface used by the controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Owner is the single goroutine that owns the device registry.
//
// Every read and write of the registry, and every relay write, happens
// inside Run, one envelope at a time, in the order envelopes were
// dequeued. Callers never touch the registry directly; they send commands
// through the Queue.
type Owner struct {
	registry  *device.Registry
	actuator  hal.Actuator
	queue     *Queue
	observers []Observer
	logger    Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	running   atomic.Bool
}

// NewOwner creates an owner for registry, driving relays through actuator
// and draining queue.
func NewOwner(registry *device.Registry, actuator hal.Actuator, queue *Queue) *Owner {
	return &Owner{
		registry: registry,
		actuator: actuator,
		queue:    queue,
		logger:   noopLogger{},
		now:      time.Now,
	}
}

// SetLogger sets the logger for the owner.
func (o *Owner) SetLogger(logger Logger) {
	o.logger = logger
}

// SetMetrics sets the metrics sink.
func (o *Owner) SetMetrics(m *metrics.Metrics) {
	o.metrics = m
}

// AddObserver registers an observer for device events. It must be called
// before Run.
func (o *Owner) AddObserver(obs Observer) {
	o.observers = append(o.observers, obs)
}

// Sync drives every relay to the state held in the registry. It must be
// called before Run.
func (o *Owner) Sync() error {
	for _, rec := range o.registry.Snapshot() {
		if err := o.drive(rec); err != nil {
			return fmt.Errorf("%w: initialising %s pin %d: %w", ErrActuatorFault, rec.ID, rec.Pin, err)
		}
		o.metrics.ActuatorWrite(rec.ID, rec.State.IsOn())
	}
	return nil
}

// Run processes envelopes until ctx is cancelled.
//
// It returns nil on shutdown and an error wrapping ErrActuatorFault when a
// relay write fails; the caller should treat that as fatal. Envelopes still
// queued when Run exits are answered with ErrOwnerStopped.
func (o *Owner) Run(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer o.drain()

	o.logger.Info("device owner started",
		"devices", o.registry.Len(),
		"queue_capacity", o.queue.Cap(),
	)

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("device owner stopped")
			return nil
		case env := <-o.queue.C():
			if err := o.handle(env); err != nil {
				o.logger.Error("device owner stopping on actuator fault", "error", err)
				return err
			}
		}
	}
}

// drain marks the queue stopped and fails whatever is left in it.
func (o *Owner) drain() {
	o.queue.markStopped()
	for {
		select {
		case env := <-o.queue.C():
			o.respond(env, Reply{Err: ErrOwnerStopped})
		default:
			return
		}
	}
}

// handle processes one envelope. The returned error is fatal.
func (o *Owner) handle(env Envelope) error {
	start := o.now()
	name := commandName(env.Command)

	var (
		reply Reply
		fatal error
	)

	switch cmd := env.Command.(type) {
	case GetAllDeviceConfigs:
		reply.Devices = o.registry.Snapshot()
	case ToggleDevice:
		reply, fatal = o.apply(env, cmd.DeviceID, device.Record.Toggled)
	case EnableDevice:
		reply, fatal = o.apply(env, cmd.DeviceID, device.Record.Enabled)
	case DisableDevice:
		reply, fatal = o.apply(env, cmd.DeviceID, device.Record.Disabled)
	default:
		reply.Err = fmt.Errorf("%w: %T", ErrUnsupportedCommand, env.Command)
	}

	o.metrics.ObserveCommand(name, Outcome(reply.Err), o.now().Sub(start))
	o.metrics.SetQueueDepth(o.queue.Len())

	if reply.Err != nil && env.Reply == nil {
		o.logger.Warn("command failed",
			"command", name,
			"source", env.Source,
			"envelope_id", env.ID,
			"error", reply.Err,
		)
	}

	o.respond(env, reply)
	return fatal
}

// apply runs one state transition. The registry is only updated after the
// relay write succeeded.
func (o *Owner) apply(env Envelope, id string, transition device.Transition) (Reply, error) {
	ev := Event{
		EnvelopeID: env.ID,
		Command:    commandName(env.Command),
		DeviceID:   id,
		Source:     env.Source,
		At:         o.now(),
	}

	cur, err := o.registry.Get(id)
	if err != nil {
		ev.Err = fmt.Errorf("%w: %q", ErrUnknownDevice, id)
		o.emit(ev)
		return Reply{Err: ev.Err}, nil
	}
	ev.Before, ev.After = cur, cur

	next := transition(cur)
	if err := o.drive(next); err != nil {
		ev.Err = fmt.Errorf("%w: %s pin %d: %w", ErrActuatorFault, id, next.Pin, err)
		o.emit(ev)
		return Reply{Device: cur, Err: ev.Err}, ev.Err
	}
	o.metrics.ActuatorWrite(id, next.State.IsOn())

	if err := o.registry.Put(next); err != nil {
		ev.Err = err
		o.emit(ev)
		return Reply{Device: cur, Err: err}, nil
	}

	ev.After = next
	o.emit(ev)

	o.logger.Debug("device updated",
		"device_id", id,
		"command", ev.Command,
		"source", env.Source,
		"state", next.State,
	)

	return Reply{Device: next}, nil
}

func (o *Owner) drive(rec device.Record) error {
	if rec.State.IsOn() {
		return o.actuator.Activate(rec.Pin)
	}
	return o.actuator.Deactivate(rec.Pin)
}

// respond never blocks: a caller that gave up simply misses the reply.
func (o *Owner) respond(env Envelope, reply Reply) {
	if env.Reply == nil {
		return
	}
	select {
	case env.Reply <- reply:
	default:
		o.logger.Debug("reply dropped, caller gone",
			"command", commandName(env.Command),
			"envelope_id", env.ID,
		)
	}
}

func (o *Owner) emit(ev Event) {
	for _, obs := range o.observers {
		o.notify(obs, ev)
	}
}

func (o *Owner) notify(obs Observer, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("observer panicked", "device_id", ev.DeviceID, "panic", r)
		}
	}()
	obs.Observe(ev)
}

// Outcome maps a command error to a short label used by metrics and the
// audit trail.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnknownDevice):
		return "unknown_device"
	case errors.Is(err, ErrActuatorFault):
		return "actuator_fault"
	default:
		return "error"
	}
}
