package automation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sporehut/sporehut-core/internal/infrastructure/metrics"
)

// DefaultPeriod is the trigger evaluation period.
const DefaultPeriod = 5 * time.Second

// Logger defines the logging interface used by the engine.
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

// WSHub is the interface for broadcasting WebSocket events.
type WSHub interface {
	// Broadcast sends an event to all clients subscribed to the given channel.
	Broadcast(channel string, payload any)
}

// TriggerFiredEvent is broadcast on the "trigger.fired" channel.
type TriggerFiredEvent struct {
	TriggerID string    `json:"trigger_id"`
	Actions   int       `json:"actions"`
	Failed    int       `json:"failed"`
	FiredAt   time.Time `json:"fired_at"`
}

// Engine evaluates registered triggers on a fixed period.
//
// Each trigger runs in its own goroutine with its own schedule, so a
// trigger whose condition blocks on a slow sensor does not delay the
// others. A failing or panicking condition is logged and counted; it never
// stops its own schedule or any other trigger.
//
// Thread Safety: Register must be called before Run. Status is safe for
// concurrent use.
type Engine struct {
	period   time.Duration
	triggers []Trigger
	ids      map[string]bool
	logger   Logger
	metrics  *metrics.Metrics
	hub      WSHub
	now      func() time.Time
	running  atomic.Bool

	statusMu sync.RWMutex
	status   map[string]*Status
}

// NewEngine creates an engine evaluating triggers every period.
// A non-positive period selects DefaultPeriod.
func NewEngine(period time.Duration, logger Logger) *Engine {
	if period <= 0 {
		period = DefaultPeriod
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		period: period,
		ids:    make(map[string]bool),
		logger: logger,
		now:    time.Now,
		status: make(map[string]*Status),
	}
}

// SetMetrics sets the metrics sink.
func (e *Engine) SetMetrics(m *metrics.Metrics) {
	e.metrics = m
}

// SetHub sets the WebSocket hub for trigger.fired events.
func (e *Engine) SetHub(hub WSHub) {
	e.hub = hub
}

// Period returns the evaluation period.
func (e *Engine) Period() time.Duration {
	return e.period
}

// Register adds a trigger.
//
// Returns ErrInvalidTrigger, ErrTriggerExists, or ErrEngineRunning.
func (e *Engine) Register(t Trigger) error {
	if e.running.Load() {
		return ErrEngineRunning
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if e.ids[t.ID] {
		return fmt.Errorf("%w: %s", ErrTriggerExists, t.ID)
	}
	e.ids[t.ID] = true
	e.triggers = append(e.triggers, t)

	e.statusMu.Lock()
	e.status[t.ID] = &Status{ID: t.ID}
	e.statusMu.Unlock()
	return nil
}

// Run evaluates every trigger until ctx is cancelled, then waits for all
// trigger loops to exit. A condition blocked inside a sensor read is
// released through the same ctx.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrEngineRunning
	}

	e.logger.Info("trigger engine started",
		"triggers", len(e.triggers),
		"period", e.period.String(),
	)

	var wg sync.WaitGroup
	for _, t := range e.triggers {
		wg.Add(1)
		go func(t Trigger) {
			defer wg.Done()
			e.loop(ctx, t)
		}(t)
	}

	<-ctx.Done()
	wg.Wait()

	e.logger.Info("trigger engine stopped")
	return nil
}

// loop keeps an explicit next-check time. The first check is immediate;
// each following one is one period after the previous slot, and slots
// missed while a condition blocked are skipped rather than replayed.
func (e *Engine) loop(ctx context.Context, t Trigger) {
	next := e.now()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		e.setNextCheck(t.ID, next)

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		e.evaluate(ctx, t)
		if ctx.Err() != nil {
			return
		}

		next = e.advance(next, e.now())
		timer.Reset(next.Sub(e.now()))
	}
}

// advance returns the first slot after now, stepping from prev by period.
func (e *Engine) advance(prev, now time.Time) time.Time {
	next := prev.Add(e.period)
	if !next.After(now) {
		missed := now.Sub(next)/e.period + 1
		next = next.Add(missed * e.period)
	}
	return next
}

func (e *Engine) evaluate(ctx context.Context, t Trigger) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("trigger panicked", "trigger", t.ID, "panic", r)
			e.metrics.TriggerEvaluated(t.ID, metrics.ResultPanic)
			e.record(t.ID, metrics.ResultPanic, fmt.Errorf("panic: %v", r))
		}
	}()

	ok, err := t.Condition(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		e.logger.Warn("trigger condition failed", "trigger", t.ID, "error", err)
		e.metrics.TriggerEvaluated(t.ID, metrics.ResultError)
		e.record(t.ID, metrics.ResultError, err)
		return
	}
	if !ok {
		e.metrics.TriggerEvaluated(t.ID, metrics.ResultIdle)
		e.record(t.ID, metrics.ResultIdle, nil)
		return
	}

	failed := 0
	for i, action := range t.Actions {
		if err := action(ctx); err != nil {
			failed++
			e.logger.Warn("trigger action failed",
				"trigger", t.ID,
				"action", i,
				"error", err,
			)
		}
	}

	e.logger.Info("trigger fired", "trigger", t.ID, "actions", len(t.Actions), "failed", failed)
	e.metrics.TriggerEvaluated(t.ID, metrics.ResultFired)
	e.record(t.ID, metrics.ResultFired, nil)

	if e.hub != nil {
		e.hub.Broadcast("trigger.fired", TriggerFiredEvent{
			TriggerID: t.ID,
			Actions:   len(t.Actions),
			Failed:    failed,
			FiredAt:   e.now().UTC(),
		})
	}
}

func (e *Engine) record(id, result string, err error) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()

	s := e.status[id]
	s.LastEvaluated = e.now()
	s.LastResult = result
	s.LastError = ""
	if err != nil {
		s.LastError = err.Error()
	}
	if result == metrics.ResultFired {
		s.FireCount++
	}
}

func (e *Engine) setNextCheck(id string, next time.Time) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	e.status[id].NextCheck = next
}

// Status returns a copy of every trigger's status in registration order.
func (e *Engine) Status() []Status {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()

	out := make([]Status, 0, len(e.triggers))
	for _, t := range e.triggers {
		out = append(out, *e.status[t.ID])
	}
	return out
}
