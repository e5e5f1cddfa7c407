package audit

import (
	"context"
	"time"

	"github.com/sporehut/sporehut-core/internal/controller"
)

// Logger defines the logging interface used by the audit package.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// writeTimeout bounds a single audit insert.
const writeTimeout = 5 * time.Second

// Recorder turns controller events into audit entries.
//
// Observe performs a database write, so the owner must see it through a
// controller.AsyncObserver.
type Recorder struct {
	repo   Repository
	logger Logger
}

// NewRecorder creates a recorder writing to repo.
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo, logger: noopLogger{}}
}

// SetLogger sets the logger used for failed writes.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// Observe implements controller.Observer.
func (r *Recorder) Observe(ev controller.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	entry := EntryFromEvent(ev)
	if err := r.repo.Create(ctx, &entry); err != nil {
		r.logger.Error("failed to record audit entry",
			"device_id", ev.DeviceID,
			"command", ev.Command,
			"error", err,
		)
	}
}

// EntryFromEvent converts a controller event into an audit entry.
func EntryFromEvent(ev controller.Event) Entry {
	e := Entry{
		EnvelopeID:  ev.EnvelopeID,
		Command:     ev.Command,
		DeviceID:    ev.DeviceID,
		Source:      ev.Source,
		Outcome:     controller.Outcome(ev.Err),
		StateBefore: string(ev.Before.State),
		StateAfter:  string(ev.After.State),
		CreatedAt:   ev.At,
	}
	if ev.Err != nil {
		e.Error = ev.Err.Error()
	}
	return e
}

// Pruner deletes entries older than the retention window.
type Pruner struct {
	repo      Repository
	retention time.Duration
	interval  time.Duration
	logger    Logger
	now       func() time.Time
}

// NewPruner creates a pruner keeping retention worth of entries and
// running every interval.
func NewPruner(repo Repository, retention, interval time.Duration) *Pruner {
	return &Pruner{
		repo:      repo,
		retention: retention,
		interval:  interval,
		logger:    noopLogger{},
		now:       time.Now,
	}
}

// SetLogger sets the logger for the pruner.
func (p *Pruner) SetLogger(logger Logger) {
	p.logger = logger
}

// PruneOnce deletes expired entries and returns how many were removed.
func (p *Pruner) PruneOnce(ctx context.Context) (int64, error) {
	return p.repo.Prune(ctx, p.now().Add(-p.retention))
}

// Run prunes once immediately and then every interval until ctx is
// cancelled. Failures are logged and retried on the next tick.
func (p *Pruner) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		n, err := p.PruneOnce(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			p.logger.Warn("audit prune failed", "error", err)
		case n > 0:
			p.logger.Info("audit entries pruned", "count", n, "retention", p.retention.String())
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
