package automation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sporehut/sporehut-core/internal/hal"
)

// ─── Mock Dependencies ─────────────────────────────────────────────

// fakeSensor returns a fixed humidity, or err when set.
type fakeSensor struct {
	mu       sync.Mutex
	humidity float64
	err      error
	reads    int
}

func (f *fakeSensor) Read(_ context.Context) (hal.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return hal.Reading{}, f.err
	}
	return hal.Reading{Humidity: f.humidity, At: time.Now()}, nil
}

func (f *fakeSensor) Set(h float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.humidity = h
}

// recordingDispatcher records commands as "enable:ID" / "disable:ID".
type recordingDispatcher struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (r *recordingDispatcher) Enable(_ context.Context, id string) error {
	return r.record("enable:" + id)
}

func (r *recordingDispatcher) Disable(_ context.Context, id string) error {
	return r.record("disable:" + id)
}

func (r *recordingDispatcher) record(s string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, s)
	return r.err
}

func (r *recordingDispatcher) Sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	copy(out, r.sent)
	return out
}

// mockHub records broadcasts.
type mockHub struct {
	mu       sync.Mutex
	channels []string
}

func (h *mockHub) Broadcast(channel string, _ any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.channels = append(h.channels, channel)
}

func (h *mockHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.channels)
}

// ─── Helpers ────────────────────────────────────────────────────────

func runEngine(t *testing.T, e *Engine) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("engine did not stop")
		}
	})
	return cancel
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// ─── Humidity triggers ─────────────────────────────────────────────

func TestHumidityTriggers_Conditions(t *testing.T) {
	tests := []struct {
		name     string
		humidity float64
		wantLow  bool
		wantHigh bool
	}{
		{"dry", 85, true, false},
		{"at low threshold", 90, false, false},
		{"in band", 94, false, false},
		{"at high threshold", 98, false, false},
		{"saturated", 99, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sensor := &fakeSensor{humidity: tt.humidity}
			d := &recordingDispatcher{}
			low := LowHumidity(sensor, 90, d, "FOGGER", "FOGGER_FAN")
			high := HighHumidity(sensor, 98, d, "FOGGER", "FOGGER_FAN")

			gotLow, err := low.Condition(context.Background())
			if err != nil {
				t.Fatalf("low condition error = %v", err)
			}
			gotHigh, err := high.Condition(context.Background())
			if err != nil {
				t.Fatalf("high condition error = %v", err)
			}
			if gotLow != tt.wantLow || gotHigh != tt.wantHigh {
				t.Errorf("low/high = %v/%v, want %v/%v", gotLow, gotHigh, tt.wantLow, tt.wantHigh)
			}
		})
	}
}

func TestHumidityTriggers_ActionsInOrder(t *testing.T) {
	sensor := &fakeSensor{}
	d := &recordingDispatcher{}
	triggers, err := HumidityTriggers(DefaultHumidityConfig(), sensor, func(string) Dispatcher { return d })
	if err != nil {
		t.Fatalf("HumidityTriggers() error = %v", err)
	}
	if len(triggers) != 2 || triggers[0].ID != LowHumidityID || triggers[1].ID != HighHumidityID {
		t.Fatalf("triggers = %+v", triggers)
	}

	for _, tr := range triggers {
		for _, a := range tr.Actions {
			if err := a(context.Background()); err != nil {
				t.Fatalf("action error = %v", err)
			}
		}
	}

	want := []string{"enable:FOGGER", "enable:FOGGER_FAN", "disable:FOGGER", "disable:FOGGER_FAN"}
	got := d.Sent()
	if len(got) != len(want) {
		t.Fatalf("sent = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sent[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHumidityConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		low, high float64
		wantErr   bool
	}{
		{"defaults", 90, 98, false},
		{"equal", 95, 95, true},
		{"inverted", 98, 90, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultHumidityConfig()
			cfg.Low, cfg.High = tt.low, tt.high
			_, err := HumidityTriggers(cfg, &fakeSensor{}, func(string) Dispatcher { return &recordingDispatcher{} })
			if tt.wantErr && !errors.Is(err, ErrInvalidThresholds) {
				t.Errorf("error = %v, want ErrInvalidThresholds", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("error = %v, want nil", err)
			}
		})
	}
}

func TestHumidityTrigger_SensorError(t *testing.T) {
	sensor := &fakeSensor{err: errors.New("i2c nak")}
	low := LowHumidity(sensor, 90, &recordingDispatcher{}, "FOGGER")

	ok, err := low.Condition(context.Background())
	if err == nil || ok {
		t.Errorf("Condition() = %v, %v; want false and an error", ok, err)
	}
}

// ─── Engine ─────────────────────────────────────────────────────────

func TestEngine_Register(t *testing.T) {
	e := NewEngine(time.Second, nil)
	always := func(context.Context) (bool, error) { return true, nil }

	if err := e.Register(Trigger{ID: "a", Condition: always}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := e.Register(Trigger{ID: "a", Condition: always}); !errors.Is(err, ErrTriggerExists) {
		t.Errorf("duplicate Register() error = %v, want ErrTriggerExists", err)
	}
	if err := e.Register(Trigger{ID: "b"}); !errors.Is(err, ErrInvalidTrigger) {
		t.Errorf("Register(no condition) error = %v, want ErrInvalidTrigger", err)
	}
	if err := e.Register(Trigger{Condition: always}); !errors.Is(err, ErrInvalidTrigger) {
		t.Errorf("Register(no id) error = %v, want ErrInvalidTrigger", err)
	}
}

func TestEngine_DefaultPeriod(t *testing.T) {
	if got := NewEngine(0, nil).Period(); got != DefaultPeriod {
		t.Errorf("Period() = %v, want %v", got, DefaultPeriod)
	}
}

func TestEngine_EvaluatesPeriodically(t *testing.T) {
	e := NewEngine(10*time.Millisecond, nil)
	sensor := &fakeSensor{humidity: 85}
	d := &recordingDispatcher{}
	hub := &mockHub{}
	e.SetHub(hub)

	if err := e.Register(LowHumidity(sensor, 90, d, "FOGGER", "FOGGER_FAN")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	runEngine(t, e)

	waitFor(t, "three firings", func() bool { return len(d.Sent()) >= 6 })

	sent := d.Sent()
	for i := 0; i+1 < len(sent); i += 2 {
		if sent[i] != "enable:FOGGER" || sent[i+1] != "enable:FOGGER_FAN" {
			t.Fatalf("firing %d sent %v", i/2, sent[i:i+2])
		}
	}
	if hub.count() == 0 {
		t.Error("no trigger.fired broadcast")
	}

	status := e.Status()
	if len(status) != 1 || status[0].FireCount == 0 || status[0].LastResult != "fired" {
		t.Errorf("status = %+v", status)
	}
}

func TestEngine_FailingTriggerIsIsolated(t *testing.T) {
	e := NewEngine(5*time.Millisecond, nil)
	d := &recordingDispatcher{}

	var panics atomic.Int32
	broken := Trigger{
		ID: "broken",
		Condition: func(context.Context) (bool, error) {
			return false, errors.New("sensor unplugged")
		},
	}
	panicky := Trigger{
		ID: "panicky",
		Condition: func(context.Context) (bool, error) {
			panics.Add(1)
			panic("boom")
		},
	}
	healthy := LowHumidity(&fakeSensor{humidity: 50}, 90, d, "FOGGER")

	for _, tr := range []Trigger{broken, panicky, healthy} {
		if err := e.Register(tr); err != nil {
			t.Fatalf("Register(%s) error = %v", tr.ID, err)
		}
	}
	runEngine(t, e)

	waitFor(t, "healthy trigger to keep firing", func() bool { return len(d.Sent()) >= 3 })
	waitFor(t, "panicking trigger to be re-evaluated", func() bool { return panics.Load() >= 2 })

	for _, s := range e.Status() {
		switch s.ID {
		case "broken":
			if s.LastResult != "error" || s.LastError == "" {
				t.Errorf("broken status = %+v", s)
			}
		case "panicky":
			if s.LastResult != "panic" {
				t.Errorf("panicky status = %+v", s)
			}
		}
	}
}

func TestEngine_ActionErrorsDoNotStopLaterActions(t *testing.T) {
	e := NewEngine(time.Hour, nil)
	d := &recordingDispatcher{err: errors.New("channel full")}

	if err := e.Register(LowHumidity(&fakeSensor{humidity: 10}, 90, d, "FOGGER", "FOGGER_FAN")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	runEngine(t, e)

	waitFor(t, "both actions", func() bool { return len(d.Sent()) == 2 })
}

func TestEngine_ShutdownReleasesBlockedCondition(t *testing.T) {
	e := NewEngine(time.Hour, nil)
	entered := make(chan struct{})
	blocking := Trigger{
		ID: "blocking",
		Condition: func(ctx context.Context) (bool, error) {
			close(entered)
			<-ctx.Done()
			return false, ctx.Err()
		},
	}
	if err := e.Register(blocking); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	<-entered
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	if s := e.Status()[0]; s.LastResult != "" {
		t.Errorf("cancelled evaluation recorded as %q", s.LastResult)
	}
}

func TestEngine_RegisterAfterRun(t *testing.T) {
	e := NewEngine(time.Hour, nil)
	runEngine(t, e)

	waitFor(t, "engine start", func() bool { return e.running.Load() })
	err := e.Register(Trigger{ID: "late", Condition: func(context.Context) (bool, error) { return false, nil }})
	if !errors.Is(err, ErrEngineRunning) {
		t.Errorf("Register() error = %v, want ErrEngineRunning", err)
	}
}

func TestEngine_Advance(t *testing.T) {
	e := NewEngine(5*time.Second, nil)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"on time", base.Add(time.Second), base.Add(5 * time.Second)},
		{"exactly at next slot", base.Add(5 * time.Second), base.Add(10 * time.Second)},
		{"one slot missed", base.Add(7 * time.Second), base.Add(10 * time.Second)},
		{"several slots missed", base.Add(23 * time.Second), base.Add(25 * time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.advance(base, tt.now); !got.Equal(tt.want) {
				t.Errorf("advance() = %v, want %v", got.Sub(base), tt.want.Sub(base))
			}
		})
	}
}
