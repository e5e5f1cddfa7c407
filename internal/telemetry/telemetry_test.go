package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sporehut/sporehut-core/internal/automation"
	"github.com/sporehut/sporehut-core/internal/controller"
	"github.com/sporehut/sporehut-core/internal/device"
	"github.com/sporehut/sporehut-core/internal/hal"
	"github.com/sporehut/sporehut-core/internal/infrastructure/metrics"
)

// ─── Mock Dependencies ──────────────────────────────────────────────

type fakeSensor struct {
	reading hal.Reading
	err     error
	reads   int
}

func (f *fakeSensor) Read(context.Context) (hal.Reading, error) {
	f.reads++
	return f.reading, f.err
}

type fakeWriter struct {
	states   []string
	envs     []float64
	triggers []string
}

func (f *fakeWriter) WriteDeviceState(id string, on bool, source string, _ time.Time) {
	state := "off"
	if on {
		state = "on"
	}
	f.states = append(f.states, id+"="+state+"@"+source)
}

func (f *fakeWriter) WriteEnvironment(_ string, _ uint16, _, humidity float64, _ time.Time) {
	f.envs = append(f.envs, humidity)
}

func (f *fakeWriter) WriteTriggerFired(id string, _ time.Time) {
	f.triggers = append(f.triggers, id)
}

type recordingHub struct {
	channels []string
}

func (h *recordingHub) Broadcast(channel string, _ any) {
	h.channels = append(h.channels, channel)
}

type countingLogger struct {
	noopLogger
	errors int
}

func (l *countingLogger) Error(string, ...any) { l.errors++ }

func gaugeValue(t *testing.T, reg *prometheus.Registry, name, sensor string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "sensor" && lp.GetValue() == sensor {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{sensor=%q} not found", name, sensor)
	return 0
}

// ─── Sensor ─────────────────────────────────────────────────────────

func TestSensor_RecordsReading(t *testing.T) {
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	inner := &fakeSensor{reading: hal.Reading{CO2: 900, Temperature: 22.5, Humidity: 91.5, At: at}}
	m := metrics.New()
	w := &fakeWriter{}

	s := NewSensor("scd41", inner)
	s.SetMetrics(m)
	s.AddObserver(NewInflux(w))

	if _, ok := s.Latest(); ok {
		t.Error("Latest() ok before any read")
	}

	r, err := s.Read(context.Background())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if r.Humidity != 91.5 {
		t.Errorf("Humidity = %v, want 91.5", r.Humidity)
	}

	latest, ok := s.Latest()
	if !ok || latest != r {
		t.Errorf("Latest() = %+v, %v", latest, ok)
	}
	if len(w.envs) != 1 || w.envs[0] != 91.5 {
		t.Errorf("influx envs = %v", w.envs)
	}
	if got := gaugeValue(t, m.Registry(), "sporehut_sensor_humidity_percent", "scd41"); got != 91.5 {
		t.Errorf("humidity gauge = %v, want 91.5", got)
	}
	if got := gaugeValue(t, m.Registry(), "sporehut_sensor_co2_ppm", "scd41"); got != 900 {
		t.Errorf("co2 gauge = %v, want 900", got)
	}
}

func TestSensor_ErrorNotRecorded(t *testing.T) {
	inner := &fakeSensor{err: hal.ErrCRCMismatch}
	w := &fakeWriter{}

	s := NewSensor("scd41", inner)
	s.AddObserver(NewInflux(w))

	if _, err := s.Read(context.Background()); !errors.Is(err, hal.ErrCRCMismatch) {
		t.Errorf("Read() error = %v, want ErrCRCMismatch", err)
	}
	if _, ok := s.Latest(); ok {
		t.Error("Latest() ok after failed read")
	}
	if len(w.envs) != 0 {
		t.Errorf("influx envs = %v, want none", w.envs)
	}
}

func TestSensor_ObserverPanicRecovered(t *testing.T) {
	logger := &countingLogger{}
	s := NewSensor("sim", &fakeSensor{reading: hal.Reading{Humidity: 50}})
	s.SetLogger(logger)

	var after int
	s.AddObserver(ReadingObserverFunc(func(string, hal.Reading) { panic("boom") }))
	s.AddObserver(ReadingObserverFunc(func(string, hal.Reading) { after++ }))

	if _, err := s.Read(context.Background()); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if logger.errors != 1 {
		t.Errorf("logged errors = %d, want 1", logger.errors)
	}
	if after != 1 {
		t.Error("observer after the panicking one was not called")
	}
	if s.Name() != "sim" {
		t.Errorf("Name() = %q", s.Name())
	}
}

// ─── Influx ─────────────────────────────────────────────────────────

func TestInflux_Observe(t *testing.T) {
	w := &fakeWriter{}
	in := NewInflux(w)

	off := device.Record{ID: "FOGGER", State: device.StateOff, Pin: 17}
	on := off.Enabled()

	in.Observe(controller.Event{DeviceID: "FOGGER", Source: "api", Before: off, After: on})
	// no-op enable
	in.Observe(controller.Event{DeviceID: "FOGGER", Source: "api", Before: on, After: on})
	// failure
	in.Observe(controller.Event{DeviceID: "FOGGER", Source: "api", Before: off, After: on, Err: controller.ErrActuatorFault})

	if len(w.states) != 1 || w.states[0] != "FOGGER=on@api" {
		t.Errorf("states = %v, want [FOGGER=on@api]", w.states)
	}
}

func TestInflux_Broadcast(t *testing.T) {
	w := &fakeWriter{}
	in := NewInflux(w)

	in.Broadcast("device.state_changed", device.Record{ID: "FOGGER"})
	in.Broadcast("trigger.fired", automation.TriggerFiredEvent{TriggerID: "low_humidity", FiredAt: time.Now()})
	in.Broadcast("trigger.fired", "not an event")

	if len(w.triggers) != 1 || w.triggers[0] != "low_humidity" {
		t.Errorf("triggers = %v, want [low_humidity]", w.triggers)
	}
}

// ─── MultiHub ───────────────────────────────────────────────────────

func TestMultiHub(t *testing.T) {
	a, b := &recordingHub{}, &recordingHub{}
	hub := MultiHub{a, nil, b}

	hub.Broadcast("trigger.fired", nil)

	if len(a.channels) != 1 || len(b.channels) != 1 {
		t.Errorf("deliveries = %d/%d, want 1/1", len(a.channels), len(b.channels))
	}
}
