package telemetry

import (
	"time"

	"github.com/sporehut/sporehut-core/internal/automation"
	"github.com/sporehut/sporehut-core/internal/controller"
	"github.com/sporehut/sporehut-core/internal/hal"
)

// PointWriter is the part of influxdb.Client that Influx uses.
type PointWriter interface {
	WriteDeviceState(deviceID string, on bool, source string, at time.Time)
	WriteEnvironment(sensor string, co2 uint16, temperature, humidity float64, at time.Time)
	WriteTriggerFired(triggerID string, at time.Time)
}

// Influx records telemetry as InfluxDB points.
//
// It is a controller.Observer (device changes), a ReadingObserver
// (environment samples) and a Hub ("trigger.fired").
type Influx struct {
	w PointWriter
}

// NewInflux creates an Influx sink writing through w.
func NewInflux(w PointWriter) *Influx {
	return &Influx{w: w}
}

// Observe records device state changes. Failed and no-op commands are
// skipped; the audit trail has those.
func (i *Influx) Observe(ev controller.Event) {
	if !ev.Changed() {
		return
	}
	i.w.WriteDeviceState(ev.DeviceID, ev.After.State.IsOn(), ev.Source, ev.At)
}

// ObserveReading records an environment sample.
func (i *Influx) ObserveReading(sensor string, r hal.Reading) {
	i.w.WriteEnvironment(sensor, r.CO2, r.Temperature, r.Humidity, r.At)
}

// Broadcast records trigger firings and ignores other channels.
func (i *Influx) Broadcast(channel string, payload any) {
	if channel != "trigger.fired" {
		return
	}
	if ev, ok := payload.(automation.TriggerFiredEvent); ok {
		i.w.WriteTriggerFired(ev.TriggerID, ev.FiredAt)
	}
}
