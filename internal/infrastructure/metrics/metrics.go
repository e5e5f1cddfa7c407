package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sporehut"

// Trigger evaluation results.
const (
	ResultFired = "fired"
	ResultIdle  = "idle"
	ResultError = "error"
	ResultPanic = "panic"
)

// Metrics holds every Prometheus collector exported by SporeHut Core.
//
// All methods are safe to call on a nil *Metrics, so components can take
// an optional metrics sink without guarding every call.
type Metrics struct {
	registry *prometheus.Registry

	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	queueDepth      prometheus.Gauge
	sendFailures    *prometheus.CounterVec
	actuatorWrites  *prometheus.CounterVec
	deviceState     *prometheus.GaugeVec
	triggerEvals    *prometheus.CounterVec
	observerDrops   *prometheus.CounterVec
	co2             *prometheus.GaugeVec
	temperature     *prometheus.GaugeVec
	humidity        *prometheus.GaugeVec
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands processed by the device owner.",
		}, []string{"command", "outcome"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time the device owner spent processing a command.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}, []string{"command"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "command_queue_depth",
			Help:      "Commands waiting in the command channel.",
		}),
		sendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_send_failures_total",
			Help:      "Commands that could not be enqueued.",
		}, []string{"reason"}),
		actuatorWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actuator_writes_total",
			Help:      "Relay writes by device and target state.",
		}, []string{"device", "state"}),
		deviceState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_on",
			Help:      "1 when the device relay is on, 0 when off.",
		}, []string{"device"}),
		triggerEvals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trigger_evaluations_total",
			Help:      "Trigger condition evaluations by result.",
		}, []string{"trigger", "result"}),
		observerDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observer_events_dropped_total",
			Help:      "State events dropped because an observer fell behind.",
		}, []string{"observer"}),
		co2: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensor_co2_ppm",
			Help:      "Last CO2 reading.",
		}, []string{"sensor"}),
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensor_temperature_celsius",
			Help:      "Last temperature reading.",
		}, []string{"sensor"}),
		humidity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensor_humidity_percent",
			Help:      "Last relative humidity reading.",
		}, []string{"sensor"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.commands,
		m.commandDuration,
		m.queueDepth,
		m.sendFailures,
		m.actuatorWrites,
		m.deviceState,
		m.triggerEvals,
		m.observerDrops,
		m.co2,
		m.temperature,
		m.humidity,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveCommand records one processed command.
func (m *Metrics) ObserveCommand(command, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command, outcome).Inc()
	m.commandDuration.WithLabelValues(command).Observe(d.Seconds())
}

// SetQueueDepth records the command channel depth.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// SendFailed counts a command that never reached the owner.
func (m *Metrics) SendFailed(reason string) {
	if m == nil {
		return
	}
	m.sendFailures.WithLabelValues(reason).Inc()
}

// ActuatorWrite counts a relay write and updates the device state gauge.
func (m *Metrics) ActuatorWrite(device string, on bool) {
	if m == nil {
		return
	}
	state, v := "off", 0.0
	if on {
		state, v = "on", 1.0
	}
	m.actuatorWrites.WithLabelValues(device, state).Inc()
	m.deviceState.WithLabelValues(device).Set(v)
}

// TriggerEvaluated counts one trigger evaluation.
func (m *Metrics) TriggerEvaluated(trigger, result string) {
	if m == nil {
		return
	}
	m.triggerEvals.WithLabelValues(trigger, result).Inc()
}

// ObserverDropped counts an event an observer could not accept.
func (m *Metrics) ObserverDropped(observer string) {
	if m == nil {
		return
	}
	m.observerDrops.WithLabelValues(observer).Inc()
}

// SensorReading records the latest environment sample.
func (m *Metrics) SensorReading(sensor string, co2 uint16, temperature, humidity float64) {
	if m == nil {
		return
	}
	m.co2.WithLabelValues(sensor).Set(float64(co2))
	m.temperature.WithLabelValues(sensor).Set(temperature)
	m.humidity.WithLabelValues(sensor).Set(humidity)
}
