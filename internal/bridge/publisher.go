package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/sporehut/sporehut-core/internal/automation"
	"github.com/sporehut/sporehut-core/internal/controller"
	"github.com/sporehut/sporehut-core/internal/device"
	"github.com/sporehut/sporehut-core/internal/hal"
	"github.com/sporehut/sporehut-core/internal/infrastructure/metrics"
	"github.com/sporehut/sporehut-core/internal/infrastructure/mqtt"
)

// observerName labels dropped messages in metrics.
const observerName = "mqtt"

// StateMessage is the retained payload on sporehut/state/{device_id}.
type StateMessage struct {
	DeviceID  string    `json:"device_id"`
	Name      string    `json:"name"`
	State     string    `json:"state"`
	On        bool      `json:"on"`
	Source    string    `json:"source,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SensorMessage is published on sporehut/sensor/{sensor}.
type SensorMessage struct {
	Sensor string `json:"sensor"`
	hal.Reading
}

type outbound struct {
	topic    string
	payload  any
	retained bool
}

// StatePublisher mirrors device state, readings and trigger firings to
// MQTT through a bounded queue. Messages are dropped when it is full.
type StatePublisher struct {
	pub     Publisher
	queue   chan outbound
	logger  Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewStatePublisher creates a publisher with room for buffer messages.
func NewStatePublisher(pub Publisher, buffer int) *StatePublisher {
	if buffer < 1 {
		buffer = 1
	}
	return &StatePublisher{
		pub:    pub,
		queue:  make(chan outbound, buffer),
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the publisher.
func (p *StatePublisher) SetLogger(logger Logger) {
	p.logger = logger
}

// SetMetrics sets the metrics sink for dropped messages.
func (p *StatePublisher) SetMetrics(m *metrics.Metrics) {
	p.metrics = m
}

// Observe implements controller.Observer. Only state changes are
// published; the audit trail covers failures.
func (p *StatePublisher) Observe(ev controller.Event) {
	if !ev.Changed() {
		return
	}
	p.enqueue(outbound{
		topic:    mqtt.Topics{}.State(ev.DeviceID),
		payload:  stateMessage(ev.After, ev.Source, ev.At),
		retained: true,
	})
}

// ObserveReading implements telemetry.ReadingObserver.
func (p *StatePublisher) ObserveReading(sensor string, r hal.Reading) {
	p.enqueue(outbound{
		topic:   mqtt.Topics{}.Sensor(sensor),
		payload: SensorMessage{Sensor: sensor, Reading: r},
	})
}

// Broadcast publishes trigger firings and ignores other channels.
func (p *StatePublisher) Broadcast(channel string, payload any) {
	if channel != "trigger.fired" {
		return
	}
	ev, ok := payload.(automation.TriggerFiredEvent)
	if !ok {
		return
	}
	p.enqueue(outbound{
		topic:   mqtt.Topics{}.TriggerFired(ev.TriggerID),
		payload: ev,
	})
}

// PublishSnapshot queues the current state of every device as retained
// messages. Call it after each (re)connect so late subscribers and a
// restarted broker see the full picture.
func (p *StatePublisher) PublishSnapshot(ctx context.Context, client DeviceClient) error {
	devices, err := client.GetDeviceConfigs(ctx)
	if err != nil {
		return fmt.Errorf("reading device snapshot: %w", err)
	}
	now := p.now()
	for _, rec := range devices {
		p.enqueue(outbound{
			topic:    mqtt.Topics{}.State(rec.ID),
			payload:  stateMessage(rec, "snapshot", now),
			retained: true,
		})
	}
	return nil
}

// Run publishes queued messages until ctx is cancelled. Publish failures
// are logged and the message is discarded.
func (p *StatePublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-p.queue:
			if err := p.pub.PublishJSON(msg.topic, msg.payload, msg.retained); err != nil {
				p.logger.Debug("mqtt publish failed", "topic", msg.topic, "error", err)
			}
		}
	}
}

func (p *StatePublisher) enqueue(msg outbound) {
	select {
	case p.queue <- msg:
	default:
		p.metrics.ObserverDropped(observerName)
		p.logger.Warn("mqtt publish queue full, message dropped", "topic", msg.topic)
	}
}

func stateMessage(rec device.Record, source string, at time.Time) StateMessage {
	return StateMessage{
		DeviceID:  rec.ID,
		Name:      rec.Name,
		State:     string(rec.State),
		On:        rec.State.IsOn(),
		Source:    source,
		UpdatedAt: at.UTC(),
	}
}
