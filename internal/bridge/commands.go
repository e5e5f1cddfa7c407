package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sporehut/sporehut-core/internal/device"
	"github.com/sporehut/sporehut-core/internal/infrastructure/mqtt"
)

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Subscriber is the part of mqtt.Client used to receive commands.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Publisher is the part of mqtt.Client used to send messages.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// DeviceClient is the part of controller.Client the bridge drives.
type DeviceClient interface {
	GetDeviceConfigs(ctx context.Context) ([]device.Record, error)
	Toggle(ctx context.Context, id string) (device.Record, error)
	SetState(ctx context.Context, id string, state device.State) (device.Record, error)
}

// CommandMessage is the payload accepted on sporehut/command/{device_id}.
//
// Command is one of toggle, enable (alias on) or disable (alias off).
type CommandMessage struct {
	Command   string `json:"command"`
	RequestID string `json:"request_id,omitempty"`
}

// AckMessage is published on sporehut/ack/{device_id} for every command.
type AckMessage struct {
	RequestID string    `json:"request_id,omitempty"`
	DeviceID  string    `json:"device_id"`
	Command   string    `json:"command"`
	OK        bool      `json:"ok"`
	State     string    `json:"state,omitempty"`
	Code      string    `json:"code,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Commands turns MQTT command messages into owner commands.
type Commands struct {
	client  DeviceClient
	pub     Publisher
	logger  Logger
	timeout time.Duration
	now     func() time.Time
}

// NewCommands creates a command handler. timeout bounds each command,
// including its wait for the owner's reply.
func NewCommands(client DeviceClient, pub Publisher, timeout time.Duration) *Commands {
	return &Commands{
		client:  client,
		pub:     pub,
		logger:  noopLogger{},
		timeout: timeout,
		now:     time.Now,
	}
}

// SetLogger sets the logger for the command handler.
func (c *Commands) SetLogger(logger Logger) {
	c.logger = logger
}

// Subscribe registers the handler for every device command topic.
func (c *Commands) Subscribe(sub Subscriber, qos byte) error {
	if err := sub.Subscribe(mqtt.Topics{}.AllCommands(), qos, c.Handle); err != nil {
		return fmt.Errorf("subscribing to commands: %w", err)
	}
	c.logger.Info("mqtt command bridge subscribed", "topic", mqtt.Topics{}.AllCommands())
	return nil
}

// Handle processes one command message and publishes its ack.
//
// It implements mqtt.MessageHandler. The returned error only reports a
// failed ack publish; command failures are reported in the ack itself.
func (c *Commands) Handle(topic string, payload []byte) error {
	id, ok := mqtt.DeviceFromTopic(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}

	var msg CommandMessage
	var (
		rec device.Record
		err error
	)
	if jerr := json.Unmarshal(payload, &msg); jerr != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidCommand, jerr)
	} else {
		rec, err = c.execute(id, msg.Command)
	}

	ack := AckMessage{
		RequestID: msg.RequestID,
		DeviceID:  id,
		Command:   msg.Command,
		OK:        err == nil,
		Code:      errorCode(err),
		Timestamp: c.now().UTC(),
	}
	if err != nil {
		ack.Error = err.Error()
		c.logger.Warn("mqtt command failed", "device_id", id, "command", msg.Command, "error", err)
	} else {
		ack.State = string(rec.State)
		c.logger.Debug("mqtt command applied", "device_id", id, "command", msg.Command, "state", rec.State)
	}

	if perr := c.pub.PublishJSON(mqtt.Topics{}.Ack(id), ack, false); perr != nil {
		return fmt.Errorf("publishing ack for %s: %w", id, perr)
	}
	return nil
}

func (c *Commands) execute(id, command string) (device.Record, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	switch strings.ToLower(command) {
	case "toggle":
		return c.client.Toggle(ctx, id)
	case "enable", "on":
		return c.client.SetState(ctx, id, device.StateOn)
	case "disable", "off":
		return c.client.SetState(ctx, id, device.StateOff)
	default:
		return device.Record{}, fmt.Errorf("%w: %q", ErrInvalidCommand, command)
	}
}
