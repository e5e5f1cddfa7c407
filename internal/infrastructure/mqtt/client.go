package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/sporehut/sporehut-core/internal/infrastructure/config"
)

// Client is a paho connection that announces itself on the system status
// topic and replays its subscriptions after every reconnect. It is safe
// for concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	// subscriptions is replayed after every reconnect.
	subscriptions map[string]subscription
	subMu         sync.RWMutex

	connected atomic.Bool
	hooks     atomic.Pointer[clientHooks]
}

// clientHooks is replaced wholesale by the setters, so paho callbacks read
// a consistent set without locking.
type clientHooks struct {
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger
}

func (c *Client) currentHooks() clientHooks {
	if h := c.hooks.Load(); h != nil {
		return *h
	}
	return clientHooks{}
}

func (c *Client) updateHooks(edit func(h *clientHooks)) {
	for {
		old := c.hooks.Load()
		next := clientHooks{}
		if old != nil {
			next = *old
		}
		edit(&next)
		if c.hooks.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Logger is the subset of logging.Logger the client needs.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// MessageHandler is the callback signature for received messages.
//
// Handlers run on paho's goroutines and should not block for long. A
// returned error is logged; it does not affect acknowledgement.
type MessageHandler func(topic string, payload []byte) error

// Connect establishes a connection to the MQTT broker.
//
// It registers an LWT on sporehut/system/status, connects with a timeout,
// and publishes a retained online status once connected.
//
// Parameters:
//   - cfg: MQTT configuration from config.yaml
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: wrapping ErrConnectionFailed if the broker is unreachable
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		cfg:           cfg,
		subscriptions: make(map[string]subscription),
	}

	opts := clientOptions(cfg)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })

	c.client = pahomqtt.NewClient(opts)
	if err := await(c.client.Connect(), connectTimeout, ErrConnectionFailed); err != nil {
		return nil, err
	}

	// The OnConnect handler runs on a paho goroutine and may not have
	// fired yet.
	c.connected.Store(true)
	return c, nil
}

// await waits for a paho token and wraps a timeout or failure in sentinel.
func await(token pahomqtt.Token, timeout time.Duration, sentinel error) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w: timeout after %v", sentinel, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return nil
}

func (c *Client) handleConnect() {
	c.connected.Store(true)
	c.restoreSubscriptions()
	c.publishStatus(statusOnline, "")

	if fn := c.currentHooks().onConnect; fn != nil {
		fn()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.connected.Store(false)
	if fn := c.currentHooks().onDisconnect; fn != nil {
		fn(err)
	}
}

// publishStatus publishes a retained system status and returns the token.
func (c *Client) publishStatus(status, reason string) pahomqtt.Token {
	payload := statusMessage(c.cfg.Broker.ClientID, status, reason)
	return c.client.Publish(Topics{}.SystemStatus(), c.QoS(), true, payload)
}

// Close publishes a graceful offline status and disconnects, so that
// subscribers can tell a shutdown from a crash (which triggers the LWT).
// Closing a nil or never-connected client is a no-op.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	if c.IsConnected() {
		c.publishStatus(statusOffline, reasonShutdown).WaitTimeout(operationTimeout)
	}
	c.client.Disconnect(disconnectQuiesceMS)
	c.connected.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the broker link is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	if c == nil || c.client == nil {
		return false
	}
	return c.connected.Load() && c.client.IsConnected()
}

// SetOnConnect registers fn to run after the initial connect and after
// every reconnect, once subscriptions are back in place.
func (c *Client) SetOnConnect(fn func()) {
	c.updateHooks(func(h *clientHooks) { h.onConnect = fn })
}

// SetOnDisconnect registers fn to run when the broker link drops.
func (c *Client) SetOnDisconnect(fn func(err error)) {
	c.updateHooks(func(h *clientHooks) { h.onDisconnect = fn })
}

// SetLogger sets where handler errors and recovered panics are reported.
func (c *Client) SetLogger(logger Logger) {
	c.updateHooks(func(h *clientHooks) { h.logger = logger })
}

func (c *Client) log() Logger {
	if l := c.currentHooks().logger; l != nil {
		return l
	}
	return noopLogger{}
}

// wrapHandler adapts a MessageHandler to paho, logging returned errors and
// recovering panics so one bad message cannot kill paho's router.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.log().Error("MQTT handler panic recovered", "topic", msg.Topic(), "panic", r)
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.log().Warn("MQTT handler returned error", "topic", msg.Topic(), "error", err)
		}
	}
}
