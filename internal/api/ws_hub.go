package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sporehut/sporehut-core/internal/controller"
	"github.com/sporehut/sporehut-core/internal/hal"
	"github.com/sporehut/sporehut-core/internal/infrastructure/config"
	"github.com/sporehut/sporehut-core/internal/infrastructure/logging"
)

// Frame types exchanged over the socket.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// Event channels clients can subscribe to.
const (
	ChannelDeviceStateChanged = "device.state_changed"
	ChannelCommandFailed      = "device.command_failed"
	ChannelSensorReading      = "sensor.reading"
	ChannelTriggerFired       = "trigger.fired"
)

var knownChannels = map[string]bool{
	ChannelDeviceStateChanged: true,
	ChannelCommandFailed:      true,
	ChannelSensorReading:      true,
	ChannelTriggerFired:       true,
}

// WSMessage is the envelope of every frame the hub writes.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload carries the channel list of subscribe and
// unsubscribe frames.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// wsTimings holds the socket limits resolved from config once.
type wsTimings struct {
	readLimit int64
	pingEvery time.Duration
	pongWait  time.Duration
}

// idleDeadline is how long a connection may stay silent before the read
// side gives up.
func (t wsTimings) idleDeadline() time.Time {
	return time.Now().Add(t.pingEvery + t.pongWait)
}

func timingsFrom(cfg config.WebSocketConfig) wsTimings {
	t := wsTimings{
		readLimit: int64(cfg.MaxMessageSize),
		pingEvery: time.Duration(cfg.PingInterval) * time.Second,
		pongWait:  time.Duration(cfg.PongTimeout) * time.Second,
	}
	if t.readLimit <= 0 {
		t.readLimit = 8192
	}
	if t.pingEvery <= 0 {
		t.pingEvery = 30 * time.Second
	}
	if t.pongWait <= 0 {
		t.pongWait = 10 * time.Second
	}
	return t
}

// Hub fans controller events, sensor readings and trigger firings out to
// subscribed WebSocket clients.
//
// It is a controller.Observer and a telemetry.ReadingObserver, and the
// automation engine broadcasts through it.
type Hub struct {
	timings wsTimings
	logger  *logging.Logger

	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

// NewHub creates an empty hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		timings: timingsFrom(cfg),
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run waits for ctx to end and then drops every client.
func (h *Hub) Run(ctx context.Context) error {
	<-ctx.Done()
	for _, c := range h.snapshot() {
		if h.detach(c) && c.conn != nil {
			c.conn.Close()
		}
	}
	return nil
}

// Observe implements controller.Observer. No-op commands produce nothing.
func (h *Hub) Observe(ev controller.Event) {
	if ev.Err != nil {
		h.Broadcast(ChannelCommandFailed, map[string]any{
			"device_id": ev.DeviceID,
			"command":   ev.Command,
			"source":    ev.Source,
			"error":     ev.Err.Error(),
		})
		return
	}
	if !ev.Changed() {
		return
	}
	h.Broadcast(ChannelDeviceStateChanged, map[string]any{
		"device_id": ev.DeviceID,
		"name":      ev.After.Name,
		"state":     ev.After.State,
		"source":    ev.Source,
	})
}

// ObserveReading implements telemetry.ReadingObserver.
func (h *Hub) ObserveReading(sensor string, r hal.Reading) {
	h.Broadcast(ChannelSensorReading, map[string]any{"sensor": sensor, "reading": r})
}

// Register adds a client.
func (h *Hub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

// Unregister removes a client and closes its outbound queue. Calling it
// twice for the same client is harmless.
func (h *Hub) Unregister(c *WSClient) {
	h.detach(c)
	h.logger.Debug("websocket client disconnected", "clients", h.ClientCount())
}

// detach removes c and reports whether this call was the one that did it.
// Only that caller closes c.send.
func (h *Hub) detach(c *WSClient) bool {
	h.mu.Lock()
	_, present := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if present {
		close(c.send)
	}
	return present
}

func (h *Hub) snapshot() []*WSClient {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

// Broadcast queues an event frame for every client subscribed to channel.
// Slow clients lose frames rather than stall the caller.
func (h *Hub) Broadcast(channel string, payload any) {
	frame, err := encodeFrame(WSMessage{Type: WSTypeEvent, EventType: channel, Payload: payload})
	if err != nil {
		h.logger.Error("encoding websocket event", "channel", channel, "error", err)
		return
	}

	delivered := 0
	for _, c := range h.snapshot() {
		if c.wants(channel) && c.enqueue(frame) {
			delivered++
		}
	}
	if delivered > 0 {
		h.logger.Debug("websocket event delivered", "channel", channel, "recipients", delivered)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// encodeFrame stamps msg and serialises it.
func encodeFrame(msg WSMessage) ([]byte, error) {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	return json.Marshal(msg)
}
