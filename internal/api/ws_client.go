package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// clientQueueDepth bounds the frames buffered for one client.
const clientQueueDepth = 256

// upgrader keeps gorilla's same-origin check; the control page is served
// by this server.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WSClient is one connected socket and the channels it listens to.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu            sync.RWMutex
	subscriptions map[string]struct{}
}

// wsRequest is an inbound frame. The payload is decoded per type.
type wsRequest struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// handleWebSocket upgrades the request and starts the client pumps.
// Clients then send {"type":"subscribe","payload":{"channels":[...]}}.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &WSClient{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, clientQueueDepth),
		subscriptions: make(map[string]struct{}),
	}
	s.hub.Register(c)

	go c.writeLoop(s.hub.timings)
	go c.readLoop(s.hub.timings)
}

func (c *WSClient) readLoop(t wsTimings) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(t.readLimit)
	//nolint:errcheck // a failed deadline surfaces as a read error
	c.conn.SetReadDeadline(t.idleDeadline())
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(t.idleDeadline())
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		// Browsers do not always answer protocol pings; application traffic
		// counts as liveness too.
		//nolint:errcheck // a failed deadline surfaces as a read error
		c.conn.SetReadDeadline(t.idleDeadline())
		c.dispatch(data)
	}
}

func (c *WSClient) writeLoop(t wsTimings) {
	ping := time.NewTicker(t.pingEvery)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		//nolint:errcheck // a failed deadline surfaces as a write error
		c.conn.SetWriteDeadline(time.Now().Add(t.pongWait))
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case frame, open := <-c.send:
			if !open {
				_ = write(websocket.CloseMessage, nil)
				return
			}
			if write(websocket.TextMessage, frame) != nil {
				return
			}
		case <-ping.C:
			if write(websocket.PingMessage, nil) != nil {
				return
			}
		}
	}
}

func (c *WSClient) dispatch(data []byte) {
	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply("", WSTypeError, errorBody("invalid JSON message"))
		return
	}

	switch req.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		c.updateSubscriptions(req)
	case WSTypePing:
		c.reply(req.ID, WSTypePong, nil)
	default:
		c.reply(req.ID, WSTypeError, errorBody("unknown message type: "+req.Type))
	}
}

// updateSubscriptions applies a subscribe or unsubscribe frame. Unknown
// channel names are reported back and otherwise ignored.
func (c *WSClient) updateSubscriptions(req wsRequest) {
	var body WSSubscribePayload
	if len(req.Payload) == 0 || json.Unmarshal(req.Payload, &body) != nil {
		c.reply(req.ID, WSTypeError, errorBody("invalid "+req.Type+" payload"))
		return
	}

	var applied, unknown []string
	c.mu.Lock()
	for _, ch := range body.Channels {
		if !knownChannels[ch] {
			unknown = append(unknown, ch)
			continue
		}
		if req.Type == WSTypeSubscribe {
			c.subscriptions[ch] = struct{}{}
		} else {
			delete(c.subscriptions, ch)
		}
		applied = append(applied, ch)
	}
	c.mu.Unlock()

	result := map[string]any{req.Type + "d": applied}
	if len(unknown) > 0 {
		result["unknown"] = unknown
	}
	c.reply(req.ID, WSTypeResponse, result)
}

func (c *WSClient) wants(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscriptions[channel]
	return ok
}

// enqueue hands frame to the write loop without blocking. It returns false
// when the queue is full or the client has already gone.
func (c *WSClient) enqueue(frame []byte) (queued bool) {
	// Unregister may close send between the hub snapshot and this send.
	defer func() {
		if recover() != nil {
			queued = false
		}
	}()
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *WSClient) reply(id, kind string, payload any) {
	frame, err := encodeFrame(WSMessage{Type: kind, ID: id, Payload: payload})
	if err != nil {
		c.hub.logger.Error("encoding websocket reply", "error", err)
		return
	}
	c.enqueue(frame)
}

func errorBody(msg string) map[string]string {
	return map[string]string{"message": msg}
}
