package server

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"muuzah/internal/engine"
	"muuzah/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16384
	cellFrameBytes = 64 // upper bound of one encoded setup cell
)

// readLimit sizes the read limit so a full SUBMIT_SETUP frame always fits.
func readLimit(rules engine.MatchConfig) int64 {
	n := int64(rules.GridSize*rules.GridSize)*cellFrameBytes + 1024
	if n < maxMessageSize {
		return maxMessageSize
	}
	return n
}

// Client represents a single WebSocket connection of one player.
type Client struct {
	server *Server
	conn   *websocket.Conn
	send   chan []byte
	log    *logrus.Entry

	hub atomic.Pointer[Hub] // set once the player is paired

	mu        sync.Mutex
	closed    bool
	lastMatch string // finished match this connection played in

	engine.Identity
}

func NewClient(s *Server, conn *websocket.Conn, id engine.Identity) *Client {
	return &Client{
		server:   s,
		conn:     conn,
		send:     make(chan []byte, 256),
		log:      s.log.WithField("player_id", id.ID),
		Identity: id,
	}
}

// ReadPump reads messages from the WebSocket and routes them.
func (c *Client) ReadPump() {
	defer func() {
		c.server.disconnect(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(c.server.readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Warn("ws read error")
			}
			break
		}
		var env protocol.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.log.WithError(err).Debug("ws parse error")
			c.SendError("malformed message")
			continue
		}
		c.server.route(c, env)
	}
}

// WritePump writes messages from the send channel to the WebSocket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendEnvelope queues a typed message for this client. Messages to a closed
// client or a full buffer are dropped.
func (c *Client) SendEnvelope(env protocol.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		c.log.WithError(err).Error("marshal error")
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.log.WithField("type", env.Type).Warn("send buffer full, dropping message")
	}
}

// Send wraps payload in an envelope of the given type and queues it.
func (c *Client) Send(typ string, payload interface{}) {
	env, err := protocol.NewEnvelope(typ, payload)
	if err != nil {
		c.log.WithError(err).Error("marshal error")
		return
	}
	c.SendEnvelope(env)
}

func (c *Client) SendError(message string) {
	c.Send(protocol.MsgError, protocol.ErrorMsg{Message: message})
}

// leave detaches c from a hub that has finished its match.
func (c *Client) leave(h *Hub, matchID string) {
	if c.hub.CompareAndSwap(h, nil) {
		c.mu.Lock()
		c.lastMatch = matchID
		c.mu.Unlock()
	}
}

func (c *Client) finishedMatch() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastMatch
}

// close stops the write pump. It is safe to call more than once.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// IncomingMessage pairs a message with its source client.
type IncomingMessage struct {
	Client   *Client
	Envelope protocol.Envelope
}
