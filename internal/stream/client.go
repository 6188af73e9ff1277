package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// ServerMessage is the envelope every WebSocket frame sent to a client
// uses: a type tag plus a typed payload.
type ServerMessage struct {
	Type      string      `json:"type"`
	Symbol    string      `json:"symbol,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Client wraps one WebSocket connection registered with a Hub.
type Client struct {
	ID     string
	conn   *websocket.Conn
	hub    *Hub
	send   chan ServerMessage
	logger zerolog.Logger
}

// NewClient wraps conn for registration with hub.
func NewClient(conn *websocket.Conn, hub *Hub, logger zerolog.Logger) *Client {
	return &Client{
		ID:     generateClientID(),
		conn:   conn,
		hub:    hub,
		send:   make(chan ServerMessage, 256),
		logger: logger,
	}
}

// Start launches the client's read and write pumps. ctx is the hub's
// lifetime context, not the originating request's, so the connection
// outlives the HTTP handler that upgraded it.
func (c *Client) Start(ctx context.Context) {
	go c.writePump(ctx)
	go c.readPump()
}

func (c *Client) sendMessage(message ServerMessage) {
	select {
	case c.send <- message:
	default:
		c.logger.Warn().Str("client_id", c.ID).Msg("client send buffer full, dropping message")
	}
}

// readPump drains and discards inbound frames, existing only to detect
// disconnects and enforce the pong deadline; this stream is one-way.
func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug().Err(err).Str("client_id", c.ID).Msg("websocket read error")
			}
			return
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(message)
			if err != nil {
				c.logger.Error().Err(err).Msg("failed to marshal message")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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

func generateClientID() string {
	return fmt.Sprintf("client-%d-%d", time.Now().UnixNano(), rand.Intn(1_000_000))
}
