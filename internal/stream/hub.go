package stream

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nsedesk/signalengine/internal/models"
)

// Hub maintains the set of connected clients and fans out every finished
// Signal (and batch summary) to all of them. Unlike the teacher's
// per-symbol:timeframe tick stream, a signal batch runs once a day and
// every connected client wants the same small event stream, so there is
// no subscription bookkeeping here.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client

	broadcast chan ServerMessage

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.RWMutex
	clientCount  int
	messageCount int64
	logger       zerolog.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger zerolog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 100),
		unregister: make(chan *Client, 100),
		broadcast:  make(chan ServerMessage, 1000),
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger.With().Str("component", "websocket_hub").Logger(),
	}
}

// Start begins the hub's main loop.
func (h *Hub) Start() {
	h.logger.Info().Msg("WebSocket hub started")
	go h.run()
}

// Stop gracefully shuts down the hub and closes every client connection.
func (h *Hub) Stop() {
	h.logger.Info().Msg("Stopping WebSocket hub")
	h.cancel()

	h.mu.Lock()
	for client := range h.clients {
		close(client.send)
	}
	h.mu.Unlock()
}

func (h *Hub) run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info().Msg("WebSocket hub shutting down")
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-ticker.C:
			h.logMetrics()
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	h.clientCount++

	h.logger.Info().
		Str("client_id", client.ID).
		Int("total_clients", h.clientCount).
		Msg("Client registered")

	client.sendMessage(ServerMessage{Type: "connected", Timestamp: time.Now()})
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		h.clientCount--
		close(client.send)

		h.logger.Info().
			Str("client_id", client.ID).
			Int("total_clients", h.clientCount).
			Msg("Client unregistered")
	}
}

func (h *Hub) broadcastMessage(message ServerMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.messageCount++
	sentCount := 0
	for client := range h.clients {
		select {
		case <-h.ctx.Done():
			return
		default:
			client.sendMessage(message)
			sentCount++
		}
	}

	h.logger.Debug().
		Str("type", message.Type).
		Int("clients", sentCount).
		Msg("Broadcasted message")
}

// PublishSignal queues a finished Signal for broadcast to every connected
// client, implementing broadcast.LiveFanout.
func (h *Hub) PublishSignal(signal models.Signal) {
	select {
	case h.broadcast <- ServerMessage{Type: "signal", Symbol: signal.Symbol, Data: signal, Timestamp: time.Now()}:
	default:
		h.logger.Warn().Str("symbol", signal.Symbol).Msg("broadcast buffer full, dropping signal")
	}
}

// PublishSummary queues a rendered batch summary for broadcast, implementing
// broadcast.LiveFanout.
func (h *Hub) PublishSummary(text string) {
	select {
	case h.broadcast <- ServerMessage{Type: "summary", Data: text, Timestamp: time.Now()}:
	default:
		h.logger.Warn().Msg("broadcast buffer full, dropping summary")
	}
}

// RegisterClient adds a client to the hub.
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient removes a client from the hub.
func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// GetMetrics returns hub metrics.
func (h *Hub) GetMetrics() (clientCount int, messageCount int64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clientCount, h.messageCount
}

func (h *Hub) logMetrics() {
	clientCount, messageCount := h.GetMetrics()
	h.logger.Info().
		Int("clients", clientCount).
		Int64("messages_sent", messageCount).
		Msg("Hub metrics")
}
