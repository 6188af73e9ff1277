package stream

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server is the optional WebSocket fan-out for signal/summary events,
// standing in for the query-interface collaborator this module does not
// itself implement.
type Server struct {
	hub    *Hub
	logger zerolog.Logger
}

// NewServer creates a new WebSocket server.
func NewServer(logger zerolog.Logger) *Server {
	hub := NewHub(logger)

	return &Server{
		hub: hub,
		logger: logger.With().
			Str("component", "websocket_server").
			Logger(),
	}
}

// Start begins the WebSocket server.
func (s *Server) Start() {
	s.hub.Start()
	s.logger.Info().Msg("WebSocket server started")
}

// Stop gracefully shuts down the WebSocket server.
func (s *Server) Stop() {
	s.hub.Stop()
	s.logger.Info().Msg("WebSocket server stopped")
}

// RegisterRoutes adds the WebSocket and metrics routes to router.
func (s *Server) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws/signals", s.handleWebSocket).Methods("GET")
	router.HandleFunc("/api/v1/stream/metrics", s.handleMetrics).Methods("GET")

	s.logger.Info().Msg("WebSocket routes registered")
}

// handleWebSocket upgrades the connection and registers a Client that
// receives every subsequent signal/summary event.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	correlationID := r.Header.Get("X-Correlation-ID")
	if correlationID == "" {
		correlationID = generateClientID()
	}

	logger := s.logger.With().
		Str("correlation_id", correlationID).
		Str("remote_addr", r.RemoteAddr).
		Logger()

	logger.Info().Msg("WebSocket connection attempt")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := NewClient(conn, s.hub, logger)
	s.hub.RegisterClient(client)

	// Client goroutines run under the hub's lifetime context, not the
	// request's, since the request context is cancelled right after upgrade.
	client.Start(s.hub.ctx)
}

// handleMetrics returns WebSocket hub metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	clientCount, messageCount := s.hub.GetMetrics()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := fmt.Sprintf(`{
		"clients": %d,
		"messages_sent": %d,
		"status": "healthy"
	}`, clientCount, messageCount)

	w.Write([]byte(response))
}

// Hub returns the underlying Hub, which itself implements
// broadcast.LiveFanout (PublishSignal/PublishSummary).
func (s *Server) Hub() *Hub {
	return s.hub
}
