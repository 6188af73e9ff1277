package handlers

import (
	"encoding/json"
	"net/http"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nsedesk/signalengine/internal/database"
	"github.com/nsedesk/signalengine/internal/logger"
	"github.com/nsedesk/signalengine/internal/pipeline"
)

// HealthResponse is the /api/v1/health payload: overall status plus
// per-component detail.
type HealthResponse struct {
	Status     string                 `json:"status"`
	Timestamp  time.Time              `json:"timestamp"`
	Version    string                 `json:"version"`
	Components map[string]interface{} `json:"components"`
}

// SummaryResponse is the /api/v1/summary payload: the most recent
// completed batch's totals, matching spec.md §7's user-visible record.
type SummaryResponse struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Summary     pipeline.Summary `json:"summary"`
	Symbols     []string         `json:"symbols"`
}

// HealthHandler serves the C12 status surface: liveness plus the last
// batch's summary record.
type HealthHandler struct {
	db      *database.DB
	logger  zerolog.Logger
	version string

	mu           stdsync.RWMutex
	lastSummary  *SummaryResponse
}

// NewHealthHandler creates a new health check handler.
func NewHealthHandler(db *database.DB, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		logger:  logger.NewContextLogger("health_handler"),
		version: version,
	}
}

// RecordSummary stores the most recently completed batch's summary for
// /api/v1/summary to serve. Safe to call from the sync scheduler's
// goroutine while requests are in flight.
func (h *HealthHandler) RecordSummary(summary pipeline.Summary, symbols []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastSummary = &SummaryResponse{
		GeneratedAt: time.Now(),
		Summary:     summary,
		Symbols:     symbols,
	}
}

// GetHealth handles GET /api/v1/health.
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	correlationID := uuid.New().String()
	reqLogger := logger.NewRequestLogger(correlationID, r.Method, r.URL.Path)

	reqLogger.Info().Msg("Processing health check request")

	ctx := r.Context()
	dbHealth := h.db.HealthCheck(ctx)

	status := "healthy"
	if dbStatus, ok := dbHealth["status"].(string); ok && dbStatus != "healthy" {
		status = "unhealthy"
	}

	response := &HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Version:   h.version,
		Components: map[string]interface{}{
			"database": dbHealth,
		},
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Correlation-ID", correlationID)
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		reqLogger.Error().Err(err).Msg("Failed to encode health response")
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	reqLogger.Info().
		Str("status", status).
		Msg("Health check completed")
}

// GetSummary handles GET /api/v1/summary, returning the last completed
// batch's totals. Responds 404 before the first batch has run.
func (h *HealthHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	last := h.lastSummary
	h.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")

	if last == nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "no batch has completed yet"})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(last)
}
