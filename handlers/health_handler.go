package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/vector-cv/utils"
	"go.uber.org/zap"
)

// Version is reported by the status endpoint
const Version = "0.1.0"

// Pinger checks the database connection
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// StatusInfo is the static part of the status response
type StatusInfo struct {
	Environment string
	Store       string
	Embedding   string
	Generation  string
	Providers   []string
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// StatusResponse represents the status endpoint response
type StatusResponse struct {
	Version     string   `json:"version"`
	Environment string   `json:"environment"`
	Store       string   `json:"store"`
	Embedding   string   `json:"embedding"`
	Generation  string   `json:"generation"`
	Providers   []string `json:"providers"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db     Pinger
	info   StatusInfo
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. db is nil when the store
// does not use a database.
func NewHealthHandler(db Pinger, info StatusInfo, logger *zap.Logger) *HealthHandler {
	if info.Providers == nil {
		info.Providers = []string{}
	}
	return &HealthHandler{
		db:     db,
		info:   info,
		logger: logger,
	}
}

// HandleHealth handles GET /healthz
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReadiness handles GET /readyz
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := ReadinessResponse{Status: "ready", Checks: map[string]string{}}

	switch {
	case h.db != nil:
		if err := h.db.HealthCheck(ctx); err != nil {
			h.logger.Error("database health check failed", zap.Error(err))
			resp.Status = "not_ready"
			resp.Checks["database"] = "unhealthy"
		} else {
			resp.Checks["database"] = "healthy"
		}
	case h.info.Store == "postgres":
		resp.Status = "not_ready"
		resp.Checks["database"] = "not_initialized"
	default:
		resp.Checks["database"] = "not_required"
	}

	if len(h.info.Providers) == 0 {
		resp.Checks["providers"] = "none_configured"
	} else {
		resp.Checks["providers"] = "configured"
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	_ = utils.WriteJSON(w, status, resp)
}

// HandleStatus handles GET /api/v1/status
func (h *HealthHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, StatusResponse{
		Version:     Version,
		Environment: h.info.Environment,
		Store:       h.info.Store,
		Embedding:   h.info.Embedding,
		Generation:  h.info.Generation,
		Providers:   h.info.Providers,
	})
}
