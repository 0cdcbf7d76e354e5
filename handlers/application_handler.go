package handlers

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/upb/vector-cv/middleware"
	"github.com/upb/vector-cv/models"
	"github.com/upb/vector-cv/services/application"
	"github.com/upb/vector-cv/services/ratelimit"
	"github.com/upb/vector-cv/utils"
	"go.uber.org/zap"
)

// GenerateRequest is the body of POST /applications
type GenerateRequest struct {
	CompanyName string `json:"company_name" validate:"required,max=200"`
	JobTitle    string `json:"job_title" validate:"required,max=200"`
	RawSpec     string `json:"raw_spec" validate:"required"`
	JobURL      string `json:"job_url" validate:"omitempty,url,max=1000"`
}

// UpdateApplicationRequest is the body of PATCH /applications/{id}
type UpdateApplicationRequest struct {
	Status      *string    `json:"status" validate:"omitempty,app_status"`
	Notes       *string    `json:"notes" validate:"omitempty,max=5000"`
	AppliedDate *time.Time `json:"applied_date"`
}

// UsageResponse reports the caller's generation quota
type UsageResponse struct {
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	Enabled   bool      `json:"enabled"`
}

// ApplicationService is the generation flow and application tracking
type ApplicationService interface {
	Generate(ctx context.Context, in application.GenerateInput) (*models.JobApplication, error)
	List(ctx context.Context) ([]*models.JobApplication, error)
	Get(ctx context.Context, id uuid.UUID) (*models.JobApplication, error)
	UpdateTracking(ctx context.Context, id uuid.UUID, update models.ApplicationUpdate) (*models.JobApplication, error)
	Usage(clientKey string) ratelimit.Decision
}

// ApplicationHandler handles job application requests
type ApplicationHandler struct {
	service ApplicationService
	logger  *zap.Logger
}

// NewApplicationHandler creates a new ApplicationHandler
func NewApplicationHandler(service ApplicationService, logger *zap.Logger) *ApplicationHandler {
	return &ApplicationHandler{service: service, logger: logger}
}

// HandleGenerate handles POST /api/v1/applications
func (h *ApplicationHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req GenerateRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	h.logger.Debug("generating application",
		zap.String("request_id", requestID),
		zap.String("company", req.CompanyName),
		zap.Int("spec_length", len(req.RawSpec)))

	app, err := h.service.Generate(ctx, application.GenerateInput{
		CompanyName: req.CompanyName,
		JobTitle:    req.JobTitle,
		JobSpec:     req.RawSpec,
		JobURL:      req.JobURL,
		ClientKey:   clientKey(r),
	})
	if err != nil {
		h.logger.Info("application generation rejected",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, app)
}

// HandleListApplications handles GET /api/v1/applications
func (h *ApplicationHandler) HandleListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.service.List(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, apps)
}

// HandleGetApplication handles GET /api/v1/applications/{id}
func (h *ApplicationHandler) HandleGetApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	app, err := h.service.Get(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, app)
}

// HandleUpdateApplication handles PATCH /api/v1/applications/{id}
func (h *ApplicationHandler) HandleUpdateApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdateApplicationRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	update := models.ApplicationUpdate{
		Notes:       req.Notes,
		AppliedDate: req.AppliedDate,
	}
	if req.Status != nil {
		status, err := models.ParseApplicationStatus(*req.Status)
		if err != nil {
			_ = utils.WriteBadRequest(w, "validation_failed", err.Error(), nil)
			return
		}
		update.Status = &status
	}

	app, err := h.service.UpdateTracking(r.Context(), id, update)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, app)
}

// HandleUsage handles GET /api/v1/usage-stats
func (h *ApplicationHandler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	d := h.service.Usage(clientKey(r))
	_ = utils.WriteOK(w, UsageResponse{
		Used:      d.Used,
		Limit:     d.Limit,
		Remaining: d.Remaining,
		ResetAt:   d.ResetAt,
		Enabled:   d.Limit > 0,
	})
}

// clientKey identifies the caller for quota accounting
func clientKey(r *http.Request) string {
	if ip := middleware.GetClientIPFromContext(r.Context()); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
