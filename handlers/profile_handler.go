package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/upb/vector-cv/middleware"
	"github.com/upb/vector-cv/models"
	"github.com/upb/vector-cv/utils"
	"go.uber.org/zap"
)

// ProfileRequest is the body of POST /personal-info
type ProfileRequest struct {
	Name      string `json:"name" validate:"required,max=200"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"max=50"`
	Location  string `json:"location" validate:"max=200"`
	LinkedIn  string `json:"linkedin" validate:"max=500"`
	GitHub    string `json:"github" validate:"max=500"`
	Portfolio string `json:"portfolio" validate:"max=500"`
	Summary   string `json:"summary"`
}

// ProfileService is the profile part of the content service
type ProfileService interface {
	GetProfile(ctx context.Context) (*models.ProfileInfo, error)
	UpsertProfile(ctx context.Context, profile *models.ProfileInfo) (*models.ProfileInfo, error)
}

// ProfileHandler handles the personal info singleton
type ProfileHandler struct {
	service ProfileService
	logger  *zap.Logger
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(service ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{service: service, logger: logger}
}

// HandleGetProfile handles GET /api/v1/personal-info
func (h *ProfileHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.GetProfile(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, profile)
}

// HandleUpsertProfile handles POST /api/v1/personal-info
func (h *ProfileHandler) HandleUpsertProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	profile := models.NewProfileInfo(strings.TrimSpace(req.Name))
	profile.Email = strings.TrimSpace(req.Email)
	profile.Phone = strings.TrimSpace(req.Phone)
	profile.Location = strings.TrimSpace(req.Location)
	profile.LinkedIn = strings.TrimSpace(req.LinkedIn)
	profile.GitHub = strings.TrimSpace(req.GitHub)
	profile.Portfolio = strings.TrimSpace(req.Portfolio)
	profile.Summary = strings.TrimSpace(req.Summary)

	saved, err := h.service.UpsertProfile(r.Context(), profile)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("personal info saved",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())))
	_ = utils.WriteOK(w, saved)
}
