package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/upb/vector-cv/models"
	"github.com/upb/vector-cv/utils"
	"go.uber.org/zap"
)

// CreateGuidelineRequest is the body of POST /style-guidelines
type CreateGuidelineRequest struct {
	Name        string          `json:"name" validate:"required,max=100"`
	Description string          `json:"description" validate:"max=2000"`
	Rules       json.RawMessage `json:"rules"`
	IsActive    *bool           `json:"is_active"`
}

// GuidelineService is the guideline part of the content service
type GuidelineService interface {
	CreateGuideline(ctx context.Context, g *models.StyleGuideline) (*models.StyleGuideline, error)
	ListGuidelines(ctx context.Context) ([]*models.StyleGuideline, error)
}

// GuidelineHandler handles the style guideline endpoints
type GuidelineHandler struct {
	service GuidelineService
	logger  *zap.Logger
}

// NewGuidelineHandler creates a new GuidelineHandler
func NewGuidelineHandler(service GuidelineService, logger *zap.Logger) *GuidelineHandler {
	return &GuidelineHandler{service: service, logger: logger}
}

// HandleListGuidelines handles GET /api/v1/style-guidelines
func (h *GuidelineHandler) HandleListGuidelines(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListGuidelines(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, list)
}

// HandleCreateGuideline handles POST /api/v1/style-guidelines
func (h *GuidelineHandler) HandleCreateGuideline(w http.ResponseWriter, r *http.Request) {
	var req CreateGuidelineRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	if len(req.Rules) > 0 && !isJSONObject(req.Rules) {
		_ = utils.WriteBadRequest(w, "validation_failed", "Validation failed", map[string]interface{}{
			"rules": "rules must be a JSON object",
		})
		return
	}

	g := models.NewStyleGuideline(strings.TrimSpace(req.Name), strings.TrimSpace(req.Description), req.Rules)
	if req.IsActive != nil {
		g.IsActive = *req.IsActive
	}

	saved, err := h.service.CreateGuideline(r.Context(), g)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, saved)
}

func isJSONObject(raw json.RawMessage) bool {
	var obj map[string]interface{}
	return json.Unmarshal(raw, &obj) == nil && obj != nil
}
