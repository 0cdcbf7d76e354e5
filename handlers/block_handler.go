package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/vector-cv/middleware"
	"github.com/upb/vector-cv/models"
	"github.com/upb/vector-cv/services/content"
	"github.com/upb/vector-cv/services/selection"
	"github.com/upb/vector-cv/utils"
	"go.uber.org/zap"
)

// CreateBlockRequest is the body of POST /experience-blocks
type CreateBlockRequest struct {
	Title        string   `json:"title" validate:"required,max=200"`
	Organization string   `json:"organization" validate:"max=200"`
	Body         string   `json:"body" validate:"required"`
	Tags         []string `json:"tags" validate:"max=50,dive,max=100"`
	Category     string   `json:"category" validate:"category"`
	Priority     string   `json:"priority" validate:"omitempty,oneof=1 2 3 4 5"`
}

// UpdateBlockRequest is the body of PATCH /experience-blocks/{id}
type UpdateBlockRequest struct {
	Title        *string   `json:"title" validate:"omitempty,max=200"`
	Organization *string   `json:"organization" validate:"omitempty,max=200"`
	Body         *string   `json:"body"`
	Tags         *[]string `json:"tags" validate:"omitempty,max=50,dive,max=100"`
	Category     *string   `json:"category" validate:"omitempty,category"`
	Priority     *string   `json:"priority" validate:"omitempty,oneof=1 2 3 4 5"`
}

// SelectRequest is the body of POST /experience-blocks/select
type SelectRequest struct {
	JobDescription string `json:"job_description"`
}

// BlockService is the block part of the content service
type BlockService interface {
	CreateBlock(ctx context.Context, in content.CreateBlockInput) (*models.ContentBlock, error)
	GetBlock(ctx context.Context, id uuid.UUID) (*models.ContentBlock, error)
	ListBlocks(ctx context.Context, category string) ([]*models.ContentBlock, error)
	UpdateBlock(ctx context.Context, id uuid.UUID, patch models.ContentBlockPatch) (*models.ContentBlock, error)
	DeleteBlock(ctx context.Context, id uuid.UUID) error
}

// Selector runs block selection
type Selector interface {
	Select(ctx context.Context, jobDescription string) (*selection.Result, error)
}

// BlockHandler handles experience block requests
type BlockHandler struct {
	service  BlockService
	selector Selector
	logger   *zap.Logger
}

// NewBlockHandler creates a new BlockHandler
func NewBlockHandler(service BlockService, selector Selector, logger *zap.Logger) *BlockHandler {
	return &BlockHandler{
		service:  service,
		selector: selector,
		logger:   logger,
	}
}

// HandleListBlocks handles GET /api/v1/experience-blocks
func (h *BlockHandler) HandleListBlocks(w http.ResponseWriter, r *http.Request) {
	blocks, err := h.service.ListBlocks(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, blocks)
}

// HandleCreateBlock handles POST /api/v1/experience-blocks
func (h *BlockHandler) HandleCreateBlock(w http.ResponseWriter, r *http.Request) {
	var req CreateBlockRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	block, err := h.service.CreateBlock(r.Context(), content.CreateBlockInput{
		Title:        req.Title,
		Organization: req.Organization,
		Body:         req.Body,
		Tags:         req.Tags,
		Category:     req.Category,
		Priority:     req.Priority,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Debug("experience block created",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("block_id", block.ID.String()))
	_ = utils.WriteCreated(w, block)
}

// HandleGetBlock handles GET /api/v1/experience-blocks/{id}
func (h *BlockHandler) HandleGetBlock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	block, err := h.service.GetBlock(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, block)
}

// HandleUpdateBlock handles PATCH /api/v1/experience-blocks/{id}
func (h *BlockHandler) HandleUpdateBlock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdateBlockRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	patch := models.ContentBlockPatch{
		Title:        req.Title,
		Organization: req.Organization,
		Body:         req.Body,
		Tags:         req.Tags,
		Priority:     req.Priority,
	}
	if req.Category != nil {
		c := models.Category(strings.ToLower(strings.TrimSpace(*req.Category)))
		patch.Category = &c
	}

	block, err := h.service.UpdateBlock(r.Context(), id, patch)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, block)
}

// HandleDeleteBlock handles DELETE /api/v1/experience-blocks/{id}
func (h *BlockHandler) HandleDeleteBlock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteBlock(r.Context(), id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}

// HandleSelect handles POST /api/v1/experience-blocks/select. It runs
// selection without generating anything or consuming quota.
func (h *BlockHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	result, err := h.selector.Select(r.Context(), req.JobDescription)
	if err != nil {
		h.logger.Error("block selection failed", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to select experience blocks")
		return
	}
	_ = utils.WriteOK(w, result)
}

// pathID parses the {id} URL parameter, writing a 400 when it is malformed
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := utils.ParseUUID(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "invalid_id", err.Error(), nil)
		return uuid.Nil, false
	}
	return id, true
}
