package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/vector-cv/models"
	"github.com/upb/vector-cv/services/selection"
)

func createBlock(t *testing.T, s *testServer, body map[string]interface{}) models.ContentBlock {
	t.Helper()
	w := s.do(t, http.MethodPost, "/experience-blocks", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var block models.ContentBlock
	decodeData(t, w, &block)
	return block
}

func TestHandleCreateBlock(t *testing.T) {
	s := newTestServer(t, 3)

	t.Run("creates with defaults", func(t *testing.T) {
		block := createBlock(t, s, map[string]interface{}{
			"title": "Search service",
			"body":  "Built a search service in Go",
			"tags":  []string{" Go ", "Elasticsearch"},
		})

		assert.NotEqual(t, uuid.Nil, block.ID)
		assert.Equal(t, models.CategorySupportingProject, block.Category)
		assert.Equal(t, models.DefaultPriority, block.Priority)
		assert.Equal(t, []string{"Go", "Elasticsearch"}, block.Tags)

		stored, err := s.repos.ContentBlocks.GetByID(t.Context(), block.ID)
		require.NoError(t, err)
		assert.Len(t, stored.Embedding.Slice(), 16)
	})

	tests := []struct {
		name  string
		body  interface{}
		field string
	}{
		{"missing title", map[string]interface{}{"body": "x"}, "title"},
		{"missing body", map[string]interface{}{"title": "x"}, "body"},
		{"unknown category", map[string]interface{}{"title": "x", "body": "y", "category": "hobby"}, "category"},
		{"bad priority", map[string]interface{}{"title": "x", "body": "y", "priority": "9"}, "priority"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/experience-blocks", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			resp := decodeError(t, w)
			details, ok := resp["details"].(map[string]interface{})
			require.True(t, ok, "validation errors carry field details")
			assert.Contains(t, details, tt.field)
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/experience-blocks", `{"title":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_body", decodeError(t, w)["code"])
	})

	t.Run("unknown field", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/experience-blocks", `{"title":"x","body":"y","colour":"red"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleListBlocks(t *testing.T) {
	s := newTestServer(t, 3)
	createBlock(t, s, map[string]interface{}{"title": "School", "body": "BSc", "category": "education"})
	createBlock(t, s, map[string]interface{}{"title": "Job", "body": "Engineer", "category": "employment"})

	w := s.do(t, http.MethodGet, "/experience-blocks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []models.ContentBlock
	decodeData(t, w, &all)
	assert.Len(t, all, 2)

	w = s.do(t, http.MethodGet, "/experience-blocks?category=education", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var filtered []models.ContentBlock
	decodeData(t, w, &filtered)
	require.Len(t, filtered, 1)
	assert.Equal(t, "School", filtered[0].Title)

	w = s.do(t, http.MethodGet, "/experience-blocks?category=hobby", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleBlockLifecycle(t *testing.T) {
	s := newTestServer(t, 3)
	block := createBlock(t, s, map[string]interface{}{"title": "API", "body": "REST API", "tags": []string{"Go"}})
	path := "/experience-blocks/" + block.ID.String()

	w := s.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPatch, path, map[string]interface{}{"body": "gRPC API", "category": "pillar_project"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.ContentBlock
	decodeData(t, w, &updated)
	assert.Equal(t, "gRPC API", updated.Body)
	assert.Equal(t, "API", updated.Title)
	assert.Equal(t, models.CategoryPillarProject, updated.Category)

	w = s.do(t, http.MethodPatch, path, map[string]interface{}{"category": "hobby"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/experience-blocks/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSelect(t *testing.T) {
	s := newTestServer(t, 3)
	pillar := createBlock(t, s, map[string]interface{}{"title": "Platform", "body": "Core platform", "category": "pillar_project"})
	docker := createBlock(t, s, map[string]interface{}{"title": "Containers", "body": "Compose setup", "tags": []string{"Docker"}})

	w := s.do(t, http.MethodPost, "/experience-blocks/select", map[string]string{"job_description": "Go and Docker engineer"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result selection.Result
	decodeData(t, w, &result)
	require.GreaterOrEqual(t, len(result.Blocks), 2)
	assert.Equal(t, pillar.ID, result.Blocks[0].ID)
	assert.Equal(t, docker.ID, result.Blocks[1].ID)
	assert.Equal(t, []string{"Go", "Docker"}, result.Tokens)
	assert.True(t, result.Fallback)

	t.Run("empty job text still selects pillars", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/experience-blocks/select", map[string]string{"job_description": ""})
		require.Equal(t, http.StatusOK, w.Code)
		var r selection.Result
		decodeData(t, w, &r)
		require.NotEmpty(t, r.Blocks)
		assert.Equal(t, pillar.ID, r.Blocks[0].ID)
	})
}
