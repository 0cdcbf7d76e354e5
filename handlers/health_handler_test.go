package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/vector-cv/repositories/postgres"
	"go.uber.org/zap"
)

func TestHandleHealth(t *testing.T) {
	handler := NewHealthHandler(nil, StatusInfo{}, zap.NewNop())

	w := httptest.NewRecorder()
	handler.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func decodeReadiness(t *testing.T, w *httptest.ResponseRecorder) ReadinessResponse {
	t.Helper()
	var resp ReadinessResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestHandleReadiness(t *testing.T) {
	logger := zap.NewNop()

	t.Run("healthy when database is available", func(t *testing.T) {
		sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer sqlDB.Close()

		mock.ExpectPing()
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

		handler := NewHealthHandler(postgres.WrapDB(sqlDB, logger), StatusInfo{Store: "postgres", Providers: []string{"openai"}}, logger)

		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeReadiness(t, w)
		assert.Equal(t, "ready", resp.Status)
		assert.Equal(t, "healthy", resp.Checks["database"])
		assert.Equal(t, "configured", resp.Checks["providers"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unhealthy when database ping fails", func(t *testing.T) {
		sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer sqlDB.Close()

		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		handler := NewHealthHandler(postgres.WrapDB(sqlDB, logger), StatusInfo{Store: "postgres"}, logger)

		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		resp := decodeReadiness(t, w)
		assert.Equal(t, "not_ready", resp.Status)
		assert.Equal(t, "unhealthy", resp.Checks["database"])
		assert.Equal(t, "none_configured", resp.Checks["providers"])
	})

	t.Run("postgres store without a connection", func(t *testing.T) {
		handler := NewHealthHandler(nil, StatusInfo{Store: "postgres"}, logger)

		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "not_initialized", decodeReadiness(t, w).Checks["database"])
	})

	t.Run("memory store needs no database", func(t *testing.T) {
		handler := NewHealthHandler(nil, StatusInfo{Store: "memory"}, logger)

		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeReadiness(t, w)
		assert.Equal(t, "ready", resp.Status)
		assert.Equal(t, "not_required", resp.Checks["database"])
	})
}

func TestHandleStatus(t *testing.T) {
	handler := NewHealthHandler(nil, StatusInfo{
		Environment: "test",
		Store:       "memory",
		Embedding:   "fallback",
		Generation:  "openai",
	}, zap.NewNop())

	w := httptest.NewRecorder()
	handler.HandleStatus(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data StatusResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, Version, resp.Data.Version)
	assert.Equal(t, "test", resp.Data.Environment)
	assert.Equal(t, "fallback", resp.Data.Embedding)
	assert.Empty(t, resp.Data.Providers)
	assert.NotNil(t, resp.Data.Providers)
}
