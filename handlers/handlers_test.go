package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/upb/vector-cv/config"
	"github.com/upb/vector-cv/middleware"
	"github.com/upb/vector-cv/repositories"
	"github.com/upb/vector-cv/repositories/memory"
	"github.com/upb/vector-cv/services/application"
	"github.com/upb/vector-cv/services/content"
	"github.com/upb/vector-cv/services/embedding"
	"github.com/upb/vector-cv/services/generation"
	"github.com/upb/vector-cv/services/providers"
	"github.com/upb/vector-cv/services/ratelimit"
	"github.com/upb/vector-cv/services/selection"
	"github.com/upb/vector-cv/services/skills"
	"go.uber.org/zap"
)

// scriptedLLM answers each request by its step metadata
type scriptedLLM struct {
	mu    sync.Mutex
	fail  map[string]error
	calls map[string]int
}

func newScriptedLLM() *scriptedLLM {
	return &scriptedLLM{fail: map[string]error{}, calls: map[string]int{}}
}

func (s *scriptedLLM) Name() string { return "scripted" }

func (s *scriptedLLM) ChatCompletion(_ context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	step := req.Metadata["step"]

	s.mu.Lock()
	s.calls[step]++
	err := s.fail[step]
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}

	var text string
	switch step {
	case "skill_extraction":
		text = `{"skills":["Go","Docker"]}`
	case generation.StepSkillsGap:
		text = `{"missing_skills":["Rust"],"matching_skills":["Go"],"partial_matches":[],"recommendations":["Mention Docker"]}`
	case generation.StepCV:
		text = "# Edward\n\nGo developer"
	case generation.StepCoverLetter:
		text = "Dear hiring manager"
	}
	return &providers.ChatResponse{Choices: []providers.Choice{{Message: providers.Message{Role: "assistant", Content: text}}}}, nil
}

func (s *scriptedLLM) failStep(step string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[step] = err
}

func (s *scriptedLLM) callCount(step string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[step]
}

type testServer struct {
	router  chi.Router
	repos   *repositories.Repositories
	llm     *scriptedLLM
	limiter *ratelimit.Limiter
}

// newTestServer wires real services over the in-memory store
func newTestServer(t *testing.T, quota int) *testServer {
	t.Helper()
	logger := zap.NewNop()
	repos := memory.NewRepositories()
	llm := newScriptedLLM()

	embedder := embedding.NewService(embedding.NewFallbackEmbedder(16), 16, time.Second, nil, nil, logger)
	extractor := skills.NewExtractor(llm, "test-model", 0, time.Second, nil, logger)
	engine := selection.NewEngine(repos.ContentBlocks, embedder, extractor, nil, logger)
	generator := generation.NewService(llm, config.GenerationConfig{Model: "test-model"}, nil, logger)
	limiter := ratelimit.NewLimiter(quota, 24*time.Hour, nil, logger)

	contentSvc := content.NewService(repos, memory.TransactionManager{}, embedder, logger)
	appSvc := application.NewService(repos, engine, generator, limiter, nil, logger)

	blocks := NewBlockHandler(contentSvc, engine, logger)
	profiles := NewProfileHandler(contentSvc, logger)
	guidelines := NewGuidelineHandler(contentSvc, logger)
	apps := NewApplicationHandler(appSvc, logger)

	r := chi.NewRouter()
	r.Use(middleware.ClientIP)
	r.Get("/personal-info", profiles.HandleGetProfile)
	r.Post("/personal-info", profiles.HandleUpsertProfile)
	r.Get("/experience-blocks", blocks.HandleListBlocks)
	r.Post("/experience-blocks", blocks.HandleCreateBlock)
	r.Post("/experience-blocks/select", blocks.HandleSelect)
	r.Get("/experience-blocks/{id}", blocks.HandleGetBlock)
	r.Patch("/experience-blocks/{id}", blocks.HandleUpdateBlock)
	r.Delete("/experience-blocks/{id}", blocks.HandleDeleteBlock)
	r.Get("/applications", apps.HandleListApplications)
	r.Post("/applications", apps.HandleGenerate)
	r.Get("/applications/{id}", apps.HandleGetApplication)
	r.Patch("/applications/{id}", apps.HandleUpdateApplication)
	r.Get("/usage-stats", apps.HandleUsage)
	r.Get("/style-guidelines", guidelines.HandleListGuidelines)
	r.Post("/style-guidelines", guidelines.HandleCreateGuideline)

	return &testServer{router: r, repos: repos, llm: llm, limiter: limiter}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.9:40000"

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// decodeData unwraps the {"data": ...} envelope into dst
func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dst))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

var errUpstream = errors.New("upstream exploded")
