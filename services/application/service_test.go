package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/vector-cv/models"
	"github.com/upb/vector-cv/repositories"
	"github.com/upb/vector-cv/repositories/memory"
	"github.com/upb/vector-cv/services"
	"github.com/upb/vector-cv/services/generation"
	"github.com/upb/vector-cv/services/ratelimit"
	"github.com/upb/vector-cv/services/selection"
	"go.uber.org/zap"
)

// MockSelector is a mock implementation of Selector
type MockSelector struct {
	mock.Mock
}

func (m *MockSelector) Select(ctx context.Context, job string) (*selection.Result, error) {
	args := m.Called(ctx, job)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*selection.Result), args.Error(1)
}

// MockGenerator is a mock implementation of Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateAll(ctx context.Context, profile *models.ProfileInfo, blocks []*models.ContentBlock, guidelines []*models.StyleGuideline, job, company, title string) (*generation.Documents, error) {
	args := m.Called(ctx, profile, blocks, guidelines, job, company, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*generation.Documents), args.Error(1)
}

type harness struct {
	svc       *Service
	repos     *repositories.Repositories
	selector  *MockSelector
	generator *MockGenerator
	limiter   *ratelimit.Limiter
}

func newHarness(t *testing.T, withProfile bool) *harness {
	t.Helper()
	repos := memory.NewRepositories()
	if withProfile {
		require.NoError(t, repos.Profiles.Upsert(context.Background(), models.NewProfileInfo("Ada")))
	}
	h := &harness{
		repos:     repos,
		selector:  new(MockSelector),
		generator: new(MockGenerator),
		limiter:   ratelimit.NewLimiter(1, 24*time.Hour, nil, zap.NewNop()),
	}
	h.svc = NewService(repos, h.selector, h.generator, h.limiter, nil, zap.NewNop())
	return h
}

func selected(n int) *selection.Result {
	r := &selection.Result{Tokens: []string{"Go"}}
	for i := 0; i < n; i++ {
		r.Blocks = append(r.Blocks, models.NewContentBlock("Block", "", "body", nil, models.CategorySupportingProject, ""))
	}
	return r
}

func docs() *generation.Documents {
	return &generation.Documents{
		CV:          "# CV",
		CoverLetter: "Dear team",
		SkillsGap:   generation.SkillsGapReport{MissingSkills: []string{"Rust"}, MatchingSkills: []string{}, PartialMatches: []string{}, Recommendations: []string{}},
	}
}

var input = GenerateInput{CompanyName: "Tripco", JobTitle: "Backend", JobSpec: "Go and Docker", ClientKey: "10.0.0.1"}

func TestService_Generate_Success(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	result := selected(2)
	h.selector.On("Select", mock.Anything, "Go and Docker").Return(result, nil).Once()
	h.generator.On("GenerateAll", mock.Anything, mock.Anything, result.Blocks, mock.Anything, "Go and Docker", "Tripco", "Backend").
		Return(docs(), nil).Once()

	app, err := h.svc.Generate(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "# CV", app.GeneratedCV)
	assert.Equal(t, "Dear team", app.GeneratedCoverLetter)
	assert.Equal(t, result.BlockIDs(), app.SelectedBlockIDs)
	assert.Equal(t, models.StatusDraft, app.Status)

	var report generation.SkillsGapReport
	require.NoError(t, json.Unmarshal(app.SkillsGapReport, &report))
	assert.Equal(t, []string{"Rust"}, report.MissingSkills)

	stored, err := h.svc.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tripco", stored.CompanyName)

	usage := h.svc.Usage(input.ClientKey)
	assert.Equal(t, 1, usage.Used)
	assert.False(t, usage.Allowed)
}

func TestService_Generate_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("empty job spec", func(t *testing.T) {
		h := newHarness(t, true)
		_, err := h.svc.Generate(ctx, GenerateInput{JobSpec: "  "})
		assert.ErrorIs(t, err, services.ErrEmptyJobSpec)
	})

	t.Run("missing profile", func(t *testing.T) {
		h := newHarness(t, false)
		_, err := h.svc.Generate(ctx, input)
		assert.ErrorIs(t, err, services.ErrProfileMissing)
		assert.Equal(t, services.CodeProfileMissing, services.GetErrorCode(err))
		h.selector.AssertNotCalled(t, "Select", mock.Anything, mock.Anything)
	})

	t.Run("no content", func(t *testing.T) {
		h := newHarness(t, true)
		h.selector.On("Select", mock.Anything, mock.Anything).Return(selected(0), nil).Once()

		_, err := h.svc.Generate(ctx, input)
		assert.ErrorIs(t, err, services.ErrNoContent)
		assert.Equal(t, 0, h.svc.Usage(input.ClientKey).Used)
		h.generator.AssertNumberOfCalls(t, "GenerateAll", 0)
	})

	t.Run("selection store failure", func(t *testing.T) {
		h := newHarness(t, true)
		h.selector.On("Select", mock.Anything, mock.Anything).Return(nil, errors.New("db down")).Once()

		_, err := h.svc.Generate(ctx, input)
		assert.True(t, services.IsInternalError(err))
	})

	t.Run("generation failure keeps quota", func(t *testing.T) {
		h := newHarness(t, true)
		h.selector.On("Select", mock.Anything, mock.Anything).Return(selected(1), nil).Once()
		h.generator.On("GenerateAll", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, services.NewGenerationError(generation.StepCV, errors.New("timeout"))).Once()

		_, err := h.svc.Generate(ctx, input)
		assert.True(t, services.IsExternalError(err))
		assert.Equal(t, 0, h.svc.Usage(input.ClientKey).Used, "quota is not consumed")

		list, err := h.svc.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list, "nothing is persisted")
	})

	t.Run("quota exhausted", func(t *testing.T) {
		h := newHarness(t, true)
		h.limiter.Record(input.ClientKey)

		_, err := h.svc.Generate(ctx, input)
		require.Error(t, err)
		assert.True(t, services.IsRateLimitError(err))
		details := services.GetErrorDetails(err)
		assert.Equal(t, 1, details["used"])
		assert.Equal(t, 1, details["limit"])
		h.selector.AssertNotCalled(t, "Select", mock.Anything, mock.Anything)
	})
}

func TestService_Generate_NoQuota(t *testing.T) {
	repos := memory.NewRepositories()
	require.NoError(t, repos.Profiles.Upsert(context.Background(), models.NewProfileInfo("Ada")))
	selector := new(MockSelector)
	generator := new(MockGenerator)
	selector.On("Select", mock.Anything, mock.Anything).Return(selected(1), nil)
	generator.On("GenerateAll", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(docs(), nil)
	svc := NewService(repos, selector, generator, nil, nil, zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := svc.Generate(context.Background(), input)
		require.NoError(t, err)
	}
	assert.True(t, svc.Usage("anyone").Allowed)
}

func TestService_UpdateTracking(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	h.svc.now = func() time.Time { return now }

	app := models.NewJobApplication("Tripco", "Backend", "Go developer", "")
	require.NoError(t, h.repos.Applications.Create(ctx, app))

	t.Run("applied stamps the date", func(t *testing.T) {
		status := models.StatusApplied
		notes := "sent via portal"
		updated, err := h.svc.UpdateTracking(ctx, app.ID, models.ApplicationUpdate{Status: &status, Notes: &notes})
		require.NoError(t, err)
		require.NotNil(t, updated.AppliedDate)
		assert.Equal(t, now, *updated.AppliedDate)

		stored, err := h.svc.Get(ctx, app.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApplied, stored.Status)
		assert.Equal(t, "sent via portal", stored.Notes)
	})

	t.Run("invalid status", func(t *testing.T) {
		bad := models.ApplicationStatus("ghosted")
		_, err := h.svc.UpdateTracking(ctx, app.ID, models.ApplicationUpdate{Status: &bad})
		assert.ErrorIs(t, err, services.ErrInvalidStatus)
	})

	t.Run("missing application", func(t *testing.T) {
		_, err := h.svc.UpdateTracking(ctx, uuid.New(), models.ApplicationUpdate{})
		assert.ErrorIs(t, err, services.ErrApplicationNotFound)
	})
}
