package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ContentBlock tests
func TestNewContentBlock(t *testing.T) {
	block := NewContentBlock("Vector CV", "Monate Media", "RAG resume builder", []string{"Go", "pgvector"}, CategoryPillarProject, "")

	assert.NotEqual(t, uuid.Nil, block.ID)
	assert.Equal(t, "Vector CV", block.Title)
	assert.Equal(t, CategoryPillarProject, block.Category)
	assert.Equal(t, DefaultPriority, block.Priority)
	assert.False(t, block.CreatedAt.IsZero())
	assert.Equal(t, block.CreatedAt, block.UpdatedAt)
}

func TestNewContentBlock_NilTags(t *testing.T) {
	block := NewContentBlock("Edu", "", "BSc", nil, CategoryEducation, "2")

	require.NotNil(t, block.Tags)
	assert.Empty(t, block.Tags)
	assert.Equal(t, "2", block.Priority)
}

func TestContentBlock_TableName(t *testing.T) {
	assert.Equal(t, "experience_blocks", ContentBlock{}.TableName())
}

func TestContentBlock_CanonicalText(t *testing.T) {
	tests := []struct {
		name     string
		block    ContentBlock
		expected string
	}{
		{
			name:     "with organization",
			block:    ContentBlock{Title: "Backend Dev", Organization: "Acme", Body: "Built APIs.", Tags: []string{"Go", "Postgres"}},
			expected: "Backend Dev at Acme: Built APIs. Keywords: Go, Postgres",
		},
		{
			name:     "without organization",
			block:    ContentBlock{Title: "Skills", Body: "Everything.", Tags: []string{"Docker"}},
			expected: "Skills: Everything. Keywords: Docker",
		},
		{
			name:     "no tags",
			block:    ContentBlock{Title: "Edu", Body: "BSc"},
			expected: "Edu: BSc Keywords: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.block.CanonicalText())
		})
	}
}

func TestContentBlock_HasTagContaining(t *testing.T) {
	block := ContentBlock{Tags: []string{"Docker Compose", "PostgreSQL + GIS"}}

	assert.True(t, block.HasTagContaining("docker"))
	assert.True(t, block.HasTagContaining("GIS"))
	assert.True(t, block.HasTagContaining("postgres"))
	assert.False(t, block.HasTagContaining("Kubernetes"))
}

func TestContentBlock_JSONHidesEmbedding(t *testing.T) {
	block := NewContentBlock("T", "", "B", nil, CategoryEmployment, "")
	block.Embedding = pgvector.NewVector([]float32{0.125, 0.5})

	data, err := json.Marshal(block)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "embedding")
	assert.Contains(t, string(data), `"category":"employment"`)
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		raw       string
		expected  Category
		expectErr bool
	}{
		{raw: "pillar_project", expected: CategoryPillarProject},
		{raw: "Supporting_Project", expected: CategorySupportingProject},
		{raw: " employment ", expected: CategoryEmployment},
		{raw: "education", expected: CategoryEducation},
		{raw: "skills_summary", expected: CategorySkillsSummary},
		{raw: "", expected: CategorySupportingProject},
		{raw: "hobby", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			c, err := ParseCategory(tt.raw)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, c)
		})
	}
}

func TestCategories_AllValid(t *testing.T) {
	categories := Categories()
	assert.Len(t, categories, 5)
	for _, c := range categories {
		assert.True(t, c.Valid(), c)
	}
	assert.False(t, Category("other").Valid())
}

func TestContentBlockPatch_Apply(t *testing.T) {
	t.Run("body change requires re-embedding", func(t *testing.T) {
		block := NewContentBlock("T", "O", "old", []string{"a"}, CategorySupportingProject, "")
		body := "new"

		changed := ContentBlockPatch{Body: &body}.Apply(block)

		assert.True(t, changed)
		assert.Equal(t, "new", block.Body)
	})

	t.Run("tag change requires re-embedding", func(t *testing.T) {
		block := NewContentBlock("T", "O", "body", []string{"a"}, CategorySupportingProject, "")
		tags := []string{"a", "b"}

		assert.True(t, ContentBlockPatch{Tags: &tags}.Apply(block))
		assert.Equal(t, []string{"a", "b"}, block.Tags)
	})

	t.Run("priority change keeps embedding", func(t *testing.T) {
		block := NewContentBlock("T", "O", "body", nil, CategorySupportingProject, "")
		before := block.UpdatedAt
		priority := "1"
		category := CategoryPillarProject

		time.Sleep(time.Millisecond)
		changed := ContentBlockPatch{Priority: &priority, Category: &category}.Apply(block)

		assert.False(t, changed)
		assert.Equal(t, "1", block.Priority)
		assert.Equal(t, CategoryPillarProject, block.Category)
		assert.True(t, block.UpdatedAt.After(before))
	})
}

// ProfileInfo tests
func TestNewProfileInfo(t *testing.T) {
	profile := NewProfileInfo("Edward")

	assert.NotEqual(t, uuid.Nil, profile.ID)
	assert.Equal(t, "Edward", profile.Name)
	assert.Equal(t, "personal_info", profile.TableName())
}

// StyleGuideline tests
func TestNewStyleGuideline(t *testing.T) {
	g := NewStyleGuideline("Concise", "One line per bullet", nil)

	assert.True(t, g.IsActive)
	assert.JSONEq(t, `{}`, string(g.Rules))
	assert.Equal(t, "style_guidelines", g.TableName())
}

// JobApplication tests
func TestNewJobApplication(t *testing.T) {
	app := NewJobApplication("Tripco", "Backend Engineer", "Go and Postgres", "https://example.com/job")

	assert.NotEqual(t, uuid.Nil, app.ID)
	assert.Equal(t, StatusDraft, app.Status)
	assert.JSONEq(t, `{}`, string(app.SkillsGapReport))
	assert.NotNil(t, app.SelectedBlockIDs)
	assert.Nil(t, app.AppliedDate)
}

func TestParseApplicationStatus(t *testing.T) {
	for _, s := range []string{"draft", "applied", "interviewing", "rejected", "offer", "accepted"} {
		status, err := ParseApplicationStatus(s)
		require.NoError(t, err)
		assert.Equal(t, ApplicationStatus(s), status)
	}

	_, err := ParseApplicationStatus("ghosted")
	assert.Error(t, err)

	for _, s := range ApplicationStatuses() {
		assert.True(t, s.Valid())
	}
	assert.Len(t, ApplicationStatuses(), 6)
}

func TestApplicationUpdate_Apply(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("applied stamps date", func(t *testing.T) {
		app := NewJobApplication("c", "t", "s", "")
		status := StatusApplied

		ApplicationUpdate{Status: &status}.Apply(app, now)

		require.NotNil(t, app.AppliedDate)
		assert.Equal(t, now, *app.AppliedDate)
		assert.Equal(t, StatusApplied, app.Status)
	})

	t.Run("explicit date wins", func(t *testing.T) {
		app := NewJobApplication("c", "t", "s", "")
		status := StatusApplied
		date := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

		ApplicationUpdate{Status: &status, AppliedDate: &date}.Apply(app, now)

		assert.Equal(t, date, *app.AppliedDate)
	})

	t.Run("notes only", func(t *testing.T) {
		app := NewJobApplication("c", "t", "s", "")
		notes := "recruiter call on monday"

		ApplicationUpdate{Notes: &notes}.Apply(app, now)

		assert.Equal(t, notes, app.Notes)
		assert.Equal(t, StatusDraft, app.Status)
		assert.Nil(t, app.AppliedDate)
		assert.Equal(t, now, app.UpdatedAt)
	})
}
