package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Category determines how the selection engine treats a content block
type Category string

const (
	CategoryPillarProject     Category = "pillar_project"
	CategorySupportingProject Category = "supporting_project"
	CategoryEmployment        Category = "employment"
	CategoryEducation         Category = "education"
	CategorySkillsSummary     Category = "skills_summary"
)

// DefaultPriority is assigned to blocks created without an explicit priority
const DefaultPriority = "3"

// Categories lists every valid category in display order
func Categories() []Category {
	return []Category{
		CategoryPillarProject,
		CategorySupportingProject,
		CategoryEmployment,
		CategoryEducation,
		CategorySkillsSummary,
	}
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	switch c {
	case CategoryPillarProject, CategorySupportingProject, CategoryEmployment,
		CategoryEducation, CategorySkillsSummary:
		return true
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory converts a raw value into a Category, rejecting unknown values.
// An empty value yields the supporting project default.
func ParseCategory(raw string) (Category, error) {
	value := strings.TrimSpace(strings.ToLower(raw))
	if value == "" {
		return CategorySupportingProject, nil
	}
	c := Category(value)
	if !c.Valid() {
		return "", fmt.Errorf("invalid category: %q", raw)
	}
	return c, nil
}

// ContentBlock represents one reusable piece of candidate experience
type ContentBlock struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Title        string          `json:"title" db:"title"`
	Organization string          `json:"organization,omitempty" db:"organization"`
	Body         string          `json:"body" db:"body"`
	Tags         []string        `json:"tags" db:"tags"`
	Category     Category        `json:"category" db:"category"`
	Priority     string          `json:"priority" db:"priority"`
	Embedding    pgvector.Vector `json:"-" db:"embedding"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the ContentBlock model
func (ContentBlock) TableName() string {
	return "experience_blocks"
}

// NewContentBlock creates a new ContentBlock instance without an embedding
func NewContentBlock(title, organization, body string, tags []string, category Category, priority string) *ContentBlock {
	now := time.Now().UTC()
	if priority == "" {
		priority = DefaultPriority
	}
	if tags == nil {
		tags = []string{}
	}
	return &ContentBlock{
		ID:           uuid.New(),
		Title:        title,
		Organization: organization,
		Body:         body,
		Tags:         tags,
		Category:     category,
		Priority:     priority,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CanonicalText is the text the block embedding is derived from
func (b *ContentBlock) CanonicalText() string {
	var sb strings.Builder
	sb.WriteString(b.Title)
	if b.Organization != "" {
		sb.WriteString(" at ")
		sb.WriteString(b.Organization)
	}
	sb.WriteString(": ")
	sb.WriteString(b.Body)
	sb.WriteString(" Keywords: ")
	sb.WriteString(strings.Join(b.Tags, ", "))
	return sb.String()
}

// HasTagContaining reports whether any tag contains token, ignoring case
func (b *ContentBlock) HasTagContaining(token string) bool {
	needle := strings.ToLower(token)
	for _, tag := range b.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// ContentBlockPatch carries a partial update. Nil fields are left untouched.
type ContentBlockPatch struct {
	Title        *string
	Organization *string
	Body         *string
	Tags         *[]string
	Category     *Category
	Priority     *string
}

// Apply mutates the block and reports whether the embedding text changed
func (p ContentBlockPatch) Apply(b *ContentBlock) bool {
	before := b.CanonicalText()
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Organization != nil {
		b.Organization = *p.Organization
	}
	if p.Body != nil {
		b.Body = *p.Body
	}
	if p.Tags != nil {
		b.Tags = append([]string{}, (*p.Tags)...)
	}
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.Priority != nil {
		b.Priority = *p.Priority
	}
	b.UpdatedAt = time.Now().UTC()
	return b.CanonicalText() != before
}
