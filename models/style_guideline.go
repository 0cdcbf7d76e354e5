package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// StyleGuideline is a named writing rule applied to generated CVs
type StyleGuideline struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description,omitempty" db:"description"`
	Rules       json.RawMessage `json:"rules" db:"rules"` // JSONB object
	IsActive    bool            `json:"is_active" db:"is_active"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the StyleGuideline model
func (StyleGuideline) TableName() string {
	return "style_guidelines"
}

// NewStyleGuideline creates an active StyleGuideline. Empty rules become {}.
func NewStyleGuideline(name, description string, rules json.RawMessage) *StyleGuideline {
	if len(rules) == 0 {
		rules = json.RawMessage(`{}`)
	}
	return &StyleGuideline{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		Rules:       rules,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}
}
