package models

import (
	"time"

	"github.com/google/uuid"
)

// ProfileInfo holds the candidate's contact and summary data.
// At most one row exists; writes are upserts.
type ProfileInfo struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email,omitempty" db:"email"`
	Phone     string    `json:"phone,omitempty" db:"phone"`
	Location  string    `json:"location,omitempty" db:"location"`
	LinkedIn  string    `json:"linkedin,omitempty" db:"linkedin"`
	GitHub    string    `json:"github,omitempty" db:"github"`
	Portfolio string    `json:"portfolio,omitempty" db:"portfolio"`
	Summary   string    `json:"summary,omitempty" db:"summary"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the ProfileInfo model
func (ProfileInfo) TableName() string {
	return "personal_info"
}

// NewProfileInfo creates a new ProfileInfo instance
func NewProfileInfo(name string) *ProfileInfo {
	now := time.Now().UTC()
	return &ProfileInfo{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
