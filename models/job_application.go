package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus tracks where a job application is in the hiring process
type ApplicationStatus string

const (
	StatusDraft        ApplicationStatus = "draft"
	StatusApplied      ApplicationStatus = "applied"
	StatusInterviewing ApplicationStatus = "interviewing"
	StatusRejected     ApplicationStatus = "rejected"
	StatusOffer        ApplicationStatus = "offer"
	StatusAccepted     ApplicationStatus = "accepted"
)

// ApplicationStatuses lists every status in pipeline order
func ApplicationStatuses() []ApplicationStatus {
	return []ApplicationStatus{StatusDraft, StatusApplied, StatusInterviewing, StatusRejected, StatusOffer, StatusAccepted}
}

// Valid reports whether s is a known status
func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusApplied, StatusInterviewing, StatusRejected, StatusOffer, StatusAccepted:
		return true
	}
	return false
}

// ParseApplicationStatus converts a raw value into an ApplicationStatus
func ParseApplicationStatus(raw string) (ApplicationStatus, error) {
	s := ApplicationStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("invalid application status: %q", raw)
	}
	return s, nil
}

// JobApplication records one generation event and its outcome.
// Generated fields are immutable once created; only Status, Notes and
// AppliedDate change afterwards.
type JobApplication struct {
	ID                   uuid.UUID         `json:"id" db:"id"`
	CompanyName          string            `json:"company_name" db:"company_name"`
	JobTitle             string            `json:"job_title" db:"job_title"`
	RawSpec              string            `json:"raw_spec" db:"raw_spec"`
	JobURL               string            `json:"job_url,omitempty" db:"job_url"`
	GeneratedCV          string            `json:"generated_cv" db:"generated_cv"`
	GeneratedCoverLetter string            `json:"generated_cover_letter" db:"generated_cover_letter"`
	SkillsGapReport      json.RawMessage   `json:"skills_gap_report" db:"skills_gap_report"` // JSONB
	SelectedBlockIDs     []uuid.UUID       `json:"selected_block_ids" db:"selected_block_ids"`
	Status               ApplicationStatus `json:"status" db:"status"`
	AppliedDate          *time.Time        `json:"applied_date,omitempty" db:"applied_date"`
	Notes                string            `json:"notes,omitempty" db:"notes"`
	CreatedAt            time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the JobApplication model
func (JobApplication) TableName() string {
	return "job_applications"
}

// NewJobApplication creates a draft JobApplication for the given posting
func NewJobApplication(companyName, jobTitle, rawSpec, jobURL string) *JobApplication {
	now := time.Now().UTC()
	return &JobApplication{
		ID:               uuid.New(),
		CompanyName:      companyName,
		JobTitle:         jobTitle,
		RawSpec:          rawSpec,
		JobURL:           jobURL,
		SkillsGapReport:  json.RawMessage(`{}`),
		SelectedBlockIDs: []uuid.UUID{},
		Status:           StatusDraft,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// ApplicationUpdate carries the mutable fields of a JobApplication
type ApplicationUpdate struct {
	Status      *ApplicationStatus
	Notes       *string
	AppliedDate *time.Time
}

// Apply mutates the application. Moving to applied without a date stamps now.
func (u ApplicationUpdate) Apply(a *JobApplication, now time.Time) {
	if u.Status != nil {
		a.Status = *u.Status
	}
	if u.Notes != nil {
		a.Notes = *u.Notes
	}
	if u.AppliedDate != nil {
		d := u.AppliedDate.UTC()
		a.AppliedDate = &d
	} else if u.Status != nil && *u.Status == StatusApplied && a.AppliedDate == nil {
		d := now.UTC()
		a.AppliedDate = &d
	}
	a.UpdatedAt = now.UTC()
}
