package models

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition is possible.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// EmailJob is one "announce this play day to every opted-in member" request.
type EmailJob struct {
	ID            uuid.UUID `json:"id"`
	PlayDayID     uuid.UUID `json:"play_day_id"`
	CustomMessage *string   `json:"custom_message"`

	Status       JobStatus `json:"status"`
	SuccessCount int       `json:"success_count"`
	FailureCount int       `json:"failure_count"`
	ErrorMessage *string   `json:"error_message"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// Message returns the custom message or "" when none was given.
func (j *EmailJob) Message() string {
	if j.CustomMessage == nil {
		return ""
	}
	return *j.CustomMessage
}
