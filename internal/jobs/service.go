// Package jobs implements the email job lifecycle: enqueue, claim, run and
// status lookup. Job rows only ever move queued → processing → completed|failed.
package jobs

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ClubSend/internal/models"
	"ClubSend/internal/sender"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNoQueuedJob    = errors.New("no queued email jobs")
)

type Store interface {
	InsertJob(ctx context.Context, playDayID uuid.UUID, customMessage *string) (*models.EmailJob, error)
	GetJob(ctx context.Context, id uuid.UUID) (*models.EmailJob, error)
	ClaimNextJob(ctx context.Context) (*models.EmailJob, error)
	FinishJob(ctx context.Context, id uuid.UUID, status models.JobStatus, successCount, failureCount int, errorMsg *string) error
	FailStaleJobs(ctx context.Context, olderThan time.Duration, errorMsg string) (int64, error)
}

// Announcer sends one play day announcement to all recipients.
type Announcer interface {
	Send(ctx context.Context, playDayID uuid.UUID, customMessage string) (sender.Result, error)
}

type Service struct {
	Store  Store
	Sender Announcer
	Log    *zap.Logger

	// StaleAfter is how long a job may stay in processing before Claim
	// fails it. Zero disables the check.
	StaleAfter time.Duration
}
