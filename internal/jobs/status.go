package jobs

import (
	"context"

	"github.com/google/uuid"

	"ClubSend/internal/models"
)

// Status returns the job row as stored. A missing job yields db.ErrNotFound.
func (s *Service) Status(ctx context.Context, id uuid.UUID) (*models.EmailJob, error) {
	return s.Store.GetJob(ctx, id)
}
