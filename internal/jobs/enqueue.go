package jobs

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ClubSend/internal/metrics"
	"ClubSend/internal/models"
)

const MaxMessageLength = 2000

// Enqueue validates an announcement request and stores it as a queued job.
// Every call creates a new job; identical requests are not deduplicated.
// Whether the play day exists is checked when the job runs, not here.
func (s *Service) Enqueue(ctx context.Context, eventID, customMessage string) (*models.EmailJob, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, errors.Mark(errors.New("eventId is required"), ErrInvalidRequest)
	}
	playDayID, err := uuid.Parse(eventID)
	if err != nil {
		return nil, errors.Mark(errors.Newf("eventId %q is not a valid id", eventID), ErrInvalidRequest)
	}

	var msg *string
	if trimmed := strings.TrimSpace(customMessage); trimmed != "" {
		if utf8.RuneCountInString(trimmed) > MaxMessageLength {
			return nil, errors.Mark(
				errors.Newf("customMessage exceeds %d characters", MaxMessageLength),
				ErrInvalidRequest,
			)
		}
		msg = &trimmed
	}

	job, err := s.Store.InsertJob(ctx, playDayID, msg)
	if err != nil {
		return nil, err
	}

	metrics.JobsEnqueued.Inc()
	s.Log.Info("email job queued",
		zap.Stringer("job_id", job.ID),
		zap.Stringer("play_day_id", playDayID),
	)
	return job, nil
}
