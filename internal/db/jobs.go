package db

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"ClubSend/internal/models"
)

const jobColumns = `id, play_day_id, custom_message, status, success_count, failure_count,
	error_message, created_at, started_at, completed_at`

func scanJob(row pgx.Row) (*models.EmailJob, error) {
	var job models.EmailJob
	err := row.Scan(
		&job.ID,
		&job.PlayDayID,
		&job.CustomMessage,
		&job.Status,
		&job.SuccessCount,
		&job.FailureCount,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &job, nil
}

func (s *Store) InsertJob(
	ctx context.Context,
	playDayID uuid.UUID,
	customMessage *string,
) (*models.EmailJob, error) {

	job, err := scanJob(s.Pool.QueryRow(ctx,
		`INSERT INTO email_jobs (play_day_id, custom_message, status, created_at)
		 VALUES ($1, $2, $3, NOW())
		 RETURNING `+jobColumns,
		playDayID,
		customMessage,
		models.StatusQueued,
	))
	if err != nil {
		return nil, errors.Wrap(err, "insert email job")
	}
	return job, nil
}

func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*models.EmailJob, error) {
	job, err := scanJob(s.Pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM email_jobs WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, errors.Wrapf(err, "get email job %s", id)
	}
	return job, nil
}

// ClaimNextJob moves the oldest queued job to processing in one statement.
// SKIP LOCKED keeps concurrent claimers from ever picking the same row.
// Returns ErrNotFound when nothing is queued.
func (s *Store) ClaimNextJob(ctx context.Context) (*models.EmailJob, error) {
	job, err := scanJob(s.Pool.QueryRow(ctx,
		`UPDATE email_jobs
		 SET status = $1,
		     started_at = NOW()
		 WHERE status = $2
		   AND id = (
		     SELECT id FROM email_jobs
		     WHERE status = $2
		     ORDER BY created_at, id
		     LIMIT 1
		     FOR UPDATE SKIP LOCKED
		   )
		 RETURNING `+jobColumns,
		models.StatusProcessing,
		models.StatusQueued,
	))
	if err != nil {
		return nil, errors.Wrap(err, "claim email job")
	}
	return job, nil
}

// FinishJob writes the terminal state of a processing job.
// Returns ErrNotFound if the job is not in processing anymore.
func (s *Store) FinishJob(
	ctx context.Context,
	id uuid.UUID,
	status models.JobStatus,
	successCount int,
	failureCount int,
	errorMsg *string,
) error {

	if !status.Terminal() {
		return errors.Newf("finish email job: %q is not a terminal status", status)
	}

	tag, err := s.Pool.Exec(ctx,
		`UPDATE email_jobs
		 SET status = $1,
		     success_count = $2,
		     failure_count = $3,
		     error_message = $4,
		     completed_at = NOW()
		 WHERE id = $5
		   AND status = $6`,
		status,
		successCount,
		failureCount,
		errorMsg,
		id,
		models.StatusProcessing,
	)
	if err != nil {
		return errors.Wrapf(err, "finish email job %s", id)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(ErrNotFound, "finish email job %s", id)
	}
	return nil
}

// FailStaleJobs fails processing jobs started more than olderThan ago.
func (s *Store) FailStaleJobs(
	ctx context.Context,
	olderThan time.Duration,
	errorMsg string,
) (int64, error) {

	tag, err := s.Pool.Exec(ctx,
		`UPDATE email_jobs
		 SET status = $1,
		     error_message = $2,
		     completed_at = NOW()
		 WHERE status = $3
		   AND started_at < NOW() - make_interval(secs => $4)`,
		models.StatusFailed,
		errorMsg,
		models.StatusProcessing,
		olderThan.Seconds(),
	)
	if err != nil {
		return 0, errors.Wrap(err, "fail stale email jobs")
	}
	return tag.RowsAffected(), nil
}
