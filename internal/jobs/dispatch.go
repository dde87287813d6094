package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"ClubSend/internal/db"
	"ClubSend/internal/metrics"
	"ClubSend/internal/models"
	"ClubSend/internal/sender"
)

const staleJobMessage = "processing timed out"

// finishTimeout bounds the final status write, which runs even when the
// job's own context has been cancelled.
const finishTimeout = 10 * time.Second

// Claim fails stale processing jobs, then moves the oldest queued job to
// processing. Returns ErrNoQueuedJob when there is nothing to do.
func (s *Service) Claim(ctx context.Context) (*models.EmailJob, error) {
	s.reapStale(ctx)

	job, err := s.Store.ClaimNextJob(ctx)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNoQueuedJob
	}
	if err != nil {
		return nil, err
	}

	s.Log.Info("email job claimed",
		zap.Stringer("job_id", job.ID),
		zap.Stringer("play_day_id", job.PlayDayID),
	)
	return job, nil
}

// Run sends the claimed job and records its terminal status. Errors and
// panics from the send path fail the job instead of escaping.
func (s *Service) Run(ctx context.Context, job *models.EmailJob) (result sender.Result) {
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.Log.Error("email job panicked",
				zap.Stringer("job_id", job.ID),
				zap.Any("panic", r),
			)
			result.Success = false
			result.Error = fmt.Sprintf("panic: %v", r)
		}
		s.finish(ctx, job, result, started)
	}()

	res, err := s.Sender.Send(ctx, job.PlayDayID, job.Message())
	if err != nil {
		res.Success = false
		res.Error = err.Error()
	}
	return res
}

// Fail records a claimed job as failed without sending anything. Used for
// jobs that were claimed but never reached a worker.
func (s *Service) Fail(ctx context.Context, job *models.EmailJob, cause error) {
	s.finish(ctx, job, sender.Result{Error: cause.Error()}, time.Now())
}

// ProcessNext claims one job and runs it to completion in the caller's goroutine.
func (s *Service) ProcessNext(ctx context.Context) (*models.EmailJob, sender.Result, error) {
	job, err := s.Claim(ctx)
	if err != nil {
		return nil, sender.Result{}, err
	}
	return job, s.Run(ctx, job), nil
}

func (s *Service) finish(ctx context.Context, job *models.EmailJob, result sender.Result, started time.Time) {
	status := models.StatusCompleted
	var errMsg *string
	if !result.Success {
		status = models.StatusFailed
		msg := result.Error
		errMsg = &msg
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	fields := []zap.Field{
		zap.Stringer("job_id", job.ID),
		zap.String("status", string(status)),
		zap.Int("success_count", result.SuccessCount),
		zap.Int("failure_count", result.FailureCount),
		zap.Duration("took", time.Since(started)),
	}

	err := s.Store.FinishJob(ctx, job.ID, status, result.SuccessCount, result.FailureCount, errMsg)
	if errors.Is(err, db.ErrNotFound) {
		s.Log.Warn("email job left processing before it finished", append(fields, zap.Error(err))...)
		return
	}
	if err != nil {
		s.Log.Error("failed to record email job result", append(fields, zap.Error(err))...)
		return
	}

	metrics.JobsFinished.WithLabelValues(string(status)).Inc()
	metrics.JobDuration.Observe(time.Since(started).Seconds())

	if status == models.StatusFailed {
		s.Log.Warn("email job failed", append(fields, zap.String("error", result.Error))...)
		return
	}
	s.Log.Info("email job completed", fields...)
}

func (s *Service) reapStale(ctx context.Context) {
	if s.StaleAfter <= 0 {
		return
	}

	n, err := s.Store.FailStaleJobs(ctx, s.StaleAfter, staleJobMessage)
	if err != nil {
		s.Log.Error("failed to reap stale email jobs", zap.Error(err))
		return
	}
	if n > 0 {
		metrics.JobsReaped.Add(float64(n))
		s.Log.Warn("failed stale email jobs",
			zap.Int64("count", n),
			zap.Duration("stale_after", s.StaleAfter),
		)
	}
}
