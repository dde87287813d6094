package worker

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"ClubSend/internal/models"
	"ClubSend/internal/sender"
)

var ErrQueueFull = errors.New("email job queue is full")

// Runner is the part of jobs.Service the workers drive.
type Runner interface {
	Claim(ctx context.Context) (*models.EmailJob, error)
	Run(ctx context.Context, job *models.EmailJob) sender.Result
	Fail(ctx context.Context, job *models.EmailJob, cause error)
}

// StartPool starts workers that run claimed jobs from the queue until ctx is
// cancelled. On cancellation each worker fails whatever is still buffered.
func StartPool(
	ctx context.Context,
	wg *sync.WaitGroup,
	workers int,
	queue <-chan *models.EmailJob,
	runner Runner,
	logger *zap.Logger,
) {

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			logger.Info("worker started", zap.Int("worker_id", id))

			for {
				select {

				case <-ctx.Done():
					if n := Drain(ctx, queue, runner); n > 0 {
						logger.Warn("failed buffered jobs on shutdown",
							zap.Int("worker_id", id),
							zap.Int("count", n),
						)
					}
					logger.Info("worker shutting down", zap.Int("worker_id", id))
					return

				case job, ok := <-queue:
					if !ok {
						logger.Info("job queue closed", zap.Int("worker_id", id))
						return
					}

					res := runner.Run(ctx, job)

					logger.Info("email job finished",
						zap.Int("worker_id", id),
						zap.Stringer("job_id", job.ID),
						zap.Bool("success", res.Success),
						zap.Int("success_count", res.SuccessCount),
						zap.Int("failure_count", res.FailureCount),
					)
				}
			}
		}(i)
	}
}

// Drain fails every job still buffered in the queue without blocking.
func Drain(ctx context.Context, queue <-chan *models.EmailJob, runner Runner) int {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = context.Canceled
	}

	n := 0
	for {
		select {
		case job, ok := <-queue:
			if !ok {
				return n
			}
			runner.Fail(ctx, job, errors.Wrap(cause, "shutdown before job started"))
			n++
		default:
			return n
		}
	}
}

// Dispatcher claims jobs and hands them to the pool.
type Dispatcher struct {
	Runner Runner
	Queue  chan<- *models.EmailJob
	Log    *zap.Logger

	// mu makes the slot check, the claim and the hand-off one step between
	// dispatchers. Workers only ever take from the queue, so a slot seen
	// free under mu stays free until the send.
	mu sync.Mutex
}

// Dispatch claims the oldest queued job and submits it to the pool. It
// returns jobs.ErrNoQueuedJob when there is nothing to do, and ErrQueueFull
// without claiming when every buffer slot is taken.
func (d *Dispatcher) Dispatch(ctx context.Context) (*models.EmailJob, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.Queue) >= cap(d.Queue) {
		d.Log.Warn("email job queue full, leaving jobs queued", zap.Int("capacity", cap(d.Queue)))
		return nil, ErrQueueFull
	}

	job, err := d.Runner.Claim(ctx)
	if err != nil {
		return nil, err
	}

	select {
	case d.Queue <- job:
		d.Log.Info("email job dispatched",
			zap.Stringer("job_id", job.ID),
			zap.Int("buffered", len(d.Queue)),
		)
		return job, nil
	default:
		// unreachable while every producer goes through Dispatch
		d.Runner.Fail(ctx, job, ErrQueueFull)
		return nil, ErrQueueFull
	}
}
