package worker

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"ClubSend/internal/jobs"
)

// Scheduler triggers Dispatch on a cron schedule, standing in for an
// external cron hitting the process endpoint.
type Scheduler struct {
	c          *cron.Cron
	dispatcher *Dispatcher
	log        *zap.Logger
}

var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// NewScheduler parses spec ("@every 1m", "*/30 * * * * *", ...). A tick that
// is still dispatching when the next one fires is skipped.
func NewScheduler(ctx context.Context, spec string, d *Dispatcher, logger *zap.Logger) (*Scheduler, error) {
	cl := cronLogger{logger}
	s := &Scheduler{
		c: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		dispatcher: d,
		log:        logger,
	}

	if _, err := s.c.AddFunc(spec, func() { s.tick(ctx) }); err != nil {
		return nil, errors.Wrapf(err, "parse dispatch schedule %q", spec)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.log.Info("dispatch scheduler started")
	s.c.Start()
}

// Stop stops the schedule and waits for a running tick to return.
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
	s.log.Info("dispatch scheduler stopped")
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	job, err := s.dispatcher.Dispatch(ctx)
	switch {
	case errors.Is(err, jobs.ErrNoQueuedJob):
		s.log.Debug("no queued email jobs")
	case errors.Is(err, ErrQueueFull):
		s.log.Warn("scheduled dispatch skipped, queue full")
	case err != nil:
		s.log.Error("scheduled dispatch failed", zap.Error(err))
	default:
		s.log.Info("scheduled dispatch", zap.Stringer("job_id", job.ID))
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
