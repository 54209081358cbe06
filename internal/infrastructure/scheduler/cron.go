package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler drives the pipelines and cleanup on independent intervals. An
// operating-hours window gates the pipeline jobs; overlapping invocations
// of the same job are skipped rather than queued.
type Scheduler struct {
	cron      *cron.Cron
	startHour int
	endHour   int
	location  *time.Location
	logger    *slog.Logger

	ctx context.Context
}

// New builds a scheduler bound to a timezone and an operating-hours window
// [startHour, endHour).
func New(location *time.Location, startHour, endHour int, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(location),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		startHour: startHour,
		endHour:   endHour,
		location:  location,
		logger:    logger,
		ctx:       context.Background(),
	}
}

// AddEvery schedules a job on a fixed interval, restricted to the
// operating-hours window.
func (s *Scheduler) AddEvery(name string, every time.Duration, job func(context.Context) error) error {
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", every), func() {
		if !s.withinHours(time.Now().In(s.location)) {
			s.logger.Debug("outside operating hours, skipping", "job", name)
			return
		}
		if err := job(s.ctx); err != nil {
			s.logger.Error("job failed", "job", name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

// AddDaily schedules a job at midnight in the scheduler's timezone,
// unrestricted by operating hours.
func (s *Scheduler) AddDaily(name string, job func(context.Context) error) error {
	_, err := s.cron.AddFunc("0 0 * * *", func() {
		if err := job(s.ctx); err != nil {
			s.logger.Error("job failed", "job", name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

func (s *Scheduler) withinHours(now time.Time) bool {
	if s.startHour == 0 && s.endHour == 0 {
		return true
	}
	hour := now.Hour()
	return hour >= s.startHour && hour < s.endHour
}

// Start begins dispatching jobs; the given context is passed to each run.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
}

// Stop halts dispatch and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// cronLogger adapts slog to the cron logging interface used by the
// recover and skip-if-running wrappers.
type cronLogger struct {
	logger *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Info(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
