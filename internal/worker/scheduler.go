// Package worker runs periodic background jobs.
package worker

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/leemont-hostel/internal/service"
)

// Sweeper is one reconciliation pass.
type Sweeper interface {
	Run(ctx context.Context) (service.SweepSummary, error)
}

// Scheduler runs jobs on fixed intervals.  Runs of one job never overlap:
// a run that is still busy when the next tick fires makes that tick
// reschedule.
type Scheduler struct {
	s   gocron.Scheduler
	log logrus.FieldLogger
}

// NewScheduler returns an idle scheduler; add jobs, then Start.
func NewScheduler(log logrus.FieldLogger) (*Scheduler, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}
	return &Scheduler{s: s, log: log.WithField("component", "scheduler")}, nil
}

// Every registers task to run every interval, first run right away.  Each
// run is bounded by timeout; a non-positive timeout uses interval.
func (s *Scheduler) Every(name string, interval, timeout time.Duration, task func(ctx context.Context) error) error {
	if timeout <= 0 {
		timeout = interval
	}
	log := s.log.WithField("job", name)
	_, err := s.s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := task(ctx); err != nil {
				log.WithError(err).Error("job failed")
			}
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	return err
}

// AddSweep schedules the stale pending booking reconciliation.
func (s *Scheduler) AddSweep(sweep Sweeper, interval, timeout time.Duration) error {
	return s.Every("reconcile-pending-bookings", interval, timeout, func(ctx context.Context) error {
		_, err := sweep.Run(ctx)
		return err
	})
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.s.Start()
	s.log.WithField("jobs", len(s.s.Jobs())).Info("scheduler started")
}

// Stop waits for running jobs and stops the scheduler.
func (s *Scheduler) Stop() error {
	return s.s.Shutdown()
}
