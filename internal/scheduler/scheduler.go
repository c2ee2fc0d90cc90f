package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pageza/clientpulse/backend/internal/service"
)

// DefaultJobTimeout bounds a single scheduled run
const DefaultJobTimeout = 30 * time.Minute

// Schedule holds the cron expressions (UTC, five fields) of the batch jobs
type Schedule struct {
	Daily   string
	Weekly  string
	Timeout time.Duration
}

// Scheduler triggers the daily and weekly jobs in-process
type Scheduler struct {
	cron    *cron.Cron
	jobs    service.IJobRunner
	timeout time.Duration
}

// New registers both jobs. An empty expression leaves that job unscheduled.
func New(jobs service.IJobRunner, schedule Schedule) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		jobs:    jobs,
		timeout: schedule.Timeout,
	}
	if s.timeout <= 0 {
		s.timeout = DefaultJobTimeout
	}

	for name, expr := range map[string]string{
		service.JobDaily:  schedule.Daily,
		service.JobWeekly: schedule.Weekly,
	} {
		if expr == "" {
			continue
		}
		name := name
		if _, err := s.cron.AddFunc(expr, func() { s.RunJob(context.Background(), name) }); err != nil {
			return nil, fmt.Errorf("invalid %s cron expression %q: %w", name, expr, err)
		}
		log.Printf("[scheduler] %s job scheduled with %q", name, expr)
	}
	return s, nil
}

// Start runs the cron loop in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs until ctx is done
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entries returns the number of scheduled jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// RunJob runs one job with the scheduler timeout and logs its outcome
func (s *Scheduler) RunJob(ctx context.Context, name string) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	results, err := s.jobs.Run(ctx, name)
	if err != nil {
		log.Printf("[scheduler] %s job failed after %s: %v", name, time.Since(start).Round(time.Millisecond), err)
		return
	}
	failed := 0
	for _, r := range results {
		if r != nil {
			failed += r.Failed
		}
	}
	log.Printf("[scheduler] %s job finished in %s (%d passes, %d failures)", name, time.Since(start).Round(time.Millisecond), len(results), failed)
}
