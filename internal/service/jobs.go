package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	jobLockPrefix = "jobs:lock:"
	jobLockTTL    = 30 * time.Minute

	JobDaily  = "daily"
	JobWeekly = "weekly"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// JobLocker serializes batch jobs across processes with a redis SETNX lock.
// A nil client runs jobs without a lock.
type JobLocker struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewJobLocker(client *redis.Client) *JobLocker {
	return &JobLocker{redis: client, ttl: jobLockTTL}
}

// Acquire takes the named lock. It returns ErrJobLocked when another run holds it.
func (l *JobLocker) Acquire(ctx context.Context, name string) (func(), error) {
	if l == nil || l.redis == nil {
		return func() {}, nil
	}
	key := jobLockPrefix + name
	token := uuid.NewString()

	ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, dependencyError("acquire job lock", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobLocked, name)
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.redis, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			log.Printf("[jobs] failed to release lock %s: %v", key, err)
		}
	}, nil
}

// JobRunner is the single entry point for scheduled work, shared by the
// in-process scheduler and the HTTP cron triggers.
type JobRunner struct {
	generator IGeneratorService
	lifecycle ILifecycleService
	locker    *JobLocker
}

func NewJobRunner(generator IGeneratorService, lifecycle ILifecycleService, locker *JobLocker) *JobRunner {
	return &JobRunner{
		generator: generator,
		lifecycle: lifecycle,
		locker:    locker,
	}
}

// RunDaily runs the daily lifecycle passes.
func (r *JobRunner) RunDaily(ctx context.Context) ([]*JobResult, error) {
	release, err := r.locker.Acquire(ctx, JobDaily)
	if err != nil {
		return nil, err
	}
	defer release()

	result, err := r.lifecycle.RunDailyTasks(ctx)
	return []*JobResult{result}, err
}

// RunWeekly catches recurring templates up and then reconciles the overdue
// ledger against the resulting instances.
func (r *JobRunner) RunWeekly(ctx context.Context) ([]*JobResult, error) {
	release, err := r.locker.Acquire(ctx, JobWeekly)
	if err != nil {
		return nil, err
	}
	defer release()

	var results []*JobResult
	generated, err := r.generator.GenerateRecurringForms(ctx)
	if generated != nil {
		results = append(results, generated)
	}
	if err != nil {
		return results, fmt.Errorf("generate recurring forms: %w", err)
	}

	reconciled, err := r.lifecycle.UpdateOverdueFeedbackAssignments(ctx)
	if reconciled != nil {
		results = append(results, reconciled)
	}
	if err != nil {
		return results, fmt.Errorf("update overdue assignments: %w", err)
	}
	return results, nil
}

// Run dispatches by job name.
func (r *JobRunner) Run(ctx context.Context, name string) ([]*JobResult, error) {
	switch name {
	case JobDaily:
		return r.RunDaily(ctx)
	case JobWeekly:
		return r.RunWeekly(ctx)
	default:
		return nil, validationErrorf("unknown job %q", name)
	}
}
