package service

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// JobResult reports what a batch job did. Per-record failures are counted
// and logged here; only whole-job failures surface as errors.
type JobResult struct {
	Job        string    `json:"job"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Processed  int       `json:"processed"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Deleted    int       `json:"deleted"`
	Notified   int       `json:"notified"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Messages   []string  `json:"messages,omitempty"`

	mu sync.Mutex
}

func newJobResult(job string, now time.Time) *JobResult {
	return &JobResult{Job: job, StartedAt: now}
}

func (r *JobResult) add(field *int, n int) {
	r.mu.Lock()
	*field += n
	r.mu.Unlock()
}

// fail counts and logs one per-record failure.
func (r *JobResult) fail(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("[%s] %s", r.Job, msg)
	r.mu.Lock()
	r.Failed++
	r.Messages = append(r.Messages, msg)
	r.mu.Unlock()
}

// skip counts and logs one record that was deliberately not processed.
func (r *JobResult) skip(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("[%s] %s", r.Job, msg)
	r.mu.Lock()
	r.Skipped++
	r.Messages = append(r.Messages, msg)
	r.mu.Unlock()
}

func (r *JobResult) finish(now time.Time) *JobResult {
	r.FinishedAt = now
	log.Printf("[%s] finished: processed=%d created=%d updated=%d deleted=%d notified=%d skipped=%d failed=%d",
		r.Job, r.Processed, r.Created, r.Updated, r.Deleted, r.Notified, r.Skipped, r.Failed)
	return r
}
