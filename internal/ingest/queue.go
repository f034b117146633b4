// Package ingest carries audio chunks from the HTTP edge through the ML
// pipeline into the store, the session tracker, and the result ring: a
// bounded FIFO of pending jobs drained by a single worker goroutine.
package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultQueueCapacity bounds the pending-chunk FIFO when no capacity is
// configured.
const DefaultQueueCapacity = 1024

// ChunkJob is one pending audio chunk. Path names a spool file the job
// exclusively owns: the HTTP handler until enqueue succeeds, the worker
// thereafter. Filename is the producer's original name, display only.
type ChunkJob struct {
	UserID     uuid.UUID
	Path       string
	ReceivedAt time.Time
	Filename   string
}

// Queue is the bounded FIFO between the HTTP edge (many producers) and
// the worker (single consumer).
type Queue struct {
	jobs chan *ChunkJob
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{jobs: make(chan *ChunkJob, capacity)}
}

// TryEnqueue adds a job without blocking. False means the queue is full;
// the caller still owns the job's spool file.
func (q *Queue) TryEnqueue(job *ChunkJob) bool {
	select {
	case q.jobs <- job:
		return true
	default:
		return false
	}
}

// Dequeue waits up to timeout for a job. The short timeout keeps the
// worker loop responsive to shutdown.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*ChunkJob, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case job := <-q.jobs:
		return job, true
	case <-timer.C:
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
}

// TryDequeue takes a job without waiting. Used by the shutdown drain.
func (q *Queue) TryDequeue() (*ChunkJob, bool) {
	select {
	case job := <-q.jobs:
		return job, true
	default:
		return nil, false
	}
}

func (q *Queue) Len() int { return len(q.jobs) }
func (q *Queue) Cap() int { return cap(q.jobs) }
