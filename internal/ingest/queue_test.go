package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestQueueBound(t *testing.T) {
	q := NewQueue(2)

	if !q.TryEnqueue(&ChunkJob{}) || !q.TryEnqueue(&ChunkJob{}) {
		t.Fatal("enqueue within capacity failed")
	}
	if q.TryEnqueue(&ChunkJob{}) {
		t.Error("enqueue past capacity succeeded")
	}
	if q.Len() != 2 || q.Cap() != 2 {
		t.Errorf("Len/Cap = %d/%d, want 2/2", q.Len(), q.Cap())
	}
}

func TestDequeueFIFO(t *testing.T) {
	q := NewQueue(4)
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		q.TryEnqueue(&ChunkJob{UserID: id})
	}

	for i, want := range ids {
		job, ok := q.Dequeue(context.Background(), time.Second)
		if !ok {
			t.Fatalf("dequeue %d timed out", i)
		}
		if job.UserID != want {
			t.Errorf("dequeue %d: got %s, want %s", i, job.UserID, want)
		}
	}
}

func TestDequeueTimeout(t *testing.T) {
	q := NewQueue(1)

	start := time.Now()
	_, ok := q.Dequeue(context.Background(), 20*time.Millisecond)
	if ok {
		t.Error("dequeue on empty queue returned a job")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("dequeue blocked %v past its timeout", elapsed)
	}
}

func TestDequeueObservesCancel(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := q.Dequeue(ctx, 10*time.Second); ok {
		t.Error("dequeue returned a job on a cancelled context")
	}
}

func TestTryDequeue(t *testing.T) {
	q := NewQueue(1)
	if _, ok := q.TryDequeue(); ok {
		t.Error("TryDequeue on empty queue returned a job")
	}
	q.TryEnqueue(&ChunkJob{})
	if _, ok := q.TryDequeue(); !ok {
		t.Error("TryDequeue missed a queued job")
	}
}
