// Package resultlog keeps bounded in-memory rings of the most recent
// per-chunk and per-aggregation results for dashboards and /ser/status.
// Nothing here survives a restart.
package resultlog

import (
	"sync"
	"time"

	"github.com/eefei22/well-bot-EmotionRecognition/internal/emotion"
)

// Default ring capacities.
const (
	DefaultChunkCapacity     = 500
	DefaultAggregateCapacity = 1000
)

// ChunkRecord is one processed chunk as shown to operators: the result plus
// where it went (session) and whether the store write succeeded.
type ChunkRecord struct {
	UserID    string              `json:"user_id"`
	SessionID string              `json:"session_id"`
	Result    emotion.ChunkResult `json:"result"`
	DBWrite   bool                `json:"db_write"`
	RowID     int64               `json:"row_id,omitempty"`
}

// AggregateRecord is one emitted (user, session, window) aggregate.
type AggregateRecord struct {
	EmittedAt           time.Time     `json:"emitted_at"`
	UserID              string        `json:"user_id"`
	SessionID           string        `json:"session_id"`
	WindowStart         time.Time     `json:"window_start"`
	WindowEnd           time.Time     `json:"window_end"`
	ChunkCount          int           `json:"chunk_count"`
	Emotion             emotion.Label `json:"emotion"`
	Confidence          float64       `json:"confidence"`
	Sentiment           string        `json:"sentiment,omitempty"`
	SentimentConfidence float64       `json:"sentiment_confidence,omitempty"`
}

// Log holds the two rings. Appends are O(1); the oldest entry is evicted
// when a ring is full.
type Log struct {
	mu         sync.Mutex
	chunks     ring[ChunkRecord]
	aggregates ring[AggregateRecord]
}

// New builds a Log. Non-positive capacities fall back to the defaults.
func New(chunkCap, aggregateCap int) *Log {
	if chunkCap <= 0 {
		chunkCap = DefaultChunkCapacity
	}
	if aggregateCap <= 0 {
		aggregateCap = DefaultAggregateCapacity
	}
	return &Log{
		chunks:     newRing[ChunkRecord](chunkCap),
		aggregates: newRing[AggregateRecord](aggregateCap),
	}
}

func (l *Log) AppendChunk(r ChunkRecord) {
	l.mu.Lock()
	l.chunks.push(r)
	l.mu.Unlock()
}

func (l *Log) AppendAggregate(r AggregateRecord) {
	l.mu.Lock()
	l.aggregates.push(r)
	l.mu.Unlock()
}

// RecentChunks returns up to limit chunk records, newest first. An empty
// userID means all users; limit <= 0 means no limit.
func (l *Log) RecentChunks(limit int, userID string) []ChunkRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.chunks.newestFirst(limit, func(r ChunkRecord) bool {
		return userID == "" || r.UserID == userID
	})
}

// RecentAggregates returns up to limit aggregate records, newest first.
func (l *Log) RecentAggregates(limit int, userID string) []AggregateRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.aggregates.newestFirst(limit, func(r AggregateRecord) bool {
		return userID == "" || r.UserID == userID
	})
}

// Sizes reports the current number of entries in each ring.
func (l *Log) Sizes() (chunks, aggregates int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.chunks.len(), l.aggregates.len()
}

// ring is a fixed-capacity circular buffer. next points at the slot the
// next push will overwrite.
type ring[T any] struct {
	buf  []T
	next int
	full bool
}

func newRing[T any](capacity int) ring[T] {
	return ring[T]{buf: make([]T, capacity)}
}

func (r *ring[T]) push(v T) {
	r.buf[r.next] = v
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

func (r *ring[T]) len() int {
	if r.full {
		return len(r.buf)
	}
	return r.next
}

func (r *ring[T]) newestFirst(limit int, keep func(T) bool) []T {
	n := r.len()
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]T, 0, limit)
	for i := 1; i <= n && len(out) < limit; i++ {
		idx := (r.next - i + len(r.buf)) % len(r.buf)
		if keep(r.buf[idx]) {
			out = append(out, r.buf[idx])
		}
	}
	return out
}
