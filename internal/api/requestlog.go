package api

import (
	"sync"
	"time"
)

// requestWindow is how far back /ser/status reports ingest requests.
const requestWindow = 10 * time.Minute

// RequestEntry is one ingest request as shown on /ser/status.
type RequestEntry struct {
	At        time.Time `json:"at"`
	UserID    string    `json:"user_id"`
	Filename  string    `json:"filename"`
	Outcome   string    `json:"outcome"` // queued | rejected | invalid
	QueueSize int       `json:"queue_size"`
}

// RequestLog keeps recent ingest requests in memory, pruned to the last
// ten minutes on read.
type RequestLog struct {
	mu      sync.Mutex
	entries []RequestEntry
}

func NewRequestLog() *RequestLog {
	return &RequestLog{}
}

func (l *RequestLog) Add(e RequestEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	// Opportunistic prune keeps the slice from growing unbounded between
	// reads.
	if len(l.entries) > 4096 {
		l.entries = l.pruneLocked(time.Now())
	}
}

// Recent returns the entries from the last ten minutes, newest first.
func (l *RequestLog) Recent(now time.Time) []RequestEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.pruneLocked(now)

	out := make([]RequestEntry, len(l.entries))
	for i, e := range l.entries {
		out[len(out)-1-i] = e
	}
	return out
}

func (l *RequestLog) pruneLocked(now time.Time) []RequestEntry {
	cutoff := now.Add(-requestWindow)
	kept := l.entries[:0]
	for _, e := range l.entries {
		if e.At.After(cutoff) {
			kept = append(kept, e)
		}
	}
	return kept
}
