package ingest

import (
	"sync"
	"time"
)

// ProcessingItem describes the chunk the worker is handling right now.
type ProcessingItem struct {
	UserID    string    `json:"user_id"`
	Filename  string    `json:"filename"`
	StartedAt time.Time `json:"started_at"`
}

// Processing publishes the currently-processing item to the dashboard.
// The worker sets it when a job starts and clears it after a short grace
// period so the dashboard can still show the just-finished chunk.
type Processing struct {
	mu  sync.Mutex
	cur *ProcessingItem
	gen uint64
}

// Set publishes item and returns a generation token for ClearIfCurrent.
func (p *Processing) Set(item ProcessingItem) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.cur = &item
	return p.gen
}

// ClearIfCurrent clears the published item if no later Set happened. The
// generation guard stops a delayed clear from wiping the next job's
// metadata.
func (p *Processing) ClearIfCurrent(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen == gen {
		p.cur = nil
	}
}

// Snapshot returns a copy of the current item, if any.
func (p *Processing) Snapshot() (ProcessingItem, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur == nil {
		return ProcessingItem{}, false
	}
	return *p.cur, true
}
