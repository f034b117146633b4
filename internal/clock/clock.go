// Package clock fixes the service's wall clock to UTC+8 and gives tests a
// way to inject time. Every persisted or compared timestamp funnels through
// a Clock.
package clock

import (
	"sync"
	"time"
)

// Zone is the fixed offset all persisted timestamps carry.
var Zone = time.FixedZone("UTC+8", 8*60*60)

// Clock is the single source of "now".
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().In(Zone) }

// System returns the real clock, pinned to UTC+8.
func System() Clock { return systemClock{} }

// Fake is a manually advanced clock for tests.
type Fake struct {
	mu sync.Mutex
	t  time.Time
}

// NewFake returns a fake clock starting at t (converted to UTC+8).
func NewFake(t time.Time) *Fake {
	return &Fake{t: t.In(Zone)}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

// Set moves the clock to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.t = t.In(Zone)
	f.mu.Unlock()
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

// SessionStamp renders t in the compact form session ids are derived from.
func SessionStamp(t time.Time) string {
	return t.In(Zone).Format("20060102_150405")
}
