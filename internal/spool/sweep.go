package spool

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Sweeper removes spool files older than maxAge on a timer. It is the
// best-effort cleanup for jobs abandoned at shutdown or leaked by a
// crashed request. Only files matching the spool's own naming pattern are
// touched; anything else in a shared temp directory is left alone.
type Sweeper struct {
	spool    *Spool
	maxAge   time.Duration
	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewSweeper builds a sweeper. The scan interval is half the max age,
// floored at one minute.
func NewSweeper(spool *Spool, maxAge time.Duration) *Sweeper {
	interval := maxAge / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	return &Sweeper{
		spool:    spool,
		maxAge:   maxAge,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (sw *Sweeper) Start() {
	go sw.loop()
}

// Stop halts the loop after a final sweep. Idempotent.
func (sw *Sweeper) Stop() {
	sw.stopOnce.Do(func() { close(sw.stop) })
	<-sw.done
}

func (sw *Sweeper) loop() {
	defer close(sw.done)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sw.Sweep()
		case <-sw.stop:
			sw.Sweep()
			return
		}
	}
}

// Sweep removes expired spool files and returns how many were deleted.
func (sw *Sweeper) Sweep() int {
	cutoff := time.Now().Add(-sw.maxAge)
	removed := 0

	entries, err := os.ReadDir(sw.spool.dir)
	if err != nil {
		sw.spool.log.Warn().Err(err).Msg("spool sweep: read dir failed")
		return 0
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(sw.spool.dir, name)); err == nil {
			removed++
		}
	}

	if removed > 0 {
		sw.spool.log.Info().Int("removed", removed).Msg("spool sweep complete")
	}
	return removed
}
