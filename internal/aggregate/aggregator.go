// Package aggregate collapses each (user, session)'s chunk results over a
// sliding time window into one emitted record per tick.
package aggregate

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/eefei22/well-bot-EmotionRecognition/internal/clock"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/control"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/emotion"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/metrics"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/resultlog"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/session"
)

// Aggregator is the periodic task. Each tick reads the current interval,
// snapshots the tracker over (now − interval, now], emits one record per
// active (user, session), and expires sessions that fell two windows
// behind.
type Aggregator struct {
	tracker  *session.Tracker
	results  *resultlog.Log
	interval *control.Interval
	clk      clock.Clock
	log      zerolog.Logger

	running atomic.Bool
	ticks   atomic.Int64

	mu       sync.Mutex
	lastTick time.Time
}

func New(tracker *session.Tracker, results *resultlog.Log, interval *control.Interval, clk clock.Clock, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		tracker:  tracker,
		results:  results,
		interval: interval,
		clk:      clk,
		log:      log.With().Str("component", "aggregator").Logger(),
	}
}

// Run sleeps the current interval, ticks, and repeats until ctx is
// cancelled. The interval is re-read before every sleep, so an operator
// change takes effect on the next tick, never mid-sleep. A tick that
// outruns the interval never causes a skip; the next sleep just starts
// late, back to back if need be.
func (a *Aggregator) Run(ctx context.Context) {
	a.running.Store(true)
	defer a.running.Store(false)
	a.log.Info().Int("interval_seconds", a.interval.Get()).Msg("aggregator started")

	for {
		d := a.interval.Duration()
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			a.log.Info().Int64("ticks", a.ticks.Load()).Msg("aggregator stopped")
			return
		case <-timer.C:
		}

		start := time.Now()
		emitted := a.Tick()
		elapsed := time.Since(start)
		metrics.AggregatorTickDuration.Observe(elapsed.Seconds())
		if elapsed > d {
			a.log.Warn().Dur("elapsed", elapsed).Dur("interval", d).
				Msg("tick outran the interval, running back to back")
		}
		if emitted > 0 {
			a.log.Debug().Int("emitted", emitted).Msg("aggregation tick complete")
		}
	}
}

// Tick performs one aggregation pass and returns the number of emitted
// records. Exposed so tests can drive the aggregator without the timer.
func (a *Aggregator) Tick() int {
	d := a.interval.Duration()
	end := a.clk.Now()
	start := end.Add(-d)

	active := a.tracker.ActiveSessionsInWindow(start, end)

	// Sorted iteration keeps emit order deterministic within a process.
	userIDs := make([]string, 0, len(active))
	for userID := range active {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	emitted := 0
	for _, userID := range userIDs {
		sessionIDs := make([]string, 0, len(active[userID]))
		for sessionID := range active[userID] {
			sessionIDs = append(sessionIDs, sessionID)
		}
		sort.Strings(sessionIDs)

		for _, sessionID := range sessionIDs {
			results := active[userID][sessionID]
			rec, ok := a.aggregate(userID, sessionID, results, start, end)
			if !ok {
				continue
			}
			a.results.AppendAggregate(rec)
			metrics.AggregatesEmittedTotal.Inc()
			emitted++
		}
	}

	cutoff := end.Add(-2 * d)
	for _, userID := range userIDs {
		a.tracker.CleanupOlderThan(userID, cutoff)
	}

	a.ticks.Add(1)
	a.mu.Lock()
	a.lastTick = end
	a.mu.Unlock()
	return emitted
}

// aggregate collapses one session's in-window results. The emotion is the
// label with the greatest mean confidence; ties break by the canonical
// label order (Angry, Sad, Happy, Fear). The sentiment is the most
// frequent sentiment label among results that carry one, ties by first
// appearance, with its confidences averaged.
func (a *Aggregator) aggregate(userID, sessionID string, results []emotion.ChunkResult, start, end time.Time) (resultlog.AggregateRecord, bool) {
	confs := make(map[emotion.Label][]float64, 4)
	sentCounts := make(map[string]int)
	sentSums := make(map[string]float64)
	var sentOrder []string

	for _, r := range results {
		if _, ok := emotion.ParseLabel(string(r.Emotion)); !ok {
			// Cannot happen through the worker; guard the contract anyway.
			a.log.Warn().Str("user_id", userID).Str("session_id", sessionID).
				Str("emotion", string(r.Emotion)).Msg("result with invalid emotion skipped")
			continue
		}
		confs[r.Emotion] = append(confs[r.Emotion], r.Confidence)

		if r.Sentiment != "" {
			if sentCounts[r.Sentiment] == 0 {
				sentOrder = append(sentOrder, r.Sentiment)
			}
			sentCounts[r.Sentiment]++
			sentSums[r.Sentiment] += r.SentimentConfidence
		}
	}
	if len(confs) == 0 {
		return resultlog.AggregateRecord{}, false
	}

	var best emotion.Label
	bestMean := -1.0
	for _, label := range emotion.Labels() {
		vals := confs[label]
		if len(vals) == 0 {
			continue
		}
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		if mean := sum / float64(len(vals)); mean > bestMean {
			best = label
			bestMean = mean
		}
	}

	rec := resultlog.AggregateRecord{
		EmittedAt:   a.clk.Now(),
		UserID:      userID,
		SessionID:   sessionID,
		WindowStart: start,
		WindowEnd:   end,
		ChunkCount:  len(results),
		Emotion:     best,
		Confidence:  bestMean,
	}

	var topSent string
	for _, s := range sentOrder {
		if topSent == "" || sentCounts[s] > sentCounts[topSent] {
			topSent = s
		}
	}
	if topSent != "" {
		rec.Sentiment = topSent
		rec.SentimentConfidence = sentSums[topSent] / float64(sentCounts[topSent])
	}
	return rec, true
}

// Status is the aggregator's liveness snapshot for /health.
type Status struct {
	Running  bool      `json:"running"`
	Ticks    int64     `json:"ticks"`
	LastTick time.Time `json:"last_tick"`
}

func (a *Aggregator) Status() Status {
	a.mu.Lock()
	last := a.lastTick
	a.mu.Unlock()
	return Status{
		Running:  a.running.Load(),
		Ticks:    a.ticks.Load(),
		LastTick: last,
	}
}
