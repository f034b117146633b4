package session

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/eefei22/well-bot-EmotionRecognition/internal/clock"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/emotion"
)

const testUser = "11111111-1111-1111-1111-111111111111"

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, clock.Zone)

func newTestTracker() *Tracker {
	return NewTracker(60*time.Second, zerolog.Nop())
}

func resultAt(t time.Time, label emotion.Label, conf float64) emotion.ChunkResult {
	return emotion.ChunkResult{CapturedAt: t, Emotion: label, Confidence: conf}
}

func TestSessionSplitByGap(t *testing.T) {
	tr := newTestTracker()

	sA := tr.AddResult(testUser, resultAt(t0, emotion.Happy, 0.9))
	sB := tr.AddResult(testUser, resultAt(t0.Add(30*time.Second), emotion.Happy, 0.8))
	sC := tr.AddResult(testUser, resultAt(t0.Add(120*time.Second), emotion.Sad, 0.7))

	if sA != sB {
		t.Errorf("chunks 30s apart split sessions: %q vs %q", sA, sB)
	}
	if sC == sA {
		t.Errorf("chunk 90s after last stayed in session %q", sA)
	}

	stats := tr.Stats()
	if stats.Sessions != 2 || stats.Results != 3 {
		t.Errorf("Stats() = %+v, want 2 sessions, 3 results", stats)
	}
}

func TestGapBoundaryIsSameSession(t *testing.T) {
	tr := newTestTracker()

	sA := tr.AddResult(testUser, resultAt(t0, emotion.Happy, 0.9))
	sB := tr.AddResult(testUser, resultAt(t0.Add(60*time.Second), emotion.Happy, 0.8))

	if sA != sB {
		t.Errorf("gap exactly at threshold split sessions: %q vs %q", sA, sB)
	}
}

func TestSessionIDDerivation(t *testing.T) {
	tr := newTestTracker()
	id := tr.AddResult(testUser, resultAt(t0, emotion.Happy, 0.9))

	want := testUser + "_20250601_120000"
	if id != want {
		t.Errorf("session id = %q, want %q", id, want)
	}
}

func TestAppendOrderPreserved(t *testing.T) {
	tr := newTestTracker()
	labels := []emotion.Label{emotion.Happy, emotion.Sad, emotion.Angry}
	for i, l := range labels {
		tr.AddResult(testUser, resultAt(t0.Add(time.Duration(i)*time.Second), l, 0.5))
	}

	active := tr.ActiveSessionsInWindow(t0.Add(-time.Minute), t0.Add(time.Minute))
	for _, sessions := range active {
		for _, results := range sessions {
			if len(results) != 3 {
				t.Fatalf("got %d results, want 3", len(results))
			}
			for i, l := range labels {
				if results[i].Emotion != l {
					t.Errorf("result %d: got %q, want %q", i, results[i].Emotion, l)
				}
			}
		}
	}
}

func TestOutOfOrderArrivalKeepsLastChunkTime(t *testing.T) {
	tr := newTestTracker()
	tr.AddResult(testUser, resultAt(t0.Add(10*time.Second), emotion.Happy, 0.9))
	// Earlier timestamp arrives second; last-chunk must not move backwards.
	sOld := tr.AddResult(testUser, resultAt(t0, emotion.Sad, 0.8))

	// 50s after the newest chunk is within the 60s gap of t0+10s but would
	// exceed it if last-chunk had regressed to t0.
	sNext := tr.AddResult(testUser, resultAt(t0.Add(65*time.Second), emotion.Happy, 0.7))
	if sNext != sOld {
		t.Errorf("last-chunk time regressed: new session %q, want %q", sNext, sOld)
	}
}

func TestWindowBoundsHalfOpen(t *testing.T) {
	tr := newTestTracker()
	tr.AddResult(testUser, resultAt(t0, emotion.Happy, 0.9))

	// t0 at the window start is excluded; at the window end it is included.
	if active := tr.ActiveSessionsInWindow(t0, t0.Add(time.Minute)); len(active) != 0 {
		t.Errorf("result at window start leaked into window: %v", active)
	}
	if active := tr.ActiveSessionsInWindow(t0.Add(-time.Minute), t0); len(active) != 1 {
		t.Errorf("result at window end missing from window")
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := newTestTracker()
	tr.AddResult(testUser, resultAt(t0, emotion.Happy, 0.9))

	active := tr.ActiveSessionsInWindow(t0.Add(-time.Minute), t0.Add(time.Minute))
	tr.AddResult(testUser, resultAt(t0.Add(time.Second), emotion.Sad, 0.8))

	for _, sessions := range active {
		for _, results := range sessions {
			if len(results) != 1 {
				t.Errorf("snapshot mutated by later append: %d results", len(results))
			}
		}
	}
}

func TestCleanupOlderThan(t *testing.T) {
	tr := newTestTracker()
	tr.AddResult(testUser, resultAt(t0, emotion.Happy, 0.9))
	tr.AddResult(testUser, resultAt(t0.Add(5*time.Minute), emotion.Sad, 0.8))

	// Cutoff exactly at the first session's last chunk: it survives.
	if removed := tr.CleanupOlderThan(testUser, t0); removed != 0 {
		t.Errorf("session with last chunk at cutoff was removed")
	}
	if removed := tr.CleanupOlderThan(testUser, t0.Add(time.Second)); removed != 1 {
		t.Errorf("CleanupOlderThan removed %d sessions, want 1", removed)
	}

	stats := tr.Stats()
	if stats.Sessions != 1 {
		t.Errorf("got %d sessions after cleanup, want 1", stats.Sessions)
	}
}

func TestSameSecondCollisionReusesSession(t *testing.T) {
	tr := NewTracker(time.Millisecond, zerolog.Nop())

	// Two results in the same second with a gap over the 1ms threshold
	// derive the same session id; the tracker must reuse, not overwrite.
	sA := tr.AddResult(testUser, resultAt(t0, emotion.Happy, 0.9))
	sB := tr.AddResult(testUser, resultAt(t0.Add(500*time.Millisecond), emotion.Sad, 0.8))

	if sA != sB {
		t.Fatalf("collision produced distinct ids %q and %q", sA, sB)
	}
	stats := tr.Stats()
	if stats.Sessions != 1 || stats.Results != 2 {
		t.Errorf("Stats() = %+v, want 1 session with 2 results", stats)
	}
}
