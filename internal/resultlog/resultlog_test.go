package resultlog

import (
	"fmt"
	"testing"
	"time"

	"github.com/eefei22/well-bot-EmotionRecognition/internal/emotion"
)

func chunkFor(user string, n int) ChunkRecord {
	return ChunkRecord{
		UserID:    user,
		SessionID: fmt.Sprintf("%s_s%d", user, n),
		Result: emotion.ChunkResult{
			CapturedAt: time.Date(2025, 6, 1, 12, 0, n, 0, time.UTC),
			Emotion:    emotion.Happy,
			Confidence: 0.9,
		},
		DBWrite: true,
	}
}

func TestRecentChunksNewestFirst(t *testing.T) {
	l := New(10, 10)
	for i := 0; i < 5; i++ {
		l.AppendChunk(chunkFor("u1", i))
	}

	got := l.RecentChunks(3, "")
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	for i, want := range []string{"u1_s4", "u1_s3", "u1_s2"} {
		if got[i].SessionID != want {
			t.Errorf("record %d: got session %q, want %q", i, got[i].SessionID, want)
		}
	}
}

func TestRingEviction(t *testing.T) {
	l := New(3, 3)
	for i := 0; i < 5; i++ {
		l.AppendChunk(chunkFor("u1", i))
	}

	got := l.RecentChunks(0, "")
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3 after eviction", len(got))
	}
	if got[0].SessionID != "u1_s4" || got[2].SessionID != "u1_s2" {
		t.Errorf("got sessions %q..%q, want u1_s4..u1_s2", got[0].SessionID, got[2].SessionID)
	}
}

func TestUserFilter(t *testing.T) {
	l := New(10, 10)
	l.AppendChunk(chunkFor("u1", 0))
	l.AppendChunk(chunkFor("u2", 1))
	l.AppendChunk(chunkFor("u1", 2))

	got := l.RecentChunks(0, "u1")
	if len(got) != 2 {
		t.Fatalf("got %d records for u1, want 2", len(got))
	}
	for _, r := range got {
		if r.UserID != "u1" {
			t.Errorf("filter leaked record for user %q", r.UserID)
		}
	}
}

func TestAggregateRing(t *testing.T) {
	l := New(10, 2)
	for i := 0; i < 3; i++ {
		l.AppendAggregate(AggregateRecord{
			UserID:     "u1",
			SessionID:  fmt.Sprintf("u1_s%d", i),
			Emotion:    emotion.Sad,
			ChunkCount: i + 1,
		})
	}

	got := l.RecentAggregates(0, "")
	if len(got) != 2 {
		t.Fatalf("got %d aggregates, want 2", len(got))
	}
	if got[0].SessionID != "u1_s2" {
		t.Errorf("newest aggregate is %q, want u1_s2", got[0].SessionID)
	}

	chunks, aggs := l.Sizes()
	if chunks != 0 || aggs != 2 {
		t.Errorf("Sizes() = (%d, %d), want (0, 2)", chunks, aggs)
	}
}
