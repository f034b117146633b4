// Package session groups per-user chunk results into sessions by
// inter-arrival gap. A session is a maximal run of chunks from one user
// whose gaps stay within the configured threshold.
package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/eefei22/well-bot-EmotionRecognition/internal/clock"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/emotion"
)

// DefaultGap is the session-split threshold when none is configured.
const DefaultGap = 60 * time.Second

type sessionMeta struct {
	start     time.Time
	lastChunk time.Time
}

// userSessions carries one user's sessions. Its mutex serialises all
// appends and reads for that user; the Tracker's top-level mutex only
// guards creation of the submap.
type userSessions struct {
	mu       sync.Mutex
	sessions map[string][]emotion.ChunkResult
	meta     map[string]sessionMeta
}

// Tracker is the per-user session state shared by the ingest worker
// (append) and the aggregator (snapshot read + cleanup).
type Tracker struct {
	gap time.Duration
	log zerolog.Logger

	mu    sync.Mutex
	users map[string]*userSessions
}

func NewTracker(gap time.Duration, log zerolog.Logger) *Tracker {
	if gap <= 0 {
		gap = DefaultGap
	}
	return &Tracker{
		gap:   gap,
		log:   log.With().Str("component", "session").Logger(),
		users: make(map[string]*userSessions),
	}
}

func (t *Tracker) user(userID string) *userSessions {
	t.mu.Lock()
	defer t.mu.Unlock()
	us, ok := t.users[userID]
	if !ok {
		us = &userSessions{
			sessions: make(map[string][]emotion.ChunkResult),
			meta:     make(map[string]sessionMeta),
		}
		t.users[userID] = us
	}
	return us
}

// AddResult appends one chunk result to the user's current session,
// creating a new session when the gap to the most recent session exceeds
// the threshold. A gap exactly at the threshold reuses the session.
// Returns the session id the result landed in.
//
// Out-of-order arrivals are allowed: results append in arrival order and
// the session's last-chunk time never moves backwards.
func (t *Tracker) AddResult(userID string, result emotion.ChunkResult) string {
	us := t.user(userID)
	us.mu.Lock()
	defer us.mu.Unlock()

	id := us.latestSessionID()
	if id == "" || result.CapturedAt.Sub(us.meta[id].lastChunk) > t.gap {
		id = t.newSession(userID, us, result.CapturedAt)
	}

	us.sessions[id] = append(us.sessions[id], result)
	m := us.meta[id]
	if result.CapturedAt.After(m.lastChunk) {
		m.lastChunk = result.CapturedAt
	}
	us.meta[id] = m
	return id
}

// latestSessionID returns the session with the greatest last-chunk time,
// or "" when the user has none.
func (us *userSessions) latestSessionID() string {
	var latest string
	var latestAt time.Time
	for id, m := range us.meta {
		if latest == "" || m.lastChunk.After(latestAt) {
			latest = id
			latestAt = m.lastChunk
		}
	}
	return latest
}

// newSession creates a session keyed by the first chunk's timestamp. Two
// gap-splits for the same user within the same second would derive the
// same id; that collision is detected here and the existing session is
// reused rather than silently overwritten.
func (t *Tracker) newSession(userID string, us *userSessions, at time.Time) string {
	id := userID + "_" + clock.SessionStamp(at)
	if _, exists := us.sessions[id]; exists {
		t.log.Warn().Str("user_id", userID).Str("session_id", id).
			Msg("session id collision within one second, reusing existing session")
		return id
	}
	us.sessions[id] = nil
	us.meta[id] = sessionMeta{start: at, lastChunk: at}
	return id
}

// ActiveSessionsInWindow returns a deep-copied snapshot of every session
// with at least one result in (start, end]. Appends after the snapshot do
// not mutate the returned view.
func (t *Tracker) ActiveSessionsInWindow(start, end time.Time) map[string]map[string][]emotion.ChunkResult {
	t.mu.Lock()
	userIDs := make([]string, 0, len(t.users))
	for id := range t.users {
		userIDs = append(userIDs, id)
	}
	t.mu.Unlock()

	active := make(map[string]map[string][]emotion.ChunkResult)
	for _, userID := range userIDs {
		us := t.user(userID)
		us.mu.Lock()
		for sessionID, results := range us.sessions {
			var inWindow []emotion.ChunkResult
			for _, r := range results {
				if r.CapturedAt.After(start) && !r.CapturedAt.After(end) {
					inWindow = append(inWindow, r)
				}
			}
			if len(inWindow) == 0 {
				continue
			}
			if active[userID] == nil {
				active[userID] = make(map[string][]emotion.ChunkResult)
			}
			active[userID][sessionID] = inWindow
		}
		us.mu.Unlock()
	}
	return active
}

// CleanupOlderThan drops the user's sessions whose last-chunk time is
// strictly before cutoff. A session whose last chunk is exactly at the
// cutoff survives.
func (t *Tracker) CleanupOlderThan(userID string, cutoff time.Time) int {
	t.mu.Lock()
	us, ok := t.users[userID]
	t.mu.Unlock()
	if !ok {
		return 0
	}

	us.mu.Lock()
	defer us.mu.Unlock()
	removed := 0
	for id, m := range us.meta {
		if m.lastChunk.Before(cutoff) {
			delete(us.sessions, id)
			delete(us.meta, id)
			removed++
		}
	}
	if removed > 0 {
		t.log.Debug().Str("user_id", userID).Int("removed", removed).
			Time("cutoff", cutoff).Msg("expired sessions cleaned up")
	}
	return removed
}

// Stats is a point-in-time summary for dashboards and the metrics
// collector.
type Stats struct {
	Users    int `json:"users"`
	Sessions int `json:"sessions"`
	Results  int `json:"results"`
}

func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	userIDs := make([]string, 0, len(t.users))
	for id := range t.users {
		userIDs = append(userIDs, id)
	}
	t.mu.Unlock()

	var s Stats
	for _, userID := range userIDs {
		us := t.user(userID)
		us.mu.Lock()
		if len(us.sessions) > 0 {
			s.Users++
		}
		s.Sessions += len(us.sessions)
		for _, results := range us.sessions {
			s.Results += len(results)
		}
		us.mu.Unlock()
	}
	return s
}
