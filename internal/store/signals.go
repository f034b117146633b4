package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/eefei22/well-bot-EmotionRecognition/internal/clock"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/emotion"
)

// InsertFaceEmotionSynthetic persists one fabricated face signal.
func (s *Store) InsertFaceEmotionSynthetic(ctx context.Context, userID string, t time.Time, label emotion.Label, confidence float64) error {
	return s.insertSignal(ctx, opInsertFace, "face_emotion", userID, t, label, confidence)
}

// InsertVitalsEmotionSynthetic persists one fabricated vitals signal.
func (s *Store) InsertVitalsEmotionSynthetic(ctx context.Context, userID string, t time.Time, label emotion.Label, confidence float64) error {
	return s.insertSignal(ctx, opInsertVitals, "bvs_emotion", userID, t, label, confidence)
}

// insertSignal writes to one of the two synthetic-only modality tables.
// The table name is a compile-time constant at both call sites, never
// caller input.
func (s *Store) insertSignal(ctx context.Context, op, table, userID string, t time.Time, label emotion.Label, confidence float64) error {
	if s.Pool == nil {
		return wrap(op, ErrDisabled)
	}

	day := t.In(clock.Zone).Format("2006-01-02")
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO `+table+` (
			user_id, ts, predicted_emotion, emotion_confidence, date, is_synthetic
		) VALUES ($1, $2, $3, $4, $5, true)
	`, userID, t, string(label), confidence, day)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

// LastDownstreamConsumption reports the most recent emotional_log
// timestamp for the user, the low-water mark of the downstream fusion
// reader. It is used only to suppress already-consumed signals from
// dashboard views, so it never fails: a disabled store or a query error
// is logged and reported as "no mark".
func (s *Store) LastDownstreamConsumption(ctx context.Context, userID string) (time.Time, bool) {
	if s.Pool == nil {
		return time.Time{}, false
	}

	var ts time.Time
	err := s.Pool.QueryRow(ctx, `
		SELECT ts FROM emotional_log
		WHERE user_id = $1
		ORDER BY ts DESC
		LIMIT 1
	`, userID).Scan(&ts)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false
	}
	if err != nil {
		s.log.Warn().Err(wrap(opLastConsumption, err)).Str("user_id", userID).
			Msg("low-water mark lookup failed, treating as none")
		return time.Time{}, false
	}
	return ts.In(clock.Zone), true
}
