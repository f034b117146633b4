package store

import (
	"context"
	"time"

	"github.com/eefei22/well-bot-EmotionRecognition/internal/clock"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/emotion"
)

// VoiceEmotionRow is the input for inserting one processed speech chunk.
// Emotion is the four-class label; Transcript, Language, Sentiment and
// SentimentConfidence are optional and stored as NULL when absent
// (Sentiment and SentimentConfidence come paired or not at all).
type VoiceEmotionRow struct {
	UserID     string
	CapturedAt time.Time
	Emotion    emotion.Label
	Confidence float64

	Transcript          string
	Language            string
	Sentiment           string
	SentimentConfidence float64

	SampleRate    int
	FrameSizeMS   float64
	FrameStrideMS float64
	DurationSec   float64

	Synthetic bool
}

// InsertVoiceEmotion persists one speech row and returns its id.
func (s *Store) InsertVoiceEmotion(ctx context.Context, row *VoiceEmotionRow) (int64, error) {
	if s.Pool == nil {
		return 0, wrap(opInsertVoice, ErrDisabled)
	}

	var transcript, language, sentiment *string
	var sentConf *float64
	if row.Transcript != "" {
		transcript = &row.Transcript
	}
	if row.Language != "" {
		language = &row.Language
	}
	if row.Sentiment != "" {
		sentiment = &row.Sentiment
		sentConf = &row.SentimentConfidence
	}

	var id int64
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO voice_emotion (
			user_id, ts, sample_rate, frame_size_ms, frame_stride_ms,
			duration_sec, predicted_emotion, emotion_confidence,
			transcript, language, sentiment, sentiment_confidence,
			is_synthetic
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`,
		row.UserID, row.CapturedAt, row.SampleRate, row.FrameSizeMS, row.FrameStrideMS,
		row.DurationSec, string(row.Emotion), row.Confidence,
		transcript, language, sentiment, sentConf,
		row.Synthetic,
	).Scan(&id)
	if err != nil {
		return 0, wrap(opInsertVoice, err)
	}
	return id, nil
}

// QueryVoiceEmotionSignals returns the user's speech signals with
// start ≤ ts ≤ end, oldest first. Stored labels may be either four-class
// or raw classifier output; rows whose label does not normalize onto the
// four-class enum are filtered out here so the contract holds for every
// returned signal.
func (s *Store) QueryVoiceEmotionSignals(ctx context.Context, userID string, start, end time.Time, includeSynthetic bool) ([]emotion.ModelSignal, error) {
	if s.Pool == nil {
		return nil, wrap(opQuerySignals, ErrDisabled)
	}

	query := `
		SELECT ts, predicted_emotion, emotion_confidence
		FROM voice_emotion
		WHERE user_id = $1 AND ts >= $2 AND ts <= $3
	`
	if !includeSynthetic {
		query += ` AND is_synthetic = false`
	}
	query += ` ORDER BY ts ASC`

	rows, err := s.Pool.Query(ctx, query, userID, start, end)
	if err != nil {
		return nil, wrap(opQuerySignals, err)
	}
	defer rows.Close()

	signals := []emotion.ModelSignal{}
	for rows.Next() {
		var ts time.Time
		var rawLabel string
		var confidence float64
		if err := rows.Scan(&ts, &rawLabel, &confidence); err != nil {
			return nil, wrap(opQuerySignals, err)
		}
		label, ok := emotion.Normalize(rawLabel)
		if !ok {
			continue
		}
		signals = append(signals, emotion.ModelSignal{
			UserID:     userID,
			Timestamp:  clock.At(ts),
			Modality:   emotion.Speech,
			Emotion:    label,
			Confidence: confidence,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(opQuerySignals, err)
	}
	return signals, nil
}
