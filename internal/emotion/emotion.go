// Package emotion holds the four-class emotion vocabulary shared by the
// ingest worker, session tracker, aggregator, and store readers.
package emotion

import (
	"strings"
	"time"
)

// Label is one of the four emotion classes downstream consumers contract on.
type Label string

const (
	Angry Label = "Angry"
	Sad   Label = "Sad"
	Happy Label = "Happy"
	Fear  Label = "Fear"
)

// Labels returns the four classes in their canonical order. Aggregation
// tie-breaks and the synthetic generator's uniform draw both iterate this
// order, so it must stay stable.
func Labels() [4]Label {
	return [4]Label{Angry, Sad, Happy, Fear}
}

// ParseLabel accepts a four-class label (case-insensitive).
func ParseLabel(s string) (Label, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "angry":
		return Angry, true
	case "sad":
		return Sad, true
	case "happy":
		return Happy, true
	case "fear":
		return Fear, true
	}
	return "", false
}

// FromModel maps a raw nine-class classifier output onto the four-class
// enum. The neutral classes map to nothing: the chunk is dropped before it
// reaches persistence or the session tracker.
func FromModel(s string) (Label, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "angry", "disgusted":
		return Angry, true
	case "sad":
		return Sad, true
	case "happy":
		return Happy, true
	case "fearful", "surprised":
		return Fear, true
	}
	// neutral, other, unknown, empty, and anything unrecognized
	return "", false
}

// Normalize resolves a stored label that may be either four-class or raw
// nine-class. Store readers use this so mixed rows still honor the
// four-class contract.
func Normalize(s string) (Label, bool) {
	if l, ok := ParseLabel(s); ok {
		return l, true
	}
	return FromModel(s)
}

// Modality identifies one of the three signal sources.
type Modality string

const (
	Speech Modality = "speech"
	Face   Modality = "face"
	Vitals Modality = "vitals"
)

// Modalities returns the three modalities in generation order.
func Modalities() [3]Modality {
	return [3]Modality{Speech, Face, Vitals}
}

// ParseModality accepts the canonical modality names plus the legacy model
// aliases ("ser" for speech, "fer" for face) still used by older clients.
func ParseModality(s string) (Modality, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "speech", "ser":
		return Speech, true
	case "face", "fer":
		return Face, true
	case "vitals", "bvs":
		return Vitals, true
	}
	return "", false
}

// NormalizeLanguage collapses detected languages onto the supported set.
func NormalizeLanguage(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en", "english":
		return "en"
	case "ms", "malay":
		return "ms"
	case "zh", "chinese", "mandarin":
		return "zh"
	case "":
		return ""
	}
	return "unknown"
}

// ChunkResult is one processed audio chunk that survived the mapping. It is
// appended to the owner's session and copied into the recent-results ring;
// nothing mutates it afterwards.
type ChunkResult struct {
	CapturedAt          time.Time `json:"captured_at"`
	Emotion             Label     `json:"emotion"`
	Confidence          float64   `json:"confidence"`
	Transcript          string    `json:"transcript,omitempty"`
	Language            string    `json:"language,omitempty"`
	Sentiment           string    `json:"sentiment,omitempty"`
	SentimentConfidence float64   `json:"sentiment_confidence,omitempty"`
}
