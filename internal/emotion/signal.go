package emotion

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/eefei22/well-bot-EmotionRecognition/internal/clock"
)

// ModelSignal is the boundary type exchanged with downstream consumers
// and written to the per-modality store tables. Labels are always the
// four-class vocabulary on this type; raw classifier output never
// crosses this boundary.
type ModelSignal struct {
	UserID     string     `json:"user_id"`
	Timestamp  clock.Time `json:"timestamp"`
	Modality   Modality   `json:"modality"`
	Emotion    Label      `json:"emotion"`
	Confidence float64    `json:"confidence"`
}

// Validate checks the signal against the wire contract. The modality is
// validated separately by the caller when it comes from the URL rather
// than the body.
func (s *ModelSignal) Validate() error {
	if _, err := uuid.Parse(s.UserID); err != nil {
		return fmt.Errorf("invalid user_id %q: must be a UUID", s.UserID)
	}
	if _, ok := ParseLabel(string(s.Emotion)); !ok {
		return fmt.Errorf("invalid emotion %q: must be one of Angry, Sad, Happy, Fear", s.Emotion)
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("invalid confidence %v: must be within [0, 1]", s.Confidence)
	}
	if s.Timestamp.IsZero() {
		return fmt.Errorf("missing timestamp")
	}
	return nil
}
