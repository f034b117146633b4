// Package analyze holds the boundary to the external ML inference
// pipeline (speech emotion, transcription, language detection, sentiment)
// and the defensive WAV metadata probe.
//
// The pipeline itself runs out of process. This package fixes one
// canonical result shape at the core boundary; the remote adapter absorbs
// the loose response shapes the inference service is known to emit.
package analyze

import (
	"context"
)

// Result is the canonical pipeline output. Emotion carries the raw
// classifier label (one of nine classes); the worker maps it onto the
// four-class enum and drops chunks that do not map. Transcript, Language,
// Sentiment and SentimentConfidence are optional.
type Result struct {
	Emotion             string
	EmotionConfidence   float64
	Transcript          string
	Language            string
	Sentiment           string
	SentimentConfidence float64
}

// Pipeline is the inference contract. Analyze may take a long time and
// may fail; the worker treats any error as "drop this chunk" and never
// re-enters the pipeline for the same file.
type Pipeline interface {
	Analyze(ctx context.Context, wavPath string) (*Result, error)
}

// Func adapts a plain function to the Pipeline interface. Tests use it
// for scripted and blocking pipelines.
type Func func(ctx context.Context, wavPath string) (*Result, error)

func (f Func) Analyze(ctx context.Context, wavPath string) (*Result, error) {
	return f(ctx, wavPath)
}
