package analyze

import (
	"context"
	"sync"
	"time"
)

// Stub is the pipeline used when no inference service is configured, and
// the scripted pipeline in tests. With an empty script every call returns
// Default; otherwise calls consume the script in order and the last entry
// repeats.
type Stub struct {
	Default Result
	Delay   time.Duration
	Err     error

	mu     sync.Mutex
	script []Result
	calls  int
}

// NewStub returns a stub that always reports a confident happy chunk, the
// shape a dev setup wants for exercising the full ingest path.
func NewStub() *Stub {
	return &Stub{
		Default: Result{
			Emotion:             "happy",
			EmotionConfidence:   0.9,
			Transcript:          "stub transcript",
			Language:            "en",
			Sentiment:           "POS",
			SentimentConfidence: 0.8,
		},
	}
}

// Script replaces the remaining scripted results.
func (s *Stub) Script(results ...Result) {
	s.mu.Lock()
	s.script = results
	s.mu.Unlock()
}

// Calls reports how many times Analyze has been invoked.
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *Stub) Analyze(ctx context.Context, wavPath string) (*Result, error) {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.Err != nil {
		return nil, s.Err
	}

	res := s.Default
	if len(s.script) > 0 {
		res = s.script[0]
		if len(s.script) > 1 {
			s.script = s.script[1:]
		}
	}
	return &res, nil
}
