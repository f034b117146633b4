// Package synth fabricates ModelSignal rows while demo mode is on, so
// downstream consumers can be exercised without live models. Signals are
// written straight to the per-modality store tables with the synthetic
// flag set; the queue, tracker and ML path are never touched.
package synth

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/eefei22/well-bot-EmotionRecognition/internal/analyze"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/clock"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/control"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/emotion"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/metrics"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/store"
)

// biasProbability is the chance a biased modality draws its bias; the
// other three labels split the remainder evenly.
const biasProbability = 0.75

// SignalStore is the slice of the store client the generator writes
// through.
type SignalStore interface {
	InsertVoiceEmotion(ctx context.Context, row *store.VoiceEmotionRow) (int64, error)
	InsertFaceEmotionSynthetic(ctx context.Context, userID string, t time.Time, label emotion.Label, confidence float64) error
	InsertVitalsEmotionSynthetic(ctx context.Context, userID string, t time.Time, label emotion.Label, confidence float64) error
}

// Generator is the demo-mode periodic task. It runs unconditionally; a
// tick with demo mode off writes nothing.
type Generator struct {
	reg   *control.Registries
	store SignalStore
	clk   clock.Clock
	log   zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand

	running atomic.Bool
	counts  [3]atomic.Int64 // per modality, generation order
}

// New builds a generator. src may be nil for a time-seeded source; tests
// pass a fixed seed.
func New(reg *control.Registries, st SignalStore, clk clock.Clock, src rand.Source, log zerolog.Logger) *Generator {
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>32)
	}
	return &Generator{
		reg:   reg,
		store: st,
		clk:   clk,
		rng:   rand.New(src),
		log:   log.With().Str("component", "generator").Logger(),
	}
}

// Run sleeps the current synth interval, ticks, and repeats until ctx is
// cancelled. The interval and the demo flag are re-read every iteration.
func (g *Generator) Run(ctx context.Context) {
	g.running.Store(true)
	defer g.running.Store(false)
	g.log.Info().Int("interval_seconds", g.reg.SynthInterval.Get()).Msg("synthetic generator started")

	for {
		secs := g.reg.SynthInterval.Get()
		if secs <= 0 {
			secs = control.SynthDefault
		}
		timer := time.NewTimer(time.Duration(secs) * time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			g.log.Info().Msg("synthetic generator stopped")
			return
		case <-timer.C:
		}

		if !g.reg.Demo.Get() {
			continue
		}
		g.GenerateOnce(ctx)
	}
}

// GenerateOnce draws and writes one signal per enabled modality. Exposed
// so tests can drive ticks without the timer. Store failures are logged
// and skipped; the next tick is the retry.
func (g *Generator) GenerateOnce(ctx context.Context) {
	userID := g.reg.SyntheticUser.Get()
	now := g.clk.Now()

	for i, modality := range emotion.Modalities() {
		if !g.reg.Toggles.Get(modality) {
			continue
		}
		label := g.drawLabel(modality)
		confidence := g.drawConfidence()

		if err := g.write(ctx, modality, userID, now, label, confidence); err != nil {
			metrics.StoreErrorsTotal.WithLabelValues("insert "+string(modality), store.Class(err)).Inc()
			g.log.Error().Err(err).Str("modality", string(modality)).
				Msg("synthetic signal write failed, skipping")
			continue
		}

		g.counts[i].Add(1)
		metrics.SyntheticSignalsTotal.WithLabelValues(string(modality)).Inc()
		g.log.Debug().Str("modality", string(modality)).Str("emotion", string(label)).
			Float64("confidence", confidence).Msg("synthetic signal written")
	}
}

func (g *Generator) write(ctx context.Context, modality emotion.Modality, userID string, t time.Time, label emotion.Label, confidence float64) error {
	switch modality {
	case emotion.Face:
		return g.store.InsertFaceEmotionSynthetic(ctx, userID, t, label, confidence)
	case emotion.Vitals:
		return g.store.InsertVitalsEmotionSynthetic(ctx, userID, t, label, confidence)
	default:
		meta := analyze.DefaultAudioMeta()
		_, err := g.store.InsertVoiceEmotion(ctx, &store.VoiceEmotionRow{
			UserID:        userID,
			CapturedAt:    t,
			Emotion:       label,
			Confidence:    confidence,
			SampleRate:    meta.SampleRate,
			FrameSizeMS:   meta.FrameSizeMS,
			FrameStrideMS: meta.FrameStrideMS,
			DurationSec:   meta.DurationSec,
			Synthetic:     true,
		})
		return err
	}
}

// drawLabel picks the modality's bias with probability 0.75 and each of
// the other three labels with 0.25/3; with no bias, uniform over four.
func (g *Generator) drawLabel(modality emotion.Modality) emotion.Label {
	labels := emotion.Labels()

	g.mu.Lock()
	defer g.mu.Unlock()

	bias, ok := g.reg.Bias.Get(modality)
	if !ok {
		return labels[g.rng.IntN(len(labels))]
	}
	if g.rng.Float64() < biasProbability {
		return bias
	}
	others := make([]emotion.Label, 0, 3)
	for _, l := range labels {
		if l != bias {
			others = append(others, l)
		}
	}
	return others[g.rng.IntN(len(others))]
}

// drawConfidence is uniform in [0.5, 0.95], rounded to two decimals.
func (g *Generator) drawConfidence() float64 {
	g.mu.Lock()
	v := 0.5 + g.rng.Float64()*0.45
	g.mu.Unlock()
	return math.Round(v*100) / 100
}

// Status reports liveness and per-modality signal counts for /health and
// the simulation dashboard.
type Status struct {
	Running bool             `json:"running"`
	Counts  map[string]int64 `json:"counts"`
}

func (g *Generator) Status() Status {
	counts := make(map[string]int64, 3)
	for i, m := range emotion.Modalities() {
		counts[string(m)] = g.counts[i].Load()
	}
	return Status{Running: g.running.Load(), Counts: counts}
}
