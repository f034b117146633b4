package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/eefei22/well-bot-EmotionRecognition/internal/analyze"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/emotion"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/metrics"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/resultlog"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/session"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/spool"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/store"
)

// VoiceStore is the slice of the store client the worker needs.
type VoiceStore interface {
	InsertVoiceEmotion(ctx context.Context, row *store.VoiceEmotionRow) (int64, error)
}

// DefaultGrace is how long the just-finished item stays visible on the
// dashboard before the processing slot is cleared.
const DefaultGrace = 500 * time.Millisecond

const dequeueWait = time.Second

// WorkerOptions wires the worker's collaborators.
type WorkerOptions struct {
	Queue      *Queue
	Pipeline   analyze.Pipeline
	Store      VoiceStore
	Tracker    *session.Tracker
	Results    *resultlog.Log
	Processing *Processing
	Spool      *spool.Spool
	Grace      time.Duration // 0 means DefaultGrace; negative disables
	Log        zerolog.Logger
}

// Worker is the single queue consumer. It runs the pipeline, maps the
// emotion, persists kept results, and feeds the session tracker and the
// result ring. It is an exception sink: no chunk failure escapes the loop.
type Worker struct {
	opts  WorkerOptions
	grace time.Duration
	log   zerolog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	running   atomic.Bool
	processed atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
}

func NewWorker(opts WorkerOptions) *Worker {
	grace := opts.Grace
	if grace == 0 {
		grace = DefaultGrace
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		opts:   opts,
		grace:  grace,
		log:    opts.Log.With().Str("component", "worker").Logger(),
		ctx:    ctx,
		cancel: cancel,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the consumer goroutine.
func (w *Worker) Start() {
	w.running.Store(true)
	go w.run()
	w.log.Info().Int("queue_capacity", w.opts.Queue.Cap()).Msg("chunk worker started")
}

// Stop drains the queue until ctx expires, then abandons the remaining
// jobs (their spool files are removed on a best-effort sweep). Idempotent.
func (w *Worker) Stop(ctx context.Context) {
	w.stopOnce.Do(func() { close(w.stop) })
	select {
	case <-w.done:
	case <-ctx.Done():
		w.cancel() // abort the in-flight pipeline call
		select {
		case <-w.done:
		case <-time.After(time.Second):
			w.log.Error().Msg("worker did not finish cleanly")
		}
	}
	w.log.Info().
		Int64("processed", w.processed.Load()).
		Int64("dropped", w.dropped.Load()).
		Int64("failed", w.failed.Load()).
		Int("abandoned", w.opts.Queue.Len()).
		Msg("chunk worker stopped")
}

// Stats is the worker's counter snapshot for /health and dashboards.
// Processed counts every chunk that completed the pipeline, including
// dropped ones.
type Stats struct {
	Running   bool  `json:"running"`
	Processed int64 `json:"processed"`
	Dropped   int64 `json:"dropped"`
	Failed    int64 `json:"failed"`
}

func (w *Worker) Stats() Stats {
	return Stats{
		Running:   w.running.Load(),
		Processed: w.processed.Load(),
		Dropped:   w.dropped.Load(),
		Failed:    w.failed.Load(),
	}
}

func (w *Worker) run() {
	defer close(w.done)
	defer w.running.Store(false)

	for {
		select {
		case <-w.stop:
			w.drain()
			return
		default:
		}

		job, ok := w.opts.Queue.Dequeue(w.ctx, dequeueWait)
		if !ok {
			if w.ctx.Err() != nil {
				return
			}
			continue
		}
		w.process(job)
	}
}

// drain handles whatever is already queued without waiting for more. A
// hard cancel during drain stops between jobs.
func (w *Worker) drain() {
	for w.ctx.Err() == nil {
		job, ok := w.opts.Queue.TryDequeue()
		if !ok {
			return
		}
		w.process(job)
	}
}

func (w *Worker) process(job *ChunkJob) {
	defer w.opts.Spool.Remove(job.Path)

	userID := job.UserID.String()
	log := w.log.With().Str("user_id", userID).Str("file", job.Filename).Logger()

	gen := w.opts.Processing.Set(ProcessingItem{
		UserID:    userID,
		Filename:  job.Filename,
		StartedAt: job.ReceivedAt,
	})
	defer w.clearAfterGrace(gen)

	meta := analyze.ProbeWAV(job.Path)

	start := time.Now()
	res, err := w.opts.Pipeline.Analyze(w.ctx, job.Path)
	metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		w.failed.Add(1)
		metrics.ChunksDroppedTotal.WithLabelValues("pipeline").Inc()
		log.Error().Err(err).Msg("pipeline failed, chunk dropped")
		return
	}

	w.processed.Add(1)
	metrics.ChunksProcessedTotal.Inc()

	label, ok := emotion.FromModel(res.Emotion)
	if !ok {
		// Neutral-class chunks never reach storage or the tracker; the
		// four-class contract holds end to end.
		w.dropped.Add(1)
		metrics.ChunksDroppedTotal.WithLabelValues("mapping").Inc()
		log.Debug().Str("emotion", res.Emotion).Msg("unmappable emotion, chunk dropped")
		return
	}

	result := emotion.ChunkResult{
		CapturedAt:          job.ReceivedAt,
		Emotion:             label,
		Confidence:          res.EmotionConfidence,
		Transcript:          res.Transcript,
		Language:            emotion.NormalizeLanguage(res.Language),
		Sentiment:           res.Sentiment,
		SentimentConfidence: res.SentimentConfidence,
	}

	rowID, err := w.opts.Store.InsertVoiceEmotion(w.ctx, &store.VoiceEmotionRow{
		UserID:              userID,
		CapturedAt:          result.CapturedAt,
		Emotion:             result.Emotion,
		Confidence:          result.Confidence,
		Transcript:          result.Transcript,
		Language:            result.Language,
		Sentiment:           result.Sentiment,
		SentimentConfidence: result.SentimentConfidence,
		SampleRate:          meta.SampleRate,
		FrameSizeMS:         meta.FrameSizeMS,
		FrameStrideMS:       meta.FrameStrideMS,
		DurationSec:         meta.DurationSec,
		Synthetic:           false,
	})
	dbWrite := err == nil
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("insert voice_emotion", store.Class(err)).Inc()
		log.Error().Err(err).Msg("store insert failed, result kept in memory only")
	}

	sessionID := w.opts.Tracker.AddResult(userID, result)
	w.opts.Results.AppendChunk(resultlog.ChunkRecord{
		UserID:    userID,
		SessionID: sessionID,
		Result:    result,
		DBWrite:   dbWrite,
		RowID:     rowID,
	})

	log.Debug().
		Str("session_id", sessionID).
		Str("emotion", string(label)).
		Float64("confidence", result.Confidence).
		Bool("db_write", dbWrite).
		Msg("chunk processed")
}

func (w *Worker) clearAfterGrace(gen uint64) {
	if w.grace > 0 {
		select {
		case <-time.After(w.grace):
		case <-w.ctx.Done():
		}
	}
	w.opts.Processing.ClearIfCurrent(gen)
}
