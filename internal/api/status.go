package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/eefei22/well-bot-EmotionRecognition/internal/aggregate"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/clock"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/ingest"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/resultlog"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/session"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/synth"
)

const statusResultLimit = 20

// StatusResponse is the GET /ser/status body.
type StatusResponse struct {
	Requests   []RequestEntry          `json:"recent_requests"`
	Processing *ingest.ProcessingItem  `json:"processing,omitempty"`
	Results    []resultlog.ChunkRecord `json:"recent_results"`
	QueueSize  int                     `json:"queue_size"`
	Worker     ingest.Stats            `json:"worker"`
}

func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Requests:  s.requests.Recent(s.deps.Clock.Now()),
		Results:   s.deps.Results.RecentChunks(statusResultLimit, ""),
		QueueSize: s.deps.Queue.Len(),
		Worker:    s.deps.Worker.Stats(),
	}
	if item, ok := s.deps.Processing.Snapshot(); ok {
		resp.Processing = &item
	}
	WriteJSON(w, http.StatusOK, resp)
}

// DashboardStatus is the JSON feed behind /ser/dashboard. It accepts an
// optional ?user_id= filter and, when filtering, annotates how far the
// downstream fusion reader has consumed that user's signals.
type DashboardStatus struct {
	Now        clock.Time                  `json:"now"`
	QueueSize  int                         `json:"queue_size"`
	QueueCap   int                         `json:"queue_capacity"`
	Processing *ingest.ProcessingItem      `json:"processing,omitempty"`
	Worker     ingest.Stats                `json:"worker"`
	Aggregator aggregate.Status            `json:"aggregator"`
	Generator  synth.Status                `json:"generator"`
	Sessions   session.Stats               `json:"sessions"`
	Results    []resultlog.ChunkRecord     `json:"recent_results"`
	Aggregates []resultlog.AggregateRecord `json:"recent_aggregates"`

	AggregationIntervalSeconds int  `json:"aggregation_interval_seconds"`
	DemoMode                   bool `json:"demo_mode"`

	// Set only when a user filter is present and the downstream log has
	// an entry for that user.
	DownstreamConsumedThrough *clock.Time `json:"downstream_consumed_through,omitempty"`
}

func (s *Server) DashboardStatus(w http.ResponseWriter, r *http.Request) {
	userFilter := r.URL.Query().Get("user_id")
	if userFilter != "" {
		if _, err := uuid.Parse(userFilter); err != nil {
			WriteError(w, http.StatusBadRequest, "user_id must be a valid UUID")
			return
		}
	}

	now := s.deps.Clock.Now()
	resp := DashboardStatus{
		Now:        clock.At(now),
		QueueSize:  s.deps.Queue.Len(),
		QueueCap:   s.deps.Queue.Cap(),
		Worker:     s.deps.Worker.Stats(),
		Aggregator: s.deps.Aggregator.Status(),
		Generator:  s.deps.Generator.Status(),
		Sessions:   s.deps.Tracker.Stats(),
		Results:    s.deps.Results.RecentChunks(statusResultLimit, userFilter),
		Aggregates: s.deps.Results.RecentAggregates(statusResultLimit, userFilter),

		AggregationIntervalSeconds: s.deps.Registries.AggregationInterval.Get(),
		DemoMode:                   s.deps.Registries.Demo.Get(),
	}
	if item, ok := s.deps.Processing.Snapshot(); ok {
		resp.Processing = &item
	}

	if userFilter != "" {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if mark, ok := s.deps.Store.LastDownstreamConsumption(ctx, userFilter); ok {
			t := clock.At(mark)
			resp.DownstreamConsumedThrough = &t
		}
	}

	WriteJSON(w, http.StatusOK, resp)
}
