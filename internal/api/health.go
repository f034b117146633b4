package api

import (
	"context"
	"net/http"
	"time"
)

// HealthResponse summarises the pipeline's moving parts. Status is
// "healthy", "degraded" (store unreachable) or "unhealthy" (worker or
// aggregator stopped).
type HealthResponse struct {
	Status     string         `json:"status"`
	Worker     map[string]any `json:"worker"`
	Aggregator map[string]any `json:"aggregator"`
	Generator  map[string]any `json:"generator"`
	Queue      map[string]int `json:"queue"`
	Store      map[string]any `json:"store"`
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	workerStats := s.deps.Worker.Stats()
	aggStatus := s.deps.Aggregator.Status()
	genStatus := s.deps.Generator.Status()

	storeOK := true
	if s.deps.Store.Enabled() {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Store.HealthCheck(ctx); err != nil {
			storeOK = false
		}
	}

	status := "healthy"
	code := http.StatusOK
	switch {
	case !workerStats.Running || !aggStatus.Running:
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	case !storeOK:
		status = "degraded"
	}

	WriteJSON(w, code, HealthResponse{
		Status: status,
		Worker: map[string]any{
			"running":   workerStats.Running,
			"processed": workerStats.Processed,
			"dropped":   workerStats.Dropped,
			"failed":    workerStats.Failed,
		},
		Aggregator: map[string]any{
			"running": aggStatus.Running,
			"ticks":   aggStatus.Ticks,
		},
		Generator: map[string]any{
			"running": genStatus.Running,
		},
		Queue: map[string]int{
			"size":     s.deps.Queue.Len(),
			"capacity": s.deps.Queue.Cap(),
		},
		Store: map[string]any{
			"enabled": s.deps.Store.Enabled(),
			"ok":      storeOK,
		},
	})
}
