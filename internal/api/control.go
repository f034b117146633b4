package api

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/eefei22/well-bot-EmotionRecognition/internal/control"
)

// IntervalRequest is the write body for both interval endpoints.
type IntervalRequest struct {
	Seconds int `json:"seconds"`
}

func (s *Server) GetAggregationInterval(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, s.deps.Registries.AggregationInterval.Status())
}

func (s *Server) SetAggregationInterval(w http.ResponseWriter, r *http.Request) {
	s.setInterval(w, r, s.deps.Registries.AggregationInterval)
}

func (s *Server) GetGenerationInterval(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, s.deps.Registries.SynthInterval.Status())
}

func (s *Server) SetGenerationInterval(w http.ResponseWriter, r *http.Request) {
	s.setInterval(w, r, s.deps.Registries.SynthInterval)
}

func (s *Server) setInterval(w http.ResponseWriter, r *http.Request, interval *control.Interval) {
	var req IntervalRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := interval.Set(req.Seconds); err != nil {
		if errors.Is(err, control.ErrOutOfRange) {
			hlog.FromRequest(r).Warn().Int("seconds", req.Seconds).Msg("interval rejected")
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, "failed to update interval")
		return
	}
	hlog.FromRequest(r).Info().Int("seconds", req.Seconds).Msg("interval updated")
	WriteJSON(w, http.StatusOK, interval.Status())
}
