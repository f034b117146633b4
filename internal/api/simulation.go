package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/eefei22/well-bot-EmotionRecognition/internal/analyze"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/clock"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/emotion"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/store"
)

// DemoModeBody is the read and write shape for /simulation/demo-mode.
type DemoModeBody struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) GetDemoMode(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, DemoModeBody{Enabled: s.deps.Registries.Demo.Get()})
}

func (s *Server) SetDemoMode(w http.ResponseWriter, r *http.Request) {
	var req DemoModeBody
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.deps.Registries.Demo.Set(req.Enabled)
	hlog.FromRequest(r).Info().Bool("enabled", req.Enabled).Msg("demo mode updated")
	WriteJSON(w, http.StatusOK, DemoModeBody{Enabled: s.deps.Registries.Demo.Get()})
}

// BiasRequest sets one modality's bias; emotion "none" (or empty) clears.
type BiasRequest struct {
	Modality string `json:"modality"`
	Emotion  string `json:"emotion"`
}

func (s *Server) GetAllBias(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, s.deps.Registries.Bias.All())
}

func (s *Server) GetBias(w http.ResponseWriter, r *http.Request) {
	m, ok := emotion.ParseModality(chi.URLParam(r, "modality"))
	if !ok {
		WriteError(w, http.StatusBadRequest, "modality must be one of speech, face, vitals")
		return
	}
	bias := "none"
	if l, ok := s.deps.Registries.Bias.Get(m); ok {
		bias = string(l)
	}
	WriteJSON(w, http.StatusOK, map[string]string{"modality": string(m), "emotion": bias})
}

func (s *Server) SetBias(w http.ResponseWriter, r *http.Request) {
	var req BiasRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.applyBias(w, r, req.Modality, req.Emotion)
}

// SetBiasForModality takes the modality from the path and only the
// emotion from the body.
func (s *Server) SetBiasForModality(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Emotion string `json:"emotion"`
	}
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.applyBias(w, r, chi.URLParam(r, "modality"), req.Emotion)
}

func (s *Server) applyBias(w http.ResponseWriter, r *http.Request, modality, label string) {
	if err := s.deps.Registries.Bias.Set(modality, label); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	hlog.FromRequest(r).Info().Str("modality", modality).Str("emotion", label).Msg("emotion bias updated")
	WriteJSON(w, http.StatusOK, s.deps.Registries.Bias.All())
}

// ToggleRequest enables or disables one modality.
type ToggleRequest struct {
	Modality string `json:"modality"`
	Enabled  bool   `json:"enabled"`
}

func (s *Server) GetToggles(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, s.deps.Registries.Toggles.All())
}

func (s *Server) SetToggle(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.deps.Registries.Toggles.Set(req.Modality, req.Enabled); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	hlog.FromRequest(r).Info().Str("modality", req.Modality).Bool("enabled", req.Enabled).Msg("modality toggle updated")
	WriteJSON(w, http.StatusOK, s.deps.Registries.Toggles.All())
}

// UserIDBody is the read and write shape for /simulation/user-id.
type UserIDBody struct {
	UserID string `json:"user_id"`
}

func (s *Server) GetSyntheticUser(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, UserIDBody{UserID: s.deps.Registries.SyntheticUser.Get()})
}

func (s *Server) SetSyntheticUser(w http.ResponseWriter, r *http.Request) {
	var req UserIDBody
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.deps.Registries.SyntheticUser.Set(req.UserID); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	hlog.FromRequest(r).Info().Str("user_id", req.UserID).Msg("synthetic user updated")
	WriteJSON(w, http.StatusOK, UserIDBody{UserID: s.deps.Registries.SyntheticUser.Get()})
}

// InjectRequest bulk-inserts pre-formed signals for one modality,
// bypassing the ML path. Integration tests use it to seed the store.
type InjectRequest struct {
	Modality string                `json:"modality"`
	Signals  []emotion.ModelSignal `json:"signals"`
}

// InjectResponse reports per-item outcomes.
type InjectResponse struct {
	Inserted int      `json:"inserted"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

func (s *Server) InjectSignals(w http.ResponseWriter, r *http.Request) {
	var req InjectRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	modality, ok := emotion.ParseModality(req.Modality)
	if !ok {
		WriteError(w, http.StatusBadRequest, "modality must be one of speech, face, vitals")
		return
	}
	if len(req.Signals) == 0 {
		WriteError(w, http.StatusBadRequest, "signals must not be empty")
		return
	}

	var resp InjectResponse
	for i, sig := range req.Signals {
		if err := sig.Validate(); err != nil {
			resp.Failed++
			resp.Errors = append(resp.Errors, fmt.Sprintf("signal %d: %v", i, err))
			continue
		}
		if err := s.insertSignal(r.Context(), modality, sig); err != nil {
			resp.Failed++
			resp.Errors = append(resp.Errors, fmt.Sprintf("signal %d: store: %v", i, err))
			continue
		}
		resp.Inserted++
	}

	hlog.FromRequest(r).Info().Str("modality", string(modality)).
		Int("inserted", resp.Inserted).Int("failed", resp.Failed).Msg("signals injected")
	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) insertSignal(ctx context.Context, modality emotion.Modality, sig emotion.ModelSignal) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	t := sig.Timestamp.Time
	switch modality {
	case emotion.Face:
		return s.deps.Store.InsertFaceEmotionSynthetic(ctx, sig.UserID, t, sig.Emotion, sig.Confidence)
	case emotion.Vitals:
		return s.deps.Store.InsertVitalsEmotionSynthetic(ctx, sig.UserID, t, sig.Emotion, sig.Confidence)
	default:
		meta := analyze.DefaultAudioMeta()
		_, err := s.deps.Store.InsertVoiceEmotion(ctx, &store.VoiceEmotionRow{
			UserID:        sig.UserID,
			CapturedAt:    t,
			Emotion:       sig.Emotion,
			Confidence:    sig.Confidence,
			SampleRate:    meta.SampleRate,
			FrameSizeMS:   meta.FrameSizeMS,
			FrameStrideMS: meta.FrameStrideMS,
			DurationSec:   meta.DurationSec,
			Synthetic:     true,
		})
		return err
	}
}

// SimulationStatus feeds the simulation control dashboard.
type SimulationStatusBody struct {
	Now             clock.Time                  `json:"now"`
	DemoMode        bool                        `json:"demo_mode"`
	IntervalSeconds int                         `json:"generation_interval_seconds"`
	UserID          string                      `json:"user_id"`
	Bias            map[emotion.Modality]string `json:"bias"`
	Toggles         map[emotion.Modality]bool   `json:"toggles"`
	Generator       any                         `json:"generator"`
}

func (s *Server) SimulationStatus(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, SimulationStatusBody{
		Now:             clock.At(s.deps.Clock.Now()),
		DemoMode:        s.deps.Registries.Demo.Get(),
		IntervalSeconds: s.deps.Registries.SynthInterval.Get(),
		UserID:          s.deps.Registries.SyntheticUser.Get(),
		Bias:            s.deps.Registries.Bias.All(),
		Toggles:         s.deps.Registries.Toggles.All(),
		Generator:       s.deps.Generator.Status(),
	})
}
