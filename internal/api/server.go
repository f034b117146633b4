package api

import (
	"context"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/eefei22/well-bot-EmotionRecognition/internal/aggregate"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/clock"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/config"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/control"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/emotion"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/ingest"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/metrics"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/resultlog"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/session"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/spool"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/store"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/synth"
)

// Store is the slice of the store client the HTTP edge uses: health
// probe, signal injection, and the dashboard's store-backed reads.
type Store interface {
	Enabled() bool
	HealthCheck(ctx context.Context) error
	InsertVoiceEmotion(ctx context.Context, row *store.VoiceEmotionRow) (int64, error)
	InsertFaceEmotionSynthetic(ctx context.Context, userID string, t time.Time, label emotion.Label, confidence float64) error
	InsertVitalsEmotionSynthetic(ctx context.Context, userID string, t time.Time, label emotion.Label, confidence float64) error
	QueryVoiceEmotionSignals(ctx context.Context, userID string, start, end time.Time, includeSynthetic bool) ([]emotion.ModelSignal, error)
	LastDownstreamConsumption(ctx context.Context, userID string) (time.Time, bool)
}

// Deps wires the live components into the handlers.
type Deps struct {
	Queue      *ingest.Queue
	Worker     *ingest.Worker
	Processing *ingest.Processing
	Spool      *spool.Spool
	Tracker    *session.Tracker
	Results    *resultlog.Log
	Registries *control.Registries
	Aggregator *aggregate.Aggregator
	Generator  *synth.Generator
	Store      Store
	Clock      clock.Clock
	Web        fs.FS
	Version    string
}

type Server struct {
	http     *http.Server
	deps     Deps
	requests *RequestLog
	log      zerolog.Logger
}

func NewServer(cfg *config.Config, deps Deps, log zerolog.Logger) *Server {
	s := &Server{
		deps:     deps,
		requests: NewRequestLog(),
		log:      log,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(Recoverer)
	r.Use(Logger(log))
	r.Use(metrics.InstrumentHandler)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/", s.Root)
	r.Get("/health", s.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/ser", func(r chi.Router) {
		r.Post("/analyze-speech", s.AnalyzeSpeech)
		r.Get("/status", s.Status)
		r.Get("/dashboard", s.page("ser_dashboard.html"))
		r.Get("/api/dashboard/status", s.DashboardStatus)
		r.Get("/api/aggregation-interval", s.GetAggregationInterval)
		r.Post("/api/aggregation-interval", s.SetAggregationInterval)
	})

	r.Route("/simulation", func(r chi.Router) {
		r.Get("/demo-mode", s.GetDemoMode)
		r.Post("/demo-mode", s.SetDemoMode)
		r.Get("/emotion-bias", s.GetAllBias)
		r.Post("/emotion-bias", s.SetBias)
		r.Get("/emotion-bias/{modality}", s.GetBias)
		r.Post("/emotion-bias/{modality}", s.SetBiasForModality)
		r.Get("/generation-interval", s.GetGenerationInterval)
		r.Post("/generation-interval", s.SetGenerationInterval)
		r.Get("/modality-toggle", s.GetToggles)
		r.Post("/modality-toggle", s.SetToggle)
		r.Get("/user-id", s.GetSyntheticUser)
		r.Post("/user-id", s.SetSyntheticUser)
		r.Post("/inject-signals", s.InjectSignals)
		r.Get("/dashboard", s.page("simulation_dashboard.html"))
		r.Get("/dashboard/status", s.SimulationStatus)
	})

	s.http = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Handler exposes the router for httptest.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Start binds and serves. A bind failure is returned immediately so main
// can exit non-zero; ErrServerClosed after Shutdown is not an error.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	s.log.Info().Str("addr", s.http.Addr).Msg("http server listening")
	if err := s.http.Serve(ln); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}

// Root serves a small service banner with an endpoint index.
func (s *Server) Root(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"service": "well-bot-emotion-recognition",
		"version": s.deps.Version,
		"endpoints": []string{
			"POST /ser/analyze-speech",
			"GET /ser/status",
			"GET /ser/dashboard",
			"GET|POST /ser/api/aggregation-interval",
			"GET|POST /simulation/demo-mode",
			"GET|POST /simulation/emotion-bias",
			"GET|POST /simulation/generation-interval",
			"GET|POST /simulation/modality-toggle",
			"GET|POST /simulation/user-id",
			"POST /simulation/inject-signals",
			"GET /simulation/dashboard",
			"GET /health",
			"GET /metrics",
		},
	})
}

// page serves one embedded dashboard file.
func (s *Server) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := fs.ReadFile(s.deps.Web, name)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "dashboard page unavailable")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(data)
	}
}
