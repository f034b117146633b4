package main

import (
	"context"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	serengine "github.com/eefei22/well-bot-EmotionRecognition"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/aggregate"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/analyze"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/api"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/clock"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/config"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/control"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/ingest"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/metrics"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/resultlog"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/session"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/spool"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/store"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/synth"
)

var version = "dev"

func main() {
	port := flag.Int("port", 0, "listen port (overrides PORT)")
	logLevel := flag.String("log-level", "", "log level (overrides LOG_LEVEL)")
	envFile := flag.String("env-file", "", "path to .env file")
	flag.Parse()

	cfg, err := config.Load(config.Overrides{
		EnvFile:  *envFile,
		Port:     *port,
		LogLevel: *logLevel,
	})
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	if cfg.LogFormat == "console" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	log.Info().Str("version", version).Str("addr", cfg.Addr()).Msg("ser-engine starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store. An unreachable database is tolerated; a malformed URL is not.
	st, err := store.Connect(ctx, cfg.DatabaseURL, log.With().Str("component", "store").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("invalid database configuration")
	}
	if st.Enabled() {
		if err := st.EnsureSchema(ctx, serengine.SchemaSQL); err != nil {
			log.Warn().Err(err).Msg("schema check failed, continuing")
		}
	}

	// Control plane. A bad seed is a configuration error.
	reg, err := control.New(cfg.DevUserID, cfg.AggregationIntervalSeconds, cfg.SynthIntervalSeconds)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid control-plane configuration")
	}

	sp, err := spool.New(cfg.SpoolDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare spool directory")
	}
	sweeper := spool.NewSweeper(sp, cfg.SpoolMaxAge)
	sweeper.Start()

	clk := clock.System()
	queue := ingest.NewQueue(cfg.QueueCapacity)
	tracker := session.NewTracker(cfg.SessionGap, log)
	results := resultlog.New(0, 0)
	processing := &ingest.Processing{}

	var pipeline analyze.Pipeline
	if cfg.PipelineURL != "" {
		pipeline = analyze.NewRemote(cfg.PipelineURL, cfg.PipelineTimeout)
		log.Info().Str("url", cfg.PipelineURL).Msg("using remote inference pipeline")
	} else {
		pipeline = analyze.NewStub()
		log.Warn().Msg("no PIPELINE_URL configured, using stub pipeline")
	}

	worker := ingest.NewWorker(ingest.WorkerOptions{
		Queue:      queue,
		Pipeline:   pipeline,
		Store:      st,
		Tracker:    tracker,
		Results:    results,
		Processing: processing,
		Spool:      sp,
		Log:        log,
	})
	worker.Start()

	aggregator := aggregate.New(tracker, results, reg.AggregationInterval, clk, log)
	generator := synth.New(reg, st, clk, nil, log)

	taskCtx, stopTasks := context.WithCancel(context.Background())
	defer stopTasks()
	aggDone := make(chan struct{})
	genDone := make(chan struct{})
	go func() { defer close(aggDone); aggregator.Run(taskCtx) }()
	go func() { defer close(genDone); generator.Run(taskCtx) }()

	prometheus.MustRegister(metrics.NewCollector(st.Pool, func() metrics.Snapshot {
		stats := tracker.Stats()
		chunks, aggregates := results.Sizes()
		return metrics.Snapshot{
			QueueDepth:       queue.Len(),
			QueueCapacity:    queue.Cap(),
			TrackedUsers:     stats.Users,
			TrackedSessions:  stats.Sessions,
			TrackedResults:   stats.Results,
			ChunkRecords:     chunks,
			AggregateRecords: aggregates,
		}
	}))

	web, err := fs.Sub(serengine.WebFiles, "web")
	if err != nil {
		log.Fatal().Err(err).Msg("embedded web assets missing")
	}

	srv := api.NewServer(cfg, api.Deps{
		Queue:      queue,
		Worker:     worker,
		Processing: processing,
		Spool:      sp,
		Tracker:    tracker,
		Results:    results,
		Registries: reg,
		Aggregator: aggregator,
		Generator:  generator,
		Store:      st,
		Clock:      clk,
		Web:        web,
		Version:    version,
	}, log.With().Str("component", "http").Logger())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
			exitCode = 1
		}
	}

	// Shutdown in reverse order of startup: stop accepting requests, drain
	// the worker, stop the periodic tasks, then release the store.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	workerCtx, cancelWorker := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	worker.Stop(workerCtx)
	cancelWorker()

	stopTasks()
	for _, done := range []chan struct{}{aggDone, genDone} {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			log.Error().Msg("periodic task did not finish cleanly")
		}
	}

	sweeper.Stop()
	st.Close()

	log.Info().Msg("ser-engine stopped")
	os.Exit(exitCode)
}
