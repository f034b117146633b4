package config

import (
	"net"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port int    `env:"PORT" envDefault:"8000"`

	// Empty means the store is disabled: the service runs without
	// persistence and every store call reports a transient failure.
	DatabaseURL string `env:"DATABASE_URL"`

	// Seed for the synthetic-signal user registry. Must be a UUID.
	DevUserID string `env:"DEV_USER_ID" envDefault:"96975f52-5b05-4eb1-bfa5-530485112518"`

	QueueCapacity int           `env:"QUEUE_CAPACITY" envDefault:"1024"`
	SessionGap    time.Duration `env:"SESSION_GAP" envDefault:"60s"`

	AggregationIntervalSeconds int `env:"AGGREGATION_INTERVAL_SECONDS" envDefault:"300"`
	SynthIntervalSeconds       int `env:"SYNTH_INTERVAL_SECONDS" envDefault:"30"`

	SpoolDir    string        `env:"SPOOL_DIR"`
	SpoolMaxAge time.Duration `env:"SPOOL_MAX_AGE" envDefault:"60m"`

	// Empty means the stub pipeline is used instead of a remote inference
	// service.
	PipelineURL     string        `env:"PIPELINE_URL"`
	PipelineTimeout time.Duration `env:"PIPELINE_TIMEOUT" envDefault:"120s"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`

	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Addr returns the HTTP bind address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile  string
	Port     int
	LogLevel string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	// Parse environment variables into config struct
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Apply CLI overrides (non-zero values win)
	if overrides.Port != 0 {
		cfg.Port = overrides.Port
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}

	return cfg, nil
}
