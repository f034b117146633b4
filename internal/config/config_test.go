package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	cleanup := setEnvs(t, map[string]string{
		"DATABASE_URL": "postgres://localhost/test",
		"SPOOL_DIR":    "/tmp/spool",
	})
	defer cleanup()

	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Host != "0.0.0.0" {
			t.Errorf("Host = %q, want 0.0.0.0", cfg.Host)
		}
		if cfg.Port != 8000 {
			t.Errorf("Port = %d, want 8000", cfg.Port)
		}
		if cfg.LogLevel != "info" {
			t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
		}
		if cfg.QueueCapacity != 1024 {
			t.Errorf("QueueCapacity = %d, want 1024", cfg.QueueCapacity)
		}
		if cfg.SessionGap != 60*time.Second {
			t.Errorf("SessionGap = %v, want 60s", cfg.SessionGap)
		}
		if cfg.AggregationIntervalSeconds != 300 {
			t.Errorf("AggregationIntervalSeconds = %d, want 300", cfg.AggregationIntervalSeconds)
		}
		if cfg.SynthIntervalSeconds != 30 {
			t.Errorf("SynthIntervalSeconds = %d, want 30", cfg.SynthIntervalSeconds)
		}
		if cfg.SpoolMaxAge != 60*time.Minute {
			t.Errorf("SpoolMaxAge = %v, want 60m", cfg.SpoolMaxAge)
		}
		if cfg.PipelineTimeout != 120*time.Second {
			t.Errorf("PipelineTimeout = %v, want 120s", cfg.PipelineTimeout)
		}
		if cfg.DevUserID == "" {
			t.Error("DevUserID is empty, want a default UUID")
		}
	})

	t.Run("cli_overrides_take_priority", func(t *testing.T) {
		cfg, err := Load(Overrides{
			EnvFile:  "nonexistent.env",
			Port:     9090,
			LogLevel: "debug",
		})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Port != 9090 {
			t.Errorf("Port = %d, want 9090", cfg.Port)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
		}
	})

	t.Run("env_vars_read", func(t *testing.T) {
		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.DatabaseURL != "postgres://localhost/test" {
			t.Errorf("DatabaseURL = %q, want postgres://localhost/test", cfg.DatabaseURL)
		}
		if cfg.SpoolDir != "/tmp/spool" {
			t.Errorf("SpoolDir = %q, want /tmp/spool", cfg.SpoolDir)
		}
	})

	t.Run("empty_overrides_use_env", func(t *testing.T) {
		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		// Zero override fields should not overwrite env values
		if cfg.Port != 8000 {
			t.Errorf("Port = %d, want 8000", cfg.Port)
		}
	})
}

func TestLoadWithoutStore(t *testing.T) {
	cleanup := setEnvs(t, map[string]string{"DATABASE_URL": ""})
	defer cleanup()
	os.Unsetenv("DATABASE_URL")

	// The store is optional: no DATABASE_URL is a valid configuration.
	cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}
}

func TestAddr(t *testing.T) {
	cfg := &Config{Host: "127.0.0.1", Port: 8000}
	if got := cfg.Addr(); got != "127.0.0.1:8000" {
		t.Errorf("Addr() = %q, want 127.0.0.1:8000", got)
	}
}

// setEnvs sets environment variables and returns a cleanup function.
func setEnvs(t *testing.T, envs map[string]string) func() {
	t.Helper()
	originals := make(map[string]string)
	unset := make([]string, 0)

	for k, v := range envs {
		if orig, ok := os.LookupEnv(k); ok {
			originals[k] = orig
		} else {
			unset = append(unset, k)
		}
		os.Setenv(k, v)
	}

	return func() {
		for k, v := range originals {
			os.Setenv(k, v)
		}
		for _, k := range unset {
			os.Unsetenv(k)
		}
	}
}
