// Package store is the thin typed client for the Postgres row store. It
// carries the per-chunk speech rows, the synthetic face/vitals rows, and
// the read-only view of the downstream consumption log.
//
// The store is optional: a Store built without a database URL stays up and
// reports every operation as a transient failure, so the ingest path keeps
// running without persistence.
package store

import (
	"context"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type Store struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

// Connect builds a pooled store client. An empty databaseURL yields a
// disabled store and no error. A URL that fails to parse is a
// configuration error and is fatal to the caller. An unreachable database
// is not: the pool connects lazily, so the store is returned and the
// failed probe is only logged.
func Connect(ctx context.Context, databaseURL string, log zerolog.Logger) (*Store, error) {
	if databaseURL == "" {
		log.Warn().Msg("no database configured, store disabled")
		return &Store{log: log}, nil
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	cfg.MaxConns = 10
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{Pool: pool, log: log}
	if err := s.HealthCheck(ctx); err != nil {
		log.Warn().Err(err).Str("url", maskDSN(databaseURL)).
			Msg("store unreachable at startup, continuing without it")
		return s, nil
	}

	log.Info().
		Str("url", maskDSN(databaseURL)).
		Int32("max_conns", cfg.MaxConns).
		Int32("min_conns", cfg.MinConns).
		Msg("store connected")

	return s, nil
}

// New wraps an existing pool. Tests use it with a pool pointed at
// TEST_DATABASE_URL, or with nil for the disabled store.
func New(pool *pgxpool.Pool, log zerolog.Logger) *Store {
	return &Store{Pool: pool, log: log}
}

// Enabled reports whether a database is configured.
func (s *Store) Enabled() bool {
	return s.Pool != nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if s.Pool == nil {
		return wrap(opPing, ErrDisabled)
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.Pool.Ping(ctx); err != nil {
		return wrap(opPing, err)
	}
	return nil
}

func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		if _, hasPass := u.User.Password(); hasPass {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
	}
	return u.String()
}

func (s *Store) Close() {
	if s.Pool == nil {
		return
	}
	s.log.Info().Msg("closing store pool")
	s.Pool.Close()
}
