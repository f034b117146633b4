package store

import "context"

// EnsureSchema applies the embedded schema on a fresh database. It checks
// whether the voice_emotion table exists as a proxy for whether schema.sql
// has been loaded; if present it is a no-op. The DDL itself is idempotent,
// so racing instances are harmless.
func (s *Store) EnsureSchema(ctx context.Context, schemaSQL []byte) error {
	if s.Pool == nil {
		return wrap(opSchema, ErrDisabled)
	}

	var exists bool
	err := s.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT FROM pg_tables WHERE schemaname = 'public' AND tablename = 'voice_emotion')`,
	).Scan(&exists)
	if err != nil {
		return wrap(opSchema, err)
	}

	if exists {
		s.log.Debug().Msg("schema already initialized, skipping")
		return nil
	}

	s.log.Info().Msg("fresh database detected, applying schema")
	if _, err := s.Pool.Exec(ctx, string(schemaSQL)); err != nil {
		return wrap(opSchema, err)
	}
	s.log.Info().Msg("schema applied")
	return nil
}
