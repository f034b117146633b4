package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"disabled", ErrDisabled, ErrTransient},
		{"deadline", context.DeadlineExceeded, ErrTransient},
		{"canceled", context.Canceled, ErrTransient},
		{"connection_failure", &pgconn.PgError{Code: "08006"}, ErrTransient},
		{"too_many_connections", &pgconn.PgError{Code: "53300"}, ErrTransient},
		{"admin_shutdown", &pgconn.PgError{Code: "57P01"}, ErrTransient},
		{"serialization_failure", &pgconn.PgError{Code: "40001"}, ErrTransient},
		{"bad_uuid", &pgconn.PgError{Code: "22P02"}, ErrFatal},
		{"not_null_violation", &pgconn.PgError{Code: "23502"}, ErrFatal},
		{"undefined_table", &pgconn.PgError{Code: "42P01"}, ErrFatal},
		{"undefined_column", &pgconn.PgError{Code: "42703"}, ErrFatal},
		{"wrapped_pg_error", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505"}), ErrFatal},
		{"unknown_defaults_transient", errors.New("weird"), ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got != tt.want {
				t.Errorf("classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := &pgconn.PgError{Code: "23502", Message: "null value"}
	err := wrap(opInsertVoice, cause)

	if !errors.Is(err, ErrFatal) {
		t.Errorf("errors.Is(err, ErrFatal) = false for %v", err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Errorf("errors.As(err, *PgError) = false for %v", err)
	}
}

func TestClass(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"transient", wrap(opPing, ErrDisabled), "transient"},
		{"fatal", wrap(opInsertVoice, &pgconn.PgError{Code: "23502"}), "fatal"},
		{"foreign", errors.New("not ours"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Class(tt.err); got != tt.want {
				t.Errorf("Class(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
