// Package spool owns the temporary audio files between upload and
// processing. A spool file has exactly one owner at a time: the HTTP
// handler until enqueue succeeds, the worker thereafter. Whoever owns it
// when processing ends removes it.
package spool

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

const (
	filePrefix = "chunk-"
	fileSuffix = ".wav"
)

type Spool struct {
	dir string
	log zerolog.Logger
}

// New prepares the spool directory. An empty dir falls back to the OS
// temp directory.
func New(dir string, log zerolog.Logger) (*Spool, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir %s: %w", dir, err)
	}
	return &Spool{dir: dir, log: log.With().Str("component", "spool").Logger()}, nil
}

// Dir returns the spool directory path.
func (s *Spool) Dir() string { return s.dir }

// Save streams src into a fresh spool file and returns its path. The
// caller owns the file from here.
func (s *Spool) Save(src io.Reader) (string, error) {
	f, err := os.CreateTemp(s.dir, filePrefix+"*"+fileSuffix)
	if err != nil {
		return "", fmt.Errorf("create spool file: %w", err)
	}
	path := f.Name()

	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write spool file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close spool file: %w", err)
	}
	return path, nil
}

// Remove unlinks a spool file. It is idempotent: an already-removed file
// is not an error. Paths outside the spool directory are refused.
func (s *Spool) Remove(path string) {
	if !s.owns(path) {
		s.log.Warn().Str("path", path).Msg("refusing to remove file outside spool")
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.Warn().Err(err).Str("path", path).Msg("spool file remove failed")
	}
}

// owns reports whether path names a file this spool created.
func (s *Spool) owns(path string) bool {
	dir, base := filepath.Split(path)
	if filepath.Clean(dir) != filepath.Clean(s.dir) {
		return false
	}
	return strings.HasPrefix(base, filePrefix) && strings.HasSuffix(base, fileSuffix)
}
