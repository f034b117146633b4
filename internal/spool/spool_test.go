package spool

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestSpool(t *testing.T) *Spool {
	t.Helper()
	s, err := New(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestSaveAndRemove(t *testing.T) {
	s := newTestSpool(t)

	path, err := s.Save(strings.NewReader("audio bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("spool file unreadable: %v", err)
	}
	if string(data) != "audio bytes" {
		t.Errorf("content = %q, want %q", data, "audio bytes")
	}

	base := filepath.Base(path)
	if !strings.HasPrefix(base, filePrefix) || !strings.HasSuffix(base, fileSuffix) {
		t.Errorf("spool file %q does not match pattern", base)
	}

	s.Remove(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still exists after Remove")
	}
	// Second remove is a no-op.
	s.Remove(path)
}

func TestRemoveRefusesForeignPaths(t *testing.T) {
	s := newTestSpool(t)

	foreign := filepath.Join(s.Dir(), "keep.txt")
	if err := os.WriteFile(foreign, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	s.Remove(foreign)
	if _, err := os.Stat(foreign); err != nil {
		t.Errorf("foreign file was removed")
	}

	outside := filepath.Join(t.TempDir(), filePrefix+"x"+fileSuffix)
	if err := os.WriteFile(outside, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	s.Remove(outside)
	if _, err := os.Stat(outside); err != nil {
		t.Errorf("file outside spool dir was removed")
	}
}

func TestSweepRemovesOnlyExpiredSpoolFiles(t *testing.T) {
	s := newTestSpool(t)

	old, err := s.Save(strings.NewReader("old"))
	if err != nil {
		t.Fatal(err)
	}
	fresh, err := s.Save(strings.NewReader("fresh"))
	if err != nil {
		t.Fatal(err)
	}
	foreign := filepath.Join(s.Dir(), "other.dat")
	if err := os.WriteFile(foreign, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	stale := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(foreign, stale, stale); err != nil {
		t.Fatal(err)
	}

	sw := NewSweeper(s, time.Hour)
	if removed := sw.Sweep(); removed != 1 {
		t.Errorf("Sweep removed %d files, want 1", removed)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Errorf("expired spool file survived sweep")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh spool file was swept")
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Errorf("foreign file was swept")
	}
}

func TestSweeperStopIsIdempotent(t *testing.T) {
	s := newTestSpool(t)
	sw := NewSweeper(s, time.Hour)
	sw.Start()

	done := make(chan struct{})
	go func() {
		sw.Stop()
		sw.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
