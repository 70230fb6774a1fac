package trigger_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rsappia/tvargenta/internal/trigger"
)

func touch(t *testing.T, path string, at time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte("1"), 0o644); err != nil {
		t.Fatalf("write trigger file: %v", err)
	}
	if err := os.Chtimes(path, at, at); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func TestConsumeIsFalseBeforeAnyChange(t *testing.T) {
	dir := t.TempDir()
	w := trigger.New(dir, "force_next")
	w.Poll()
	if w.Consume() {
		t.Error("expected no pending edge for a nonexistent trigger file")
	}
}

func TestConsumeIsOneShot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "force_next")
	touch(t, path, time.Now())

	w := trigger.New(dir, "force_next")
	w.Poll()
	if !w.Consume() {
		t.Fatal("expected a pending edge after the first poll")
	}
	if w.Consume() {
		t.Error("expected the edge to be consumed exactly once")
	}
}

func TestMultipleTouchesBetweenPollsStillOneEdge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "force_next")
	base := time.Now()
	touch(t, path, base)
	touch(t, path, base.Add(time.Second))
	touch(t, path, base.Add(2*time.Second))

	w := trigger.New(dir, "force_next")
	w.Poll()
	if !w.Consume() {
		t.Fatal("expected one pending edge")
	}
	if w.Consume() {
		t.Error("expected no second edge")
	}
}
