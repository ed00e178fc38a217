package library

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func awaitIntervention(t *testing.T, w *Watcher, want Intervention) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-w.Interventions:
			if got == want {
				return
			}
			// Duplicate create/write events for the same file are fine.
		case <-deadline:
			t.Fatalf("timed out waiting for intervention %v", want)
		}
	}
}

func TestWatcherControlFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatalf("NewWatcher() error: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer w.Stop()

	pause := filepath.Join(dir, "PAUSE")
	if err := os.WriteFile(pause, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	awaitIntervention(t, w, InterventionPause)

	if err := os.Remove(pause); err != nil {
		t.Fatal(err)
	}
	awaitIntervention(t, w, InterventionResume)

	if err := os.WriteFile(filepath.Join(dir, "STOP"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	awaitIntervention(t, w, InterventionStop)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "random.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-w.Interventions:
		t.Fatalf("unexpected intervention %v for unrelated file", got)
	case <-time.After(200 * time.Millisecond):
	}
}
