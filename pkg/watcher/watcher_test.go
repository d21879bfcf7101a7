package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_DetectsFileChange(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "graph.json")
	writeFile(t, tmpFile, `{"nodes":[]}`)

	var changes atomic.Int32
	w, err := NewWatcher(tmpFile,
		WithDebounceDuration(30*time.Millisecond),
		WithPollInterval(20*time.Millisecond),
		WithOnChange(func() { changes.Add(1) }),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	writeFile(t, tmpFile, `{"nodes":[{"id":"a"}]}`)

	if !waitFor(t, 2*time.Second, func() bool { return changes.Load() > 0 }) {
		t.Error("expected change to be detected")
	}
}

func TestWatcher_PollingDebouncesBursts(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "graph.json")
	writeFile(t, tmpFile, "v0")

	var changes atomic.Int32
	w, err := NewWatcher(tmpFile,
		WithForcePoll(true),
		WithPollInterval(10*time.Millisecond),
		WithDebounceDuration(150*time.Millisecond),
		WithOnChange(func() { changes.Add(1) }),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if !w.IsPolling() {
		t.Fatal("expected polling mode")
	}

	// Each write grows the file so the size check fires even on coarse mtimes.
	for i := 1; i <= 4; i++ {
		writeFile(t, tmpFile, "v0"+string(make([]byte, i)))
		time.Sleep(25 * time.Millisecond)
	}

	if !waitFor(t, 2*time.Second, func() bool { return changes.Load() > 0 }) {
		t.Fatal("expected a change notification")
	}
	time.Sleep(300 * time.Millisecond)
	if got := changes.Load(); got != 1 {
		t.Errorf("expected one coalesced notification, got %d", got)
	}
}

func TestWatcher_ChangedChannel(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "graph.db")
	writeFile(t, tmpFile, "a")

	w, err := NewWatcher(tmpFile,
		WithForcePoll(true),
		WithPollInterval(10*time.Millisecond),
		WithDebounceDuration(10*time.Millisecond),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	writeFile(t, tmpFile, "abc")

	select {
	case <-w.Changed():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting on Changed channel")
	}
}

func TestWatcher_FileRemoved(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "graph.json")
	writeFile(t, tmpFile, "{}")

	var removed atomic.Bool
	w, err := NewWatcher(tmpFile,
		WithForcePoll(true),
		WithPollInterval(10*time.Millisecond),
		WithOnError(func(err error) {
			if errors.Is(err, ErrFileRemoved) {
				removed.Store(true)
			}
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Remove(tmpFile); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 2*time.Second, removed.Load) {
		t.Error("expected ErrFileRemoved")
	}
}

func TestWatcher_MissingFileIsNotAnError(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "later.json")

	var errs atomic.Int32
	var changes atomic.Int32
	w, err := NewWatcher(tmpFile,
		WithForcePoll(true),
		WithPollInterval(10*time.Millisecond),
		WithDebounceDuration(10*time.Millisecond),
		WithOnError(func(error) { errs.Add(1) }),
		WithOnChange(func() { changes.Add(1) }),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	time.Sleep(60 * time.Millisecond)
	if errs.Load() != 0 {
		t.Errorf("missing file reported %d errors", errs.Load())
	}

	writeFile(t, tmpFile, "{}")
	if !waitFor(t, 2*time.Second, func() bool { return changes.Load() > 0 }) {
		t.Error("expected creation to count as a change")
	}
}

func TestWatcher_StartStop(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "graph.json")
	writeFile(t, tmpFile, "{}")

	w, err := NewWatcher(tmpFile)
	if err != nil {
		t.Fatal(err)
	}
	if w.IsStarted() {
		t.Error("watcher should not be started yet")
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if !w.IsStarted() {
		t.Error("watcher should be started")
	}
	if err := w.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}

	w.Stop()
	if w.IsStarted() {
		t.Error("watcher should be stopped")
	}
	// Stopping twice is harmless.
	w.Stop()
}

func TestWatcher_NoNotificationAfterStop(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "graph.json")
	writeFile(t, tmpFile, "{}")

	var changes atomic.Int32
	w, err := NewWatcher(tmpFile,
		WithForcePoll(true),
		WithPollInterval(10*time.Millisecond),
		WithDebounceDuration(100*time.Millisecond),
		WithOnChange(func() { changes.Add(1) }),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}

	writeFile(t, tmpFile, "{ }")
	time.Sleep(40 * time.Millisecond)
	w.Stop()

	time.Sleep(200 * time.Millisecond)
	if got := changes.Load(); got != 0 {
		t.Errorf("got %d notifications after Stop", got)
	}
}

func TestWatcher_Path(t *testing.T) {
	w, err := NewWatcher("graph.json")
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(w.Path()) {
		t.Errorf("expected absolute path, got %q", w.Path())
	}
	if filepath.Base(w.Path()) != "graph.json" {
		t.Errorf("unexpected base name %q", filepath.Base(w.Path()))
	}
}

func TestWatcher_EnvForcePoll(t *testing.T) {
	t.Setenv("GRAPHLENS_FORCE_POLL", "yes")
	tmpFile := filepath.Join(t.TempDir(), "graph.json")
	writeFile(t, tmpFile, "{}")

	w, err := NewWatcher(tmpFile)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if !w.IsPolling() {
		t.Error("GRAPHLENS_FORCE_POLL should force polling mode")
	}
}

func TestEnvBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{" on ", true},
		{"yes", true},
		{"0", false},
		{"false", false},
		{"", false},
		{"maybe", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("GRAPHLENS_TEST_BOOL", tt.value)
			if got := envBool("GRAPHLENS_TEST_BOOL"); got != tt.want {
				t.Errorf("envBool(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
