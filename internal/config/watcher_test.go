package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type reloadRecorder struct {
	mu    sync.Mutex
	calls []*Config
}

func (r *reloadRecorder) callback(cfg *Config, errs []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, cfg)
}

func (r *reloadRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *reloadRecorder) last() *Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	assetsDir := t.TempDir()
	path := filepath.Join(dir, "sites.yaml")
	initial := "sites:\n  - pattern: \"/*\"\n    assetsDir: " + assetsDir + "\n"
	if err := os.WriteFile(path, []byte(initial), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	rec := &reloadRecorder{}
	w := NewWatcher(path, rec.callback, discardLogger(), WithDebounce(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)

	updated := "sites:\n  - pattern: \"/app/*\"\n    assetsDir: " + assetsDir + "\n"
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatalf("failed to update config: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if rec.count() > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if rec.count() == 0 {
		t.Fatal("watcher never fired on write")
	}
	cfg := rec.last()
	if cfg == nil || len(cfg.Sites) != 1 || cfg.Sites[0].Pattern != "/app/*" {
		t.Errorf("expected reloaded config, got %+v", cfg)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("watcher did not stop on context cancellation")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sites.yaml")
	if err := os.WriteFile(path, []byte("sites: []\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	rec := &reloadRecorder{}
	w := NewWatcher(path, rec.callback, discardLogger(), WithDebounce(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to write other file: %v", err)
	}

	time.Sleep(300 * time.Millisecond)
	if rec.count() != 0 {
		t.Errorf("watcher fired for unrelated file, %d calls", rec.count())
	}
}
