package config

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type watchedConfig struct {
	Name  string `toml:"name"`
	Value int    `toml:"value"`
}

func loadWatchedConfig(path string) (watchedConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return watchedConfig{}, err
	}
	var cfg watchedConfig
	err = toml.Unmarshal(data, &cfg)
	return cfg, err
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newWatchedFile(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "watched_*.toml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatal(err)
	}
	tmpFile.Close()
	return tmpFile.Name()
}

func TestFileWatcher_BasicReload(t *testing.T) {
	path := newWatchedFile(t, "name = \"initial\"\nvalue = 1\n")

	received := make(chan watchedConfig, 1)
	watcher := NewFileWatcher(
		path,
		loadWatchedConfig,
		newTestLogger(),
		WithDebounce[watchedConfig](50*time.Millisecond),
	)

	watcher.OnReload(func(cfg watchedConfig) {
		received <- cfg
	})

	if err := watcher.Start(); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := watcher.Stop(); err != nil {
			t.Errorf("watcher.Stop failed: %v", err)
		}
	}()

	// Wait for watcher to initialize
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("name = \"updated\"\nvalue = 42\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-received:
		if cfg.Name != "updated" || cfg.Value != 42 {
			t.Errorf("got %+v, want name=updated, value=42", cfg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

func TestFileWatcher_Debounce(t *testing.T) {
	path := newWatchedFile(t, "value = 0\n")

	var count atomic.Int32
	var lastValue atomic.Int32

	watcher := NewFileWatcher(
		path,
		loadWatchedConfig,
		newTestLogger(),
		WithDebounce[watchedConfig](200*time.Millisecond),
	)

	watcher.OnReload(func(cfg watchedConfig) {
		count.Add(1)
		lastValue.Store(int32(cfg.Value))
	})

	if err := watcher.Start(); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := watcher.Stop(); err != nil {
			t.Errorf("watcher.Stop failed: %v", err)
		}
	}()

	// Rapid changes within debounce window
	time.Sleep(100 * time.Millisecond)
	for i := 1; i <= 5; i++ {
		if err := os.WriteFile(path, fmt.Appendf(nil, "value = %d\n", i), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	time.Sleep(500 * time.Millisecond)

	if got := count.Load(); got != 1 {
		t.Errorf("expected 1 debounced call, got %d", got)
	}
	if got := lastValue.Load(); got != 5 {
		t.Errorf("expected final value 5, got %d", got)
	}
}

func TestFileWatcher_ErrorHandler(t *testing.T) {
	path := newWatchedFile(t, "name = \"valid\"\nvalue = 1\n")

	errorReceived := make(chan error, 1)
	configReceived := make(chan watchedConfig, 1)

	watcher := NewFileWatcher(
		path,
		loadWatchedConfig,
		newTestLogger(),
		WithDebounce[watchedConfig](50*time.Millisecond),
		WithErrorHandler[watchedConfig](func(err error) {
			errorReceived <- err
		}),
	)

	watcher.OnReload(func(cfg watchedConfig) {
		configReceived <- cfg
	})

	if err := watcher.Start(); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := watcher.Stop(); err != nil {
			t.Errorf("watcher.Stop failed: %v", err)
		}
	}()

	// Write invalid TOML
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("invalid toml [[["), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-errorReceived:
		// Expected
	case <-configReceived:
		t.Fatal("handler should not be called on error")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error handler")
	}
}

func TestFileWatcher_Unsubscribe(t *testing.T) {
	path := newWatchedFile(t, "value = 1\n")

	var count1, count2 atomic.Int32
	watcher := NewFileWatcher(
		path,
		loadWatchedConfig,
		newTestLogger(),
		WithDebounce[watchedConfig](50*time.Millisecond),
	)

	watcher.OnReload(func(_ watchedConfig) {
		count1.Add(1)
	})
	unsub2 := watcher.OnReload(func(_ watchedConfig) {
		count2.Add(1)
	})

	if err := watcher.Start(); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := watcher.Stop(); err != nil {
			t.Errorf("watcher.Stop failed: %v", err)
		}
	}()

	// First change - both handlers called
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("value = 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	unsub2()

	// Second change - only first handler called
	if err := os.WriteFile(path, []byte("value = 20\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	if got := count1.Load(); got != 2 {
		t.Errorf("handler1: expected 2 calls, got %d", got)
	}
	if got := count2.Load(); got != 1 {
		t.Errorf("handler2: expected 1 call, got %d", got)
	}
}

func TestFileWatcher_Stop(t *testing.T) {
	path := newWatchedFile(t, "value = 1\n")

	var count atomic.Int32
	watcher := NewFileWatcher(
		path,
		loadWatchedConfig,
		newTestLogger(),
		WithDebounce[watchedConfig](50*time.Millisecond),
	)

	watcher.OnReload(func(_ watchedConfig) {
		count.Add(1)
	})

	if err := watcher.Start(); err != nil {
		t.Fatal(err)
	}

	time.Sleep(100 * time.Millisecond)
	if err := watcher.Stop(); err != nil {
		t.Fatal(err)
	}

	// Changes after stop should not trigger handler
	if err := os.WriteFile(path, []byte("value = 99\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("expected 0 calls after stop, got %d", got)
	}
}
