package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/coreos/go-systemd/v22/journal"
)

// historySize bounds the controller's own log history, independent of the
// per-process output buffers.
const historySize = 1000

// Logger is the subset of *slog.Logger the rest of the code depends on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config selects the level, output format, and per-module level overrides
// for the controller's named subsystems (api, process, projects, config).
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

// registry owns every module logger, their runtime-adjustable levels, and
// the shared log history.
type registry struct {
	mu       sync.RWMutex
	cfg      Config
	ready    bool
	base     slog.LevelVar
	loggers  map[string]*slog.Logger
	levels   map[string]*slog.LevelVar
	history  *RingBuffer
	callback LogCallback
}

var reg = &registry{
	loggers: make(map[string]*slog.Logger),
	levels:  make(map[string]*slog.LevelVar),
}

// Initialize applies the logging configuration and creates the history
// ring. Loggers handed out earlier keep working: their LevelVars are
// updated and their handlers rebuilt to include the history sink.
func Initialize(cfg Config) {
	reg.configure(cfg)
}

// GetLogger returns the logger for a module, creating it on first use.
func GetLogger(module string) *slog.Logger {
	return reg.logger(module)
}

// GetBuffer returns the controller log history, nil before Initialize.
func GetBuffer() *RingBuffer {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.history
}

// SetLogCallback registers a callback invoked for each new entry, used to
// publish log events without an import cycle on the event bus.
func SetLogCallback(callback LogCallback) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.callback = callback
}

// bufferSink exposes the history and callback to the buffer handler.
func bufferSink() (*RingBuffer, LogCallback) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.history, reg.callback
}

func (r *registry) configure(cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cfg = cfg
	r.ready = true
	r.history = NewRingBuffer(historySize)

	base, ok := parseLevel(cfg.Level)
	if !ok {
		base = slog.LevelInfo
	}
	r.base.Set(base)

	for module, levelVar := range r.levels {
		levelVar.Set(r.moduleLevelLocked(module, base))
		r.loggers[module] = slog.New(buildHandler(cfg.Format, levelVar)).With("module", module)
	}

	slog.SetDefault(slog.New(buildHandler(cfg.Format, &r.base)))
}

// moduleLevelLocked resolves a module's level, falling back to base when
// the config has no override for it. Callers must hold mu.
func (r *registry) moduleLevelLocked(module string, base slog.Level) slog.Level {
	if raw, ok := r.cfg.Modules[module]; ok {
		if level, ok := parseLevel(raw); ok {
			return level
		}
	}
	return base
}

func (r *registry) logger(module string) *slog.Logger {
	r.mu.RLock()
	logger, ok := r.loggers[module]
	r.mu.RUnlock()
	if ok {
		return logger
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if logger, ok := r.loggers[module]; ok {
		return logger
	}

	base := slog.LevelInfo
	format := "text"
	if r.ready {
		if level, ok := parseLevel(r.cfg.Level); ok {
			base = level
		}
		format = r.cfg.Format
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(r.moduleLevelLocked(module, base))

	logger = slog.New(buildHandler(format, levelVar)).With("module", module)
	r.loggers[module] = logger
	r.levels[module] = levelVar
	return logger
}

// buildHandler chains the stdout handler with the journal and history
// sinks. Stdout is skipped when it is not usable, as under a systemd unit
// with output routed to the journal.
func buildHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var sinks []slog.Handler
	if stdoutUsable() {
		if format == "json" {
			sinks = append(sinks, slog.NewJSONHandler(os.Stdout, opts))
		} else {
			sinks = append(sinks, slog.NewTextHandler(os.Stdout, opts))
		}
	}
	if journal.Enabled() {
		sinks = append(sinks, NewJournalHandler(level))
	}
	sinks = append(sinks, NewBufferHandler(level))

	if len(sinks) == 1 {
		return sinks[0]
	}
	return NewMultiHandler(sinks...)
}

// stdoutUsable reports whether stdout points somewhere worth writing:
// a terminal, pipe, socket, or regular file, but not /dev/null.
func stdoutUsable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode.IsRegular() || mode&(os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0
}

// parseLevel maps a config level string to a slog level.
func parseLevel(raw string) (slog.Level, bool) {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return 0, false
}
