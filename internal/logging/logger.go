// Package logging sets up the process-wide slog configuration: per-module
// loggers with runtime-adjustable levels, a ring buffer of recent entries
// for the status API, and fan-out to stdout and the systemd journal when
// available.
package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

const defaultBufferSize = 1000

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

var (
	mu              sync.RWMutex
	globalConfig    Config
	isInitialized   bool
	moduleLoggers   = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	globalLevelVar  = &slog.LevelVar{}
	logBuffer       *RingBuffer
	logCallback     LogCallback
)

// Initialize sets up the logging system. Loggers created before
// Initialize are recreated so they pick up the buffer handler and
// configured levels.
func Initialize(config Config) {
	mu.Lock()
	defer mu.Unlock()

	globalConfig = config
	isInitialized = true
	logBuffer = NewRingBuffer(defaultBufferSize)

	globalLevel := parseLevel(config.Level, slog.LevelInfo)
	globalLevelVar.Set(globalLevel)

	for module, levelVar := range moduleLevelVars {
		levelVar.Set(moduleLevel(config, module, globalLevel))
		moduleLoggers[module] = slog.New(createHandler(config.Format, levelVar)).With("module", module)
	}

	slog.SetDefault(slog.New(createHandler(config.Format, globalLevelVar)))
}

// GetLogger returns a logger for the given module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	mu.RLock()
	if logger, exists := moduleLoggers[module]; exists {
		mu.RUnlock()
		return logger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	if logger, exists := moduleLoggers[module]; exists {
		return logger
	}

	levelVar := &slog.LevelVar{}
	format := "text"
	if isInitialized {
		format = globalConfig.Format
		levelVar.Set(moduleLevel(globalConfig, module, parseLevel(globalConfig.Level, slog.LevelInfo)))
	} else {
		levelVar.Set(slog.LevelInfo)
	}

	logger := slog.New(createHandler(format, levelVar)).With("module", module)
	moduleLoggers[module] = logger
	moduleLevelVars[module] = levelVar
	return logger
}

// SetModuleLevel changes a module's level at runtime.
func SetModuleLevel(module, level string) {
	mu.RLock()
	levelVar, exists := moduleLevelVars[module]
	mu.RUnlock()
	if exists {
		levelVar.Set(parseLevel(level, slog.LevelInfo))
	}
}

// GetBuffer returns the ring buffer of recent log entries.
func GetBuffer() *RingBuffer {
	mu.RLock()
	defer mu.RUnlock()
	return logBuffer
}

// SetLogCallback registers a callback invoked for each new entry. Used to
// publish log events to SSE clients.
func SetLogCallback(callback LogCallback) {
	mu.Lock()
	defer mu.Unlock()
	logCallback = callback
}

// createHandler builds the handler chain for the given format and level:
// stdout, journal when available, and the ring buffer.
func createHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var stdoutHandler slog.Handler
	if format == "json" {
		stdoutHandler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		stdoutHandler = slog.NewTextHandler(os.Stdout, opts)
	}

	handlers := []slog.Handler{stdoutHandler}
	if IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}
	handlers = append(handlers, NewBufferHandler(currentBuffer(), level, forwardToCallback))

	if len(handlers) == 1 {
		return handlers[0]
	}
	return NewMultiHandler(handlers...)
}

// currentBuffer returns the active ring buffer, creating one lazily for
// loggers requested before Initialize.
func currentBuffer() *RingBuffer {
	if logBuffer == nil {
		logBuffer = NewRingBuffer(defaultBufferSize)
	}
	return logBuffer
}

func forwardToCallback(entry LogEntry) {
	mu.RLock()
	cb := logCallback
	mu.RUnlock()
	if cb != nil {
		cb(entry)
	}
}

func moduleLevel(config Config, module string, fallback slog.Level) slog.Level {
	if levelStr, exists := config.Modules[module]; exists {
		return parseLevel(levelStr, fallback)
	}
	return fallback
}

func parseLevel(level string, fallback slog.Level) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}
