// Package recorder persists synchronized samples to a session directory:
// a frame-timestamp CSV, an event CSV and a JSON metadata file. It is the
// Recorder collaborator the dispatch worker hands samples to; all writes
// happen on the dispatch thread.
package recorder

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/evrgb/evfuse/internal/events"
	"github.com/evrgb/evfuse/internal/types"
)

const (
	framesFileName   = "frames.csv"
	eventsFileName   = "events.csv"
	metadataFileName = "metadata.json"
)

// Config describes one recording session.
type Config struct {
	// OutputDir is created if missing; existing files are truncated.
	OutputDir string
	// Metadata is serialized to metadata.json when non-nil.
	Metadata any
}

// Recorder implements types.Recorder over CSV files.
type Recorder struct {
	mu         sync.Mutex
	cfg        Config
	active     bool
	framesFile *os.File
	framesW    *bufio.Writer
	eventsFile *os.File
	eventsW    *bufio.Writer
	frameCount uint64
	eventCount uint64

	logger *slog.Logger
	bus    *events.Bus
}

// New creates an inactive recorder.
func New(logger *slog.Logger, bus *events.Bus) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{logger: logger, bus: bus}
}

// Start opens the session files. It returns false when the recorder is
// already active or the directory cannot be prepared.
func (r *Recorder) Start(cfg Config) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active {
		r.logger.Warn("Recorder already active", "output_dir", r.cfg.OutputDir)
		return false
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		r.logger.Error("Failed to create recording directory", "dir", cfg.OutputDir, "error", err)
		return false
	}

	framesFile, err := os.Create(filepath.Join(cfg.OutputDir, framesFileName))
	if err != nil {
		r.logger.Error("Failed to create frames file", "error", err)
		return false
	}
	eventsFile, err := os.Create(filepath.Join(cfg.OutputDir, eventsFileName))
	if err != nil {
		r.logger.Error("Failed to create events file", "error", err)
		framesFile.Close()
		return false
	}

	r.cfg = cfg
	r.framesFile = framesFile
	r.framesW = bufio.NewWriter(framesFile)
	r.eventsFile = eventsFile
	r.eventsW = bufio.NewWriter(eventsFile)
	r.frameCount = 0
	r.eventCount = 0

	fmt.Fprintln(r.framesW, "frame_index,exposure_start_us,exposure_end_us,event_count")
	fmt.Fprintln(r.eventsW, "frame_index,x,y,polarity,timestamp_us")

	if cfg.Metadata != nil {
		if err := r.writeMetadata(cfg.Metadata); err != nil {
			r.logger.Warn("Failed to write metadata", "error", err)
		}
	}

	r.active = true
	r.logger.Info("Recording started", "output_dir", cfg.OutputDir)
	r.publishState(true, cfg.OutputDir)
	return true
}

// Record appends one synchronized sample. Called synchronously from the
// dispatch worker.
func (r *Recorder) Record(frame types.FrameWithTimestamps, evs []types.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return false
	}

	fmt.Fprintf(r.framesW, "%d,%d,%d,%d\n",
		frame.Index, frame.ExposureStartUs, frame.ExposureEndUs, len(evs))
	for _, e := range evs {
		fmt.Fprintf(r.eventsW, "%d,%d,%d,%d,%d\n",
			frame.Index, e.X, e.Y, e.Polarity, e.TimestampUs)
	}

	r.frameCount++
	r.eventCount += uint64(len(evs))
	return true
}

// IsActive reports whether a session is open.
func (r *Recorder) IsActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Stop flushes and closes the session files. Safe to call when inactive.
func (r *Recorder) Stop() {
	r.mu.Lock()

	if !r.active {
		r.mu.Unlock()
		return
	}
	r.active = false

	r.framesW.Flush()
	r.framesFile.Close()
	r.eventsW.Flush()
	r.eventsFile.Close()
	r.framesW, r.framesFile = nil, nil
	r.eventsW, r.eventsFile = nil, nil

	outputDir := r.cfg.OutputDir
	frames, evs := r.frameCount, r.eventCount
	r.mu.Unlock()

	r.logger.Info("Recording stopped", "output_dir", outputDir,
		"frames", frames, "events", evs)
	r.publishState(false, outputDir)
}

// FramesPath returns the frame CSV path for the current config.
func (r *Recorder) FramesPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return filepath.Join(r.cfg.OutputDir, framesFileName)
}

// EventsPath returns the event CSV path for the current config.
func (r *Recorder) EventsPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return filepath.Join(r.cfg.OutputDir, eventsFileName)
}

// MetadataPath returns the metadata JSON path for the current config.
func (r *Recorder) MetadataPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return filepath.Join(r.cfg.OutputDir, metadataFileName)
}

func (r *Recorder) writeMetadata(meta any) error {
	payload, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize metadata: %w", err)
	}
	path := filepath.Join(r.cfg.OutputDir, metadataFileName)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	return nil
}

func (r *Recorder) publishState(active bool, outputDir string) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(events.RecordingStateChangedEvent{
		Active:    active,
		OutputDir: outputDir,
		Timestamp: time.Now().Format(time.RFC3339Nano),
	})
}
