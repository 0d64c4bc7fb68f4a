package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Tuning holds the runtime-adjustable pipeline settings. These live in
// their own TOML section so they can be hot-reloaded through the config
// watcher without restarting the capture pipeline.
type Tuning struct {
	FrameQueueSize    int `toml:"frame_queue_size" json:"frame_queue_size"`
	TriggerBufferSize int `toml:"trigger_buffer_size" json:"trigger_buffer_size"`
	DispatchQueueSize int `toml:"dispatch_queue_size" json:"dispatch_queue_size"`
}

// TuningFile is the on-disk layout of the tuning config file.
type TuningFile struct {
	Version int    `toml:"version" json:"version"`
	Fuse    Tuning `toml:"fuse" json:"fuse"`
}

// DefaultTuning returns the tuning values used when no config file exists.
func DefaultTuning() Tuning {
	return Tuning{
		FrameQueueSize:    10,
		TriggerBufferSize: 100,
		DispatchQueueSize: 16,
	}
}

// LoadTuning reads tuning settings from the given TOML file. A missing
// file yields defaults; a malformed file is an error.
func LoadTuning(path string) (Tuning, error) {
	tuning := DefaultTuning()

	if path == "" {
		return tuning, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return tuning, nil
		}
		return tuning, fmt.Errorf("failed to read tuning config: %w", err)
	}

	var file TuningFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return tuning, fmt.Errorf("failed to parse tuning config: %w", err)
	}

	if file.Fuse.FrameQueueSize > 0 {
		tuning.FrameQueueSize = file.Fuse.FrameQueueSize
	}
	if file.Fuse.TriggerBufferSize > 0 {
		tuning.TriggerBufferSize = file.Fuse.TriggerBufferSize
	}
	if file.Fuse.DispatchQueueSize > 0 {
		tuning.DispatchQueueSize = file.Fuse.DispatchQueueSize
	}

	return tuning, nil
}

// SaveTuning writes tuning settings to the given TOML file, creating
// parent directories as needed.
func SaveTuning(path string, tuning Tuning) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file := TuningFile{
		Version: 1,
		Fuse:    tuning,
	}
	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to marshal tuning config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write tuning config: %w", err)
	}

	return nil
}
