package combo

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Arrangement describes how the two sensors are mounted.
type Arrangement int

const (
	ArrangementStereo Arrangement = iota
	ArrangementBeamSplitter
)

// String returns the canonical arrangement name.
func (a Arrangement) String() string {
	switch a {
	case ArrangementStereo:
		return "STEREO"
	case ArrangementBeamSplitter:
		return "BEAM_SPLITTER"
	default:
		return "UNKNOWN"
	}
}

// ArrangementFromString parses an arrangement name, defaulting to stereo.
func ArrangementFromString(value string) Arrangement {
	switch strings.ToUpper(value) {
	case "BEAM_SPLITTER", "BEAM-SPLITTER":
		return ArrangementBeamSplitter
	default:
		return ArrangementStereo
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Arrangement) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Arrangement) UnmarshalText(text []byte) error {
	*a = ArrangementFromString(string(text))
	return nil
}

// CameraMetadata is per-camera information used for persistence.
// Intrinsics are carried opaquely; calibration math lives elsewhere.
type CameraMetadata struct {
	Manufacturer string          `json:"manufacturer"`
	Model        string          `json:"model"`
	Serial       string          `json:"serial"`
	Width        int             `json:"width"`
	Height       int             `json:"height"`
	Intrinsics   json.RawMessage `json:"intrinsics,omitempty"`
}

// Metadata aggregates session metadata for saving and loading.
type Metadata struct {
	Arrangement Arrangement     `json:"arrangement"`
	RGB         CameraMetadata  `json:"rgb"`
	DVS         CameraMetadata  `json:"dvs"`
	Calibration json.RawMessage `json:"calibration,omitempty"`
}

// Metadata returns the session metadata snapshot.
func (c *Combo) Metadata() Metadata {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Metadata{
		Arrangement: c.opts.Arrangement,
		RGB:         CameraMetadata{Serial: c.opts.RGBSerial},
		DVS:         CameraMetadata{Serial: c.opts.DVSSerial, Manufacturer: "Dvsense"},
		Calibration: c.calibration,
	}
}

// ApplyMetadata adopts the arrangement and calibration from loaded
// metadata. Calibration is an opaque passthrough.
func (c *Combo) ApplyMetadata(meta Metadata) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.opts.Arrangement = meta.Arrangement
	c.calibration = meta.Calibration
}

// SaveMetadata writes the session metadata as indented JSON.
func (c *Combo) SaveMetadata(path string) error {
	payload, err := json.MarshalIndent(c.Metadata(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize metadata: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	return nil
}

// LoadMetadata reads metadata from disk and applies it.
func (c *Combo) LoadMetadata(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to open metadata file: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(payload, &meta); err != nil {
		return fmt.Errorf("failed to parse metadata file: %w", err)
	}
	c.ApplyMetadata(meta)
	return nil
}
