package recorder

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evrgb/evfuse/internal/types"
)

func TestRecordWritesCSVRows(t *testing.T) {
	dir := t.TempDir()
	r := New(nil, nil)

	if !r.Start(Config{OutputDir: dir}) {
		t.Fatal("Start failed")
	}

	frame := types.FrameWithTimestamps{
		Frame:           types.Frame{Index: 3},
		ExposureStartUs: 100,
		ExposureEndUs:   200,
	}
	evs := []types.Event{
		{X: 1, Y: 2, Polarity: 1, TimestampUs: 150},
		{X: 5, Y: 6, Polarity: 0, TimestampUs: 180},
	}
	if !r.Record(frame, evs) {
		t.Fatal("Record failed")
	}
	r.Stop()

	framesData, err := os.ReadFile(filepath.Join(dir, "frames.csv"))
	if err != nil {
		t.Fatalf("failed to read frames file: %v", err)
	}
	frameLines := strings.Split(strings.TrimSpace(string(framesData)), "\n")
	if len(frameLines) != 2 {
		t.Fatalf("expected header plus 1 row, got %d lines", len(frameLines))
	}
	if frameLines[0] != "frame_index,exposure_start_us,exposure_end_us,event_count" {
		t.Errorf("unexpected header: %q", frameLines[0])
	}
	if frameLines[1] != "3,100,200,2" {
		t.Errorf("unexpected frame row: %q", frameLines[1])
	}

	eventsData, err := os.ReadFile(filepath.Join(dir, "events.csv"))
	if err != nil {
		t.Fatalf("failed to read events file: %v", err)
	}
	eventLines := strings.Split(strings.TrimSpace(string(eventsData)), "\n")
	if len(eventLines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(eventLines))
	}
	if eventLines[1] != "3,1,2,1,150" {
		t.Errorf("unexpected event row: %q", eventLines[1])
	}
	if eventLines[2] != "3,5,6,0,180" {
		t.Errorf("unexpected event row: %q", eventLines[2])
	}
}

func TestStartWritesMetadata(t *testing.T) {
	dir := t.TempDir()
	r := New(nil, nil)

	meta := map[string]string{"arrangement": "STEREO"}
	if !r.Start(Config{OutputDir: dir, Metadata: meta}) {
		t.Fatal("Start failed")
	}
	defer r.Stop()

	data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		t.Fatalf("metadata not written: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("metadata not valid JSON: %v", err)
	}
	if got["arrangement"] != "STEREO" {
		t.Errorf("unexpected metadata: %v", got)
	}
}

func TestRecordWhenInactive(t *testing.T) {
	r := New(nil, nil)
	if r.Record(types.FrameWithTimestamps{}, nil) {
		t.Error("Record should fail when inactive")
	}
	if r.IsActive() {
		t.Error("recorder should be inactive")
	}
}

func TestDoubleStartRejected(t *testing.T) {
	dir := t.TempDir()
	r := New(nil, nil)

	if !r.Start(Config{OutputDir: dir}) {
		t.Fatal("first Start failed")
	}
	defer r.Stop()

	if r.Start(Config{OutputDir: dir}) {
		t.Error("second Start should be rejected")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	r := New(nil, nil)

	r.Start(Config{OutputDir: dir})
	r.Stop()
	r.Stop()

	if r.IsActive() {
		t.Error("recorder should stay inactive")
	}
}
