package combo

import (
	"encoding/json"
	"path/filepath"
	"testing"
)

func TestArrangementText(t *testing.T) {
	cases := []struct {
		in   string
		want Arrangement
	}{
		{"STEREO", ArrangementStereo},
		{"stereo", ArrangementStereo},
		{"BEAM_SPLITTER", ArrangementBeamSplitter},
		{"beam-splitter", ArrangementBeamSplitter},
		{"garbage", ArrangementStereo},
	}
	for _, tc := range cases {
		if got := ArrangementFromString(tc.in); got != tc.want {
			t.Errorf("ArrangementFromString(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if ArrangementBeamSplitter.String() != "BEAM_SPLITTER" {
		t.Errorf("unexpected name: %s", ArrangementBeamSplitter)
	}

	var a Arrangement
	if err := json.Unmarshal([]byte(`"BEAM_SPLITTER"`), &a); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if a != ArrangementBeamSplitter {
		t.Errorf("unmarshal produced %v", a)
	}
}

func TestMetadataRoundtrip(t *testing.T) {
	src := New(Options{
		RGBSerial:   "rgb-42",
		DVSSerial:   "dvs-42",
		Arrangement: ArrangementBeamSplitter,
	})
	src.ApplyMetadata(Metadata{
		Arrangement: ArrangementBeamSplitter,
		Calibration: json.RawMessage(`{"baseline_mm":0}`),
	})

	path := filepath.Join(t.TempDir(), "metadata.json")
	if err := src.SaveMetadata(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	dst := New(Options{RGBSerial: "other", DVSSerial: "other"})
	if err := dst.LoadMetadata(path); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	meta := dst.Metadata()
	if meta.Arrangement != ArrangementBeamSplitter {
		t.Errorf("arrangement not adopted: %v", meta.Arrangement)
	}
	if string(meta.Calibration) != `{"baseline_mm":0}` {
		t.Errorf("calibration not adopted: %s", meta.Calibration)
	}
	// Serials stay with the device options, not the loaded file.
	if meta.RGB.Serial != "other" {
		t.Errorf("serial overwritten: %s", meta.RGB.Serial)
	}
}

func TestLoadMetadataMissingFile(t *testing.T) {
	c := New(Options{})
	if err := c.LoadMetadata(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
