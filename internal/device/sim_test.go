package device

import (
	"sync"
	"testing"
	"time"

	"github.com/evrgb/evfuse/internal/types"
)

func TestSimulatorEmitsTriggerPairsAroundEvents(t *testing.T) {
	sim := NewSimulator(SimOptions{
		FrameInterval: 5 * time.Millisecond,
		ExposureUs:    1000,
		EventRate:     10000,
	})

	var mu sync.Mutex
	var triggers []types.TriggerSignal
	var batches [][]types.Event

	sim.AddTriggerInCallback(func(sig types.TriggerSignal) {
		mu.Lock()
		triggers = append(triggers, sig)
		mu.Unlock()
	})
	sim.AddEventsStreamCallback(func(batch []types.Event) {
		mu.Lock()
		batches = append(batches, append([]types.Event(nil), batch...))
		mu.Unlock()
	})

	if !sim.Start() {
		t.Fatal("Start failed")
	}
	time.Sleep(30 * time.Millisecond)
	sim.Stop()

	mu.Lock()
	defer mu.Unlock()

	if len(triggers) < 2 {
		t.Fatalf("expected at least one trigger pair, got %d pulses", len(triggers))
	}
	// Pulses alternate start/end with matching exposure length.
	for i := 0; i+1 < len(triggers); i += 2 {
		if triggers[i].Polarity != types.PolarityExposureStart {
			t.Fatalf("pulse %d: expected start polarity, got %d", i, triggers[i].Polarity)
		}
		if triggers[i+1].Polarity != types.PolarityExposureEnd {
			t.Fatalf("pulse %d: expected end polarity, got %d", i+1, triggers[i+1].Polarity)
		}
		if triggers[i+1].TimestampUs-triggers[i].TimestampUs != 1000 {
			t.Errorf("pair %d: exposure length %d, want 1000", i/2,
				triggers[i+1].TimestampUs-triggers[i].TimestampUs)
		}
	}

	if len(batches) == 0 {
		t.Fatal("no event batches delivered")
	}
	// Events of the first batch fall inside the first exposure window.
	startUs := triggers[0].TimestampUs
	endUs := triggers[1].TimestampUs
	for _, e := range batches[0] {
		if e.TimestampUs <= startUs || e.TimestampUs > endUs {
			t.Errorf("event outside exposure window: ts=%d window=(%d,%d]", e.TimestampUs, startUs, endUs)
		}
	}
}

func TestSimulatorFrameConsumeOnce(t *testing.T) {
	sim := NewSimulator(SimOptions{FrameInterval: 5 * time.Millisecond})

	if !sim.Start() {
		t.Fatal("Start failed")
	}

	deadline := time.Now().Add(time.Second)
	var frame types.Frame
	for {
		var ok bool
		frame, ok = sim.GetLatestImage()
		if ok {
			break
		}
		if time.Now().After(deadline) {
			sim.Stop()
			t.Fatal("no frame produced")
		}
		time.Sleep(time.Millisecond)
	}
	sim.Stop()

	if frame.Width != 64 || frame.Height != 48 {
		t.Errorf("unexpected frame geometry: %dx%d", frame.Width, frame.Height)
	}
	if len(frame.Image) != frame.Stride*frame.Height {
		t.Errorf("image size %d does not match stride*height %d", len(frame.Image), frame.Stride*frame.Height)
	}

	// With the producer stopped, draining any last frame must leave
	// nothing behind; each frame is handed out exactly once.
	sim.GetLatestImage()
	if _, ok := sim.GetLatestImage(); ok {
		t.Error("frame handed out twice")
	}
}

func TestSimulatorCallbackRemoval(t *testing.T) {
	sim := NewSimulator(SimOptions{})

	id := sim.AddEventsStreamCallback(func([]types.Event) {})
	if !sim.RemoveEventsStreamCallback(id) {
		t.Error("expected removal to succeed")
	}
	if sim.RemoveEventsStreamCallback(id) {
		t.Error("second removal should fail")
	}

	tid := sim.AddTriggerInCallback(func(types.TriggerSignal) {})
	if !sim.RemoveTriggerInCallback(tid) {
		t.Error("expected trigger removal to succeed")
	}
}

func TestSimulatorDoubleStart(t *testing.T) {
	sim := NewSimulator(SimOptions{FrameInterval: 5 * time.Millisecond})

	if !sim.Start() {
		t.Fatal("Start failed")
	}
	if sim.Start() {
		t.Error("second Start should be rejected")
	}
	if !sim.Stop() {
		t.Error("Stop failed")
	}
	if sim.Stop() {
		t.Error("second Stop should be rejected")
	}
}
