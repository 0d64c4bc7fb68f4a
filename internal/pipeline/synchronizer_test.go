package pipeline

import (
	"testing"
	"time"

	"github.com/evrgb/evfuse/internal/eventpool"
	"github.com/evrgb/evfuse/internal/trigger"
	"github.com/evrgb/evfuse/internal/types"
)

type emitted struct {
	frame  types.FrameWithTimestamps
	events []types.Event
}

type syncFixture struct {
	frames   *FrameQueue
	triggers *trigger.Buffer
	acc      *EventAccumulator
	pool     *eventpool.Pool
	disp     *Dispatcher
	sync     *Synchronizer
	out      chan emitted
}

func newSyncFixture(frameQueueSize int) *syncFixture {
	f := &syncFixture{
		frames:   NewFrameQueue(FrameQueueOptions{MaxSize: frameQueueSize}),
		triggers: trigger.New(trigger.Options{}),
		acc:      NewEventAccumulator(nil),
		pool:     eventpool.New(2, 1024, nil),
		out:      make(chan emitted, 16),
	}
	f.disp = NewDispatcher(DispatcherOptions{Pool: f.pool})
	f.disp.SetSyncedCallback(func(frame types.FrameWithTimestamps, evs []types.Event) {
		// The event slice is pooled; copy before the dispatcher releases it.
		f.out <- emitted{frame: frame, events: append([]types.Event(nil), evs...)}
	})
	f.sync = NewSynchronizer(SynchronizerOptions{
		Frames:      f.frames,
		Triggers:    f.triggers,
		Accumulator: f.acc,
		Pool:        f.pool,
		Dispatcher:  f.disp,
	})
	return f
}

func (f *syncFixture) start() {
	f.disp.Start()
	f.sync.Start()
}

func (f *syncFixture) stop() {
	f.sync.Stop()
	f.disp.Stop()
}

func (f *syncFixture) addPair(startUs, endUs uint64) {
	f.triggers.AddTrigger(types.TriggerSignal{Polarity: types.PolarityExposureStart, TimestampUs: startUs})
	f.triggers.AddTrigger(types.TriggerSignal{Polarity: types.PolarityExposureEnd, TimestampUs: endUs})
}

func (f *syncFixture) waitSample(t *testing.T) emitted {
	t.Helper()
	select {
	case s := <-f.out:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for synchronized sample")
		return emitted{}
	}
}

func TestSynchronizerMatchesOldestFrameToOldestPair(t *testing.T) {
	f := newSyncFixture(10)
	f.start()
	defer f.stop()

	f.acc.Append([]types.Event{
		{TimestampUs: 110}, {TimestampUs: 150}, {TimestampUs: 190},
		{TimestampUs: 250},
	})
	f.frames.Push(types.Frame{})
	f.addPair(100, 200)

	s := f.waitSample(t)
	if s.frame.Index != 0 {
		t.Errorf("expected frame 0, got %d", s.frame.Index)
	}
	if s.frame.ExposureStartUs != 100 || s.frame.ExposureEndUs != 200 {
		t.Errorf("unexpected exposure window: %d-%d", s.frame.ExposureStartUs, s.frame.ExposureEndUs)
	}
	if len(s.events) != 3 {
		t.Errorf("expected 3 attributed events, got %d", len(s.events))
	}
	for _, e := range s.events {
		if e.TimestampUs < 100 || e.TimestampUs > 200 {
			t.Errorf("event outside window: ts=%d", e.TimestampUs)
		}
	}
}

func TestSynchronizerFIFOAcrossSamples(t *testing.T) {
	f := newSyncFixture(10)
	f.start()
	defer f.stop()

	f.frames.Push(types.Frame{})
	f.frames.Push(types.Frame{})
	f.addPair(100, 200)
	f.addPair(300, 400)

	first := f.waitSample(t)
	second := f.waitSample(t)

	if first.frame.Index != 0 || first.frame.ExposureStartUs != 100 {
		t.Errorf("first sample wrong: index=%d start=%d", first.frame.Index, first.frame.ExposureStartUs)
	}
	if second.frame.Index != 1 || second.frame.ExposureStartUs != 300 {
		t.Errorf("second sample wrong: index=%d start=%d", second.frame.Index, second.frame.ExposureStartUs)
	}
}

func TestSynchronizerAfterFrameEviction(t *testing.T) {
	// With a capacity-2 frame queue, pushing three frames evicts the
	// first; the next pair matches the second frame.
	f := newSyncFixture(2)

	f.frames.Push(types.Frame{}) // 0, evicted below
	f.frames.Push(types.Frame{}) // 1
	f.frames.Push(types.Frame{}) // 2

	f.start()
	defer f.stop()

	f.addPair(100, 200)

	s := f.waitSample(t)
	if s.frame.Index != 1 {
		t.Errorf("expected surviving frame 1, got %d", s.frame.Index)
	}
}

func TestSynchronizerWaitsForEndEdge(t *testing.T) {
	f := newSyncFixture(10)
	f.start()
	defer f.stop()

	f.frames.Push(types.Frame{})
	// Double start flushes a start-only pair into the queue; no end edge
	// yet, so nothing may be emitted.
	f.triggers.AddTrigger(types.TriggerSignal{Polarity: types.PolarityExposureStart, TimestampUs: 100})
	f.triggers.AddTrigger(types.TriggerSignal{Polarity: types.PolarityExposureStart, TimestampUs: 150})

	select {
	case s := <-f.out:
		t.Fatalf("sample emitted for open pair: %+v", s.frame)
	case <-time.After(50 * time.Millisecond):
	}

	// Frame and pair must both still be queued.
	if f.frames.Len() != 1 {
		t.Errorf("frame consumed while waiting, depth=%d", f.frames.Len())
	}
	if f.triggers.Empty() {
		t.Error("open pair was discarded")
	}
}

func TestSynchronizerWindowLowerBoundFollowsPreviousEnd(t *testing.T) {
	f := newSyncFixture(10)
	f.start()
	defer f.stop()

	// Events between the two exposure windows belong to the second
	// sample's slice, bounded below by the first window's end.
	f.acc.Append([]types.Event{
		{TimestampUs: 150}, // window 1
		{TimestampUs: 250}, // gap, swept into window 2's prefix erase
		{TimestampUs: 350}, // window 2
	})

	f.frames.Push(types.Frame{})
	f.frames.Push(types.Frame{})
	f.addPair(100, 200)
	f.addPair(300, 400)

	first := f.waitSample(t)
	second := f.waitSample(t)

	if len(first.events) != 1 || first.events[0].TimestampUs != 150 {
		t.Errorf("first window wrong: %+v", first.events)
	}
	if len(second.events) != 2 {
		t.Fatalf("expected 2 events in second window, got %d", len(second.events))
	}
	if second.events[0].TimestampUs != 250 || second.events[1].TimestampUs != 350 {
		t.Errorf("second window wrong: %+v", second.events)
	}
}
