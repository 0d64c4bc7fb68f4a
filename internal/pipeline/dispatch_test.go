package pipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/evrgb/evfuse/internal/eventpool"
	"github.com/evrgb/evfuse/internal/types"
)

type fakeRecorder struct {
	mu     sync.Mutex
	active bool
	frames []uint32
}

func (r *fakeRecorder) Record(frame types.FrameWithTimestamps, _ []types.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame.Index)
	return true
}

func (r *fakeRecorder) IsActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *fakeRecorder) recorded() []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint32(nil), r.frames...)
}

func newSample(pool *eventpool.Pool, index uint32) Sample {
	return Sample{
		Frame:  types.FrameWithTimestamps{Frame: types.Frame{Index: index}},
		Events: pool.Acquire(),
	}
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	pool := eventpool.New(4, 64, nil)
	d := NewDispatcher(DispatcherOptions{Pool: pool})

	var mu sync.Mutex
	var got []uint32
	delivered := make(chan struct{}, 16)
	d.SetSyncedCallback(func(frame types.FrameWithTimestamps, _ []types.Event) {
		mu.Lock()
		got = append(got, frame.Index)
		mu.Unlock()
		delivered <- struct{}{}
	})

	d.Start()
	defer d.Stop()

	for i := uint32(0); i < 3; i++ {
		if !d.Enqueue(newSample(pool, i)) {
			t.Fatalf("enqueue %d failed", i)
		}
	}

	for range 3 {
		select {
		case <-delivered:
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for delivery")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for i, idx := range got {
		if idx != uint32(i) {
			t.Errorf("delivery %d: expected frame %d, got %d", i, i, idx)
		}
	}
}

func TestDispatcherRecordsWhenActive(t *testing.T) {
	pool := eventpool.New(4, 64, nil)
	d := NewDispatcher(DispatcherOptions{Pool: pool})

	rec := &fakeRecorder{active: true}
	d.SetRecorder(rec)

	delivered := make(chan struct{}, 1)
	d.SetSyncedCallback(func(_ types.FrameWithTimestamps, _ []types.Event) {
		delivered <- struct{}{}
	})

	d.Start()
	defer d.Stop()

	d.Enqueue(newSample(pool, 7))
	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for delivery")
	}

	if frames := rec.recorded(); len(frames) != 1 || frames[0] != 7 {
		t.Errorf("unexpected recorded frames: %v", frames)
	}
}

func TestDispatcherSkipsInactiveRecorder(t *testing.T) {
	pool := eventpool.New(4, 64, nil)
	d := NewDispatcher(DispatcherOptions{Pool: pool})

	rec := &fakeRecorder{active: false}
	d.SetRecorder(rec)

	delivered := make(chan struct{}, 1)
	d.SetSyncedCallback(func(_ types.FrameWithTimestamps, _ []types.Event) {
		delivered <- struct{}{}
	})

	d.Start()
	defer d.Stop()

	d.Enqueue(newSample(pool, 1))
	<-delivered

	if frames := rec.recorded(); len(frames) != 0 {
		t.Errorf("inactive recorder received frames: %v", frames)
	}
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	pool := eventpool.New(8, 64, nil)
	// Worker not started, so the queue fills up.
	d := NewDispatcher(DispatcherOptions{QueueSize: 2, Pool: pool})

	if !d.Enqueue(newSample(pool, 0)) || !d.Enqueue(newSample(pool, 1)) {
		t.Fatal("first two samples should enqueue")
	}

	before := pool.FreeCount()
	if d.Enqueue(newSample(pool, 2)) {
		t.Error("third sample should be dropped")
	}
	// The dropped sample's buffer goes straight back to the pool.
	if pool.FreeCount() != before {
		t.Errorf("dropped buffer not released: before=%d after=%d", before, pool.FreeCount())
	}
}

func TestDispatcherStopReleasesQueuedBuffers(t *testing.T) {
	pool := eventpool.New(8, 64, nil)
	d := NewDispatcher(DispatcherOptions{QueueSize: 8, Pool: pool})

	block := make(chan struct{})
	started := make(chan struct{}, 1)
	d.SetSyncedCallback(func(_ types.FrameWithTimestamps, _ []types.Event) {
		started <- struct{}{}
		<-block
	})

	d.Start()

	for i := uint32(0); i < 4; i++ {
		d.Enqueue(newSample(pool, i))
	}

	// Let the worker block inside the first delivery, then stop; the
	// remaining samples are drained and their buffers returned.
	<-started
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(block)
	}()
	d.Stop()

	if pool.FreeCount() != 8 {
		t.Errorf("expected all buffers back in the pool, got %d", pool.FreeCount())
	}
}
