package trigger

import (
	"testing"

	"github.com/evrgb/evfuse/internal/types"
)

func start(ts uint64) types.TriggerSignal {
	return types.TriggerSignal{Polarity: types.PolarityExposureStart, TimestampUs: ts}
}

func end(ts uint64) types.TriggerSignal {
	return types.TriggerSignal{Polarity: types.PolarityExposureEnd, TimestampUs: ts}
}

func TestAddTriggerCompletesPair(t *testing.T) {
	b := New(Options{})

	if b.AddTrigger(start(100)) {
		t.Error("start edge alone should not change the queue")
	}
	if !b.AddTrigger(end(200)) {
		t.Error("end edge should complete the pair")
	}

	pair, ok := b.GetOldestTrigger()
	if !ok {
		t.Fatal("expected a completed pair")
	}
	if pair.Start == nil || pair.Start.TimestampUs != 100 {
		t.Errorf("unexpected start edge: %+v", pair.Start)
	}
	if pair.End == nil || pair.End.TimestampUs != 200 {
		t.Errorf("unexpected end edge: %+v", pair.End)
	}
}

func TestAddTriggerEndWithoutStart(t *testing.T) {
	b := New(Options{})

	if !b.AddTrigger(end(500)) {
		t.Error("orphan end edge should be enqueued")
	}

	pair, ok := b.GetOldestTrigger()
	if !ok {
		t.Fatal("expected an end-only pair")
	}
	if pair.Start != nil {
		t.Errorf("expected nil start, got %+v", pair.Start)
	}
	if pair.End == nil || pair.End.TimestampUs != 500 {
		t.Errorf("unexpected end edge: %+v", pair.End)
	}
}

func TestAddTriggerDoubleStart(t *testing.T) {
	b := New(Options{})

	b.AddTrigger(start(100))
	if !b.AddTrigger(start(150)) {
		t.Error("second start should flush the pending start")
	}

	// The flushed pair carries only the first start edge.
	pair, ok := b.GetOldestTrigger()
	if !ok {
		t.Fatal("expected a flushed start-only pair")
	}
	if pair.Start == nil || pair.Start.TimestampUs != 100 {
		t.Errorf("unexpected start edge: %+v", pair.Start)
	}
	if pair.End != nil {
		t.Errorf("expected nil end, got %+v", pair.End)
	}

	// The second start is now pending and pairs normally.
	if !b.AddTrigger(end(250)) {
		t.Error("end edge should complete the replacement pair")
	}
	pair, _ = b.GetOldestTrigger()
	if pair.Start.TimestampUs != 150 || pair.End.TimestampUs != 250 {
		t.Errorf("unexpected pair: start=%+v end=%+v", pair.Start, pair.End)
	}
}

func TestAddTriggerRejectsWhenFull(t *testing.T) {
	b := New(Options{MaxSize: 2})

	for i := uint64(0); i < 2; i++ {
		b.AddTrigger(start(i * 100))
		b.AddTrigger(end(i*100 + 50))
	}
	if b.Size() != 2 {
		t.Fatalf("expected 2 queued pairs, got %d", b.Size())
	}

	// A third pair cannot complete while the queue is full.
	b.AddTrigger(start(300))
	if b.AddTrigger(end(350)) {
		t.Error("completion should be rejected at capacity")
	}
	if b.Size() != 2 {
		t.Errorf("queue grew past capacity: %d", b.Size())
	}

	// The oldest queued pairs are untouched.
	pair, _ := b.GetOldestTrigger()
	if pair.Start.TimestampUs != 0 {
		t.Errorf("oldest pair changed: %+v", pair.Start)
	}
}

func TestRequeuePreservesOrder(t *testing.T) {
	b := New(Options{})

	b.AddTrigger(start(100))
	b.AddTrigger(end(200))
	b.AddTrigger(start(300))
	b.AddTrigger(end(400))

	first, _ := b.GetOldestTrigger()
	b.Requeue(first)

	again, _ := b.GetOldestTrigger()
	if again.Start.TimestampUs != 100 {
		t.Errorf("requeued pair should come back first, got start=%d", again.Start.TimestampUs)
	}
	next, _ := b.GetOldestTrigger()
	if next.Start.TimestampUs != 300 {
		t.Errorf("second pair out of order, got start=%d", next.Start.TimestampUs)
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	b := New(Options{})
	b.AddTrigger(start(1))
	b.AddTrigger(end(2))

	if _, ok := b.PeekOldestTrigger(); !ok {
		t.Fatal("peek should see the pair")
	}
	if b.Size() != 1 {
		t.Errorf("peek consumed the pair")
	}
	if !b.Pop() {
		t.Error("pop should discard the pair")
	}
	if !b.Empty() {
		t.Error("buffer should be empty after pop")
	}
}

func TestSetMaxSizeEvictsOldest(t *testing.T) {
	b := New(Options{MaxSize: 5})

	for i := uint64(0); i < 4; i++ {
		b.AddTrigger(start(i * 100))
		b.AddTrigger(end(i*100 + 50))
	}

	b.SetMaxSize(2)
	if b.Size() != 2 {
		t.Fatalf("expected 2 pairs after shrink, got %d", b.Size())
	}
	pair, _ := b.GetOldestTrigger()
	if pair.Start.TimestampUs != 200 {
		t.Errorf("expected oldest survivors to be the newest pairs, got start=%d", pair.Start.TimestampUs)
	}
}

func TestClearResetsPending(t *testing.T) {
	b := New(Options{})
	b.AddTrigger(start(100))
	b.Clear()

	// After Clear the pending start is gone; a new end edge is an orphan.
	if !b.AddTrigger(end(200)) {
		t.Error("expected orphan end pair after clear")
	}
	pair, _ := b.GetOldestTrigger()
	if pair.Start != nil {
		t.Errorf("pending start survived Clear: %+v", pair.Start)
	}
}
