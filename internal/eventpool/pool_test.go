package eventpool

import (
	"testing"

	"github.com/evrgb/evfuse/internal/types"
)

func TestAcquireReusesReleasedBuffer(t *testing.T) {
	p := New(1, 16, nil)

	buf := p.Acquire()
	buf.Events = append(buf.Events, types.Event{TimestampUs: 1})
	p.Release(buf)

	again := p.Acquire()
	if again != buf {
		t.Error("expected the released buffer back")
	}
	if len(again.Events) != 0 {
		t.Errorf("released buffer not cleared, len=%d", len(again.Events))
	}
	if cap(again.Events) < 16 {
		t.Errorf("released buffer lost its reservation, cap=%d", cap(again.Events))
	}
}

func TestAcquireAllocatesWhenEmpty(t *testing.T) {
	p := New(0, 8, nil)

	if p.FreeCount() != 0 {
		t.Fatalf("expected empty pool, got %d", p.FreeCount())
	}

	buf := p.Acquire()
	if buf == nil {
		t.Fatal("expected a fresh buffer")
	}
	if cap(buf.Events) != 8 {
		t.Errorf("expected capacity 8, got %d", cap(buf.Events))
	}
}

func TestPrewarm(t *testing.T) {
	p := New(4, 32, nil)
	if p.FreeCount() != 4 {
		t.Fatalf("expected 4 prewarmed buffers, got %d", p.FreeCount())
	}

	a := p.Acquire()
	b := p.Acquire()
	if p.FreeCount() != 2 {
		t.Errorf("expected 2 free after two acquisitions, got %d", p.FreeCount())
	}
	if a == b {
		t.Error("acquired the same buffer twice")
	}

	p.Release(a)
	p.Release(b)
	if p.FreeCount() != 4 {
		t.Errorf("expected all buffers back, got %d", p.FreeCount())
	}
}

func TestReleaseRestoresReservation(t *testing.T) {
	p := New(0, 64, nil)

	buf := p.Acquire()
	// Simulate a holder that swapped in a tiny backing array.
	buf.Events = make([]types.Event, 0, 2)
	p.Release(buf)

	again := p.Acquire()
	if cap(again.Events) < 64 {
		t.Errorf("expected reservation restored to 64, got %d", cap(again.Events))
	}
}

func TestReleaseNil(t *testing.T) {
	p := New(0, 0, nil)
	p.Release(nil)
	if p.FreeCount() != 0 {
		t.Error("nil release should be ignored")
	}
}
