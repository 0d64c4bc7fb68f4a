// Package eventpool provides reusable event buffers so that per-sample
// container allocation is amortized under sustained high-rate streaming.
package eventpool

import (
	"sync"

	"github.com/evrgb/evfuse/internal/metrics"
	"github.com/evrgb/evfuse/internal/types"
)

// Buffer is a pooled event container. A released buffer must not be
// referenced by any other holder; that is a caller discipline contract,
// not enforced here.
type Buffer struct {
	Events []types.Event
}

// Pool hands out pre-sized event buffers. Acquire never blocks.
type Pool struct {
	mu       sync.Mutex
	free     []*Buffer
	capacity int
	metrics  *metrics.Pipeline
}

// New creates a pool pre-warmed with prewarm buffers, each reserved to
// capacity events. A zero capacity leaves sizing to append growth.
func New(prewarm, capacity int, m *metrics.Pipeline) *Pool {
	p := &Pool{
		capacity: capacity,
		metrics:  m,
	}
	if prewarm > 0 {
		p.free = make([]*Buffer, 0, prewarm)
		for range prewarm {
			p.free = append(p.free, p.newBuffer())
		}
	}
	return p
}

// Acquire pops a buffer from the pool, allocating a fresh one when the
// pool is empty.
func (p *Pool) Acquire() *Buffer {
	p.mu.Lock()
	if n := len(p.free); n > 0 {
		buf := p.free[n-1]
		p.free = p.free[:n-1]
		p.mu.Unlock()
		if p.metrics != nil {
			p.metrics.PoolHits.Inc()
		}
		return buf
	}
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.PoolMisses.Inc()
	}
	return p.newBuffer()
}

// Release clears the buffer (length zero, capacity retained), restores the
// configured reservation if a holder swapped in a smaller backing array,
// and returns it to the pool.
func (p *Pool) Release(buf *Buffer) {
	if buf == nil {
		return
	}

	buf.Events = buf.Events[:0]
	if p.capacity > 0 && cap(buf.Events) < p.capacity {
		buf.Events = make([]types.Event, 0, p.capacity)
	}

	p.mu.Lock()
	p.free = append(p.free, buf)
	p.mu.Unlock()
}

// FreeCount returns the number of idle buffers in the pool.
func (p *Pool) FreeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

func (p *Pool) newBuffer() *Buffer {
	if p.capacity > 0 {
		return &Buffer{Events: make([]types.Event, 0, p.capacity)}
	}
	return &Buffer{}
}
