// Package trigger reconciles the raw stream of polarity-tagged trigger
// pulses coming off the DVS trigger-in line into ordered start/end pairs.
// The producer is the driver delivery thread, the consumer is the
// synchronizer loop; every operation is serialized by a single mutex.
package trigger

import (
	"log/slog"
	"sync"
	"time"

	"github.com/evrgb/evfuse/internal/events"
	"github.com/evrgb/evfuse/internal/metrics"
	"github.com/evrgb/evfuse/internal/types"
)

// DefaultMaxSize bounds the completed-pair queue when no capacity is
// configured.
const DefaultMaxSize = 100

// Options configures a Buffer.
type Options struct {
	// MaxSize bounds the completed-pair queue. Zero means DefaultMaxSize.
	MaxSize int
	Logger  *slog.Logger
	Metrics *metrics.Pipeline
	Bus     *events.Bus
}

// Buffer reconciles single-edge trigger pulses into exposure-window pairs.
type Buffer struct {
	mu      sync.Mutex
	queue   []types.TriggerPair
	pending types.TriggerPair
	maxSize int

	logger  *slog.Logger
	metrics *metrics.Pipeline
	bus     *events.Bus
}

// New creates a trigger buffer.
func New(opts Options) *Buffer {
	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Buffer{
		maxSize: maxSize,
		logger:  logger,
		metrics: opts.Metrics,
		bus:     opts.Bus,
	}
}

// AddTrigger feeds one pulse into the reconciliation state machine.
// It returns true iff the queue changed: a pair was completed, or an
// anomalous single-edge pair was flushed. Receiving the first start edge
// of a well-formed pair returns false.
//
// Anomaly policy: an end edge with no pending start is enqueued as an
// end-only pair; a second start edge flushes the pending start as a
// start-only pair before replacing it. When the queue is at capacity,
// pulses that would complete a pair are dropped so a stalled consumer
// cannot cause unbounded growth.
func (b *Buffer) AddTrigger(t types.TriggerSignal) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending.Empty() {
		if t.Polarity == types.PolarityExposureStart {
			start := t
			b.pending.Start = &start
			return false
		}

		b.logger.Warn("Received end trigger before start trigger", "timestamp_us", t.TimestampUs)
		b.noteAnomaly(metrics.AnomalyEndWithoutStart, t)
		end := t
		b.queue = append(b.queue, types.TriggerPair{End: &end})
		return true
	}

	if len(b.queue) >= b.maxSize {
		b.logger.Warn("Trigger buffer is full, ignoring new trigger", "size", len(b.queue))
		b.noteAnomaly(metrics.AnomalyBufferFull, t)
		return false
	}

	if t.Polarity == types.PolarityExposureEnd {
		end := t
		b.queue = append(b.queue, types.TriggerPair{Start: b.pending.Start, End: &end})
		b.pending.Reset()
		if b.metrics != nil {
			b.metrics.TriggerPairsCompleted.Inc()
		}
		return true
	}

	b.logger.Warn("Received start trigger while another start trigger is pending",
		"pending_us", b.pending.Start.TimestampUs, "timestamp_us", t.TimestampUs)
	b.noteAnomaly(metrics.AnomalyDoubleStart, t)
	b.queue = append(b.queue, types.TriggerPair{Start: b.pending.Start})
	start := t
	b.pending.Start = &start
	return true
}

// GetOldestTrigger pops and returns the oldest completed pair.
func (b *Buffer) GetOldestTrigger() (types.TriggerPair, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.queue) == 0 {
		return types.TriggerPair{}, false
	}
	pair := b.queue[0]
	b.queue = b.queue[1:]
	return pair, true
}

// PeekOldestTrigger returns the oldest completed pair without removing it.
func (b *Buffer) PeekOldestTrigger() (types.TriggerPair, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.queue) == 0 {
		return types.TriggerPair{}, false
	}
	return b.queue[0], true
}

// Pop discards the oldest completed pair.
func (b *Buffer) Pop() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.queue) == 0 {
		return false
	}
	b.queue = b.queue[1:]
	return true
}

// Requeue puts a previously popped pair back at the front of the queue.
// The synchronizer uses this when it pops a pair whose end edge is still
// missing; requeueing preserves FIFO pairing with the frame it pushed
// back at the same time.
func (b *Buffer) Requeue(pair types.TriggerPair) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.queue = append([]types.TriggerPair{pair}, b.queue...)
}

// Clear discards all completed pairs and the pending slot.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.queue = nil
	b.pending.Reset()
}

// Size returns the number of completed pairs.
func (b *Buffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Empty reports whether no completed pair is queued.
func (b *Buffer) Empty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue) == 0
}

// MaxSize returns the configured capacity.
func (b *Buffer) MaxSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxSize
}

// SetMaxSize changes the capacity. Shrinking below the current size
// evicts the oldest pairs immediately.
func (b *Buffer) SetMaxSize(maxSize int) {
	if maxSize <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.maxSize = maxSize
	for len(b.queue) > b.maxSize {
		b.logger.Warn("Trigger buffer shrunk, evicting oldest pair", "max_size", maxSize)
		b.queue = b.queue[1:]
	}
}

// noteAnomaly records an anomaly on the metrics and the event bus.
// Must be called with the mutex held; bus publication is non-blocking.
func (b *Buffer) noteAnomaly(reason string, t types.TriggerSignal) {
	if b.metrics != nil {
		b.metrics.TriggerAnomalies.WithLabelValues(reason).Inc()
	}
	if b.bus != nil {
		b.bus.Publish(events.TriggerAnomalyEvent{
			Reason:      reason,
			TriggerID:   t.TriggerID,
			TimestampUs: t.TimestampUs,
			Timestamp:   time.Now().Format(time.RFC3339Nano),
		})
	}
}
