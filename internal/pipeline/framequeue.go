// Package pipeline contains the synchronization core: the bounded frame
// queue, the event accumulator, the synchronizer loop that matches frames
// to trigger-delimited exposure windows, and the dispatch worker that
// delivers synchronized samples to the recorder and user callbacks.
package pipeline

import (
	"log/slog"
	"sync"
	"time"

	"github.com/evrgb/evfuse/internal/events"
	"github.com/evrgb/evfuse/internal/metrics"
	"github.com/evrgb/evfuse/internal/types"
)

// DefaultFrameQueueSize bounds the frame queue when no capacity is
// configured.
const DefaultFrameQueueSize = 10

// FrameQueueOptions configures a FrameQueue.
type FrameQueueOptions struct {
	// MaxSize bounds the queue. Zero means DefaultFrameQueueSize.
	MaxSize int
	Logger  *slog.Logger
	Metrics *metrics.Pipeline
	Bus     *events.Bus
}

// FrameQueue is a bounded FIFO of captured frames. Pushing past capacity
// evicts the oldest frame; frame loss under backpressure is deliberate,
// not an error.
type FrameQueue struct {
	mu        sync.Mutex
	frames    []types.Frame
	maxSize   int
	nextIndex uint32

	logger  *slog.Logger
	metrics *metrics.Pipeline
	bus     *events.Bus
}

// NewFrameQueue creates a frame queue.
func NewFrameQueue(opts FrameQueueOptions) *FrameQueue {
	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultFrameQueueSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &FrameQueue{
		maxSize: maxSize,
		logger:  logger,
		metrics: opts.Metrics,
		bus:     opts.Bus,
	}
}

// Push assigns the next capture index to the frame and appends it,
// evicting the oldest frame when the queue is over capacity. It returns
// the assigned index.
func (q *FrameQueue) Push(frame types.Frame) uint32 {
	q.mu.Lock()

	frame.Index = q.nextIndex
	q.nextIndex++
	q.frames = append(q.frames, frame)
	if q.metrics != nil {
		q.metrics.FramesCaptured.Inc()
	}

	var evicted *types.Frame
	if len(q.frames) > q.maxSize {
		old := q.frames[0]
		q.frames = q.frames[1:]
		evicted = &old
		if q.metrics != nil {
			q.metrics.FramesEvicted.Inc()
		}
	}
	depth := len(q.frames)
	q.mu.Unlock()

	if evicted != nil {
		q.logger.Debug("Frame queue over capacity, evicted oldest frame",
			"frame_index", evicted.Index, "depth", depth)
		if q.bus != nil {
			q.bus.Publish(events.FrameDroppedEvent{
				FrameIndex: evicted.Index,
				QueueDepth: depth,
				Timestamp:  time.Now().Format(time.RFC3339Nano),
			})
		}
	}

	return frame.Index
}

// PushFront returns a popped frame to the head of the queue. The
// synchronizer uses this when the matching trigger pair is not ready yet.
func (q *FrameQueue) PushFront(frame types.Frame) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.frames = append([]types.Frame{frame}, q.frames...)
}

// Pop removes and returns the oldest frame.
func (q *FrameQueue) Pop() (types.Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.frames) == 0 {
		return types.Frame{}, false
	}
	frame := q.frames[0]
	q.frames = q.frames[1:]
	return frame, true
}

// Len returns the number of queued frames.
func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// Clear discards all queued frames. The capture index keeps counting.
func (q *FrameQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.frames = nil
}

// MaxSize returns the configured capacity.
func (q *FrameQueue) MaxSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.maxSize
}

// SetMaxSize changes the capacity, evicting oldest frames if the queue is
// over the new bound.
func (q *FrameQueue) SetMaxSize(maxSize int) {
	if maxSize <= 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.maxSize = maxSize
	for len(q.frames) > q.maxSize {
		q.frames = q.frames[1:]
		if q.metrics != nil {
			q.metrics.FramesEvicted.Inc()
		}
	}
}
