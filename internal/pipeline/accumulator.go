package pipeline

import (
	"sort"
	"sync"

	"github.com/evrgb/evfuse/internal/eventpool"
	"github.com/evrgb/evfuse/internal/metrics"
	"github.com/evrgb/evfuse/internal/types"
)

// EventAccumulator buffers raw DVS events in arrival order until the
// synchronizer consumes them. Events arrive in approximately monotonic
// timestamp order; consumption always removes a contiguous prefix ending
// at or before an exposure window's end timestamp.
type EventAccumulator struct {
	mu      sync.Mutex
	events  []types.Event
	metrics *metrics.Pipeline
}

// NewEventAccumulator creates an empty accumulator.
func NewEventAccumulator(m *metrics.Pipeline) *EventAccumulator {
	return &EventAccumulator{metrics: m}
}

// Append copies a batch of events into the accumulator. The batch slice
// belongs to the driver delivery thread and is not retained.
func (a *EventAccumulator) Append(batch []types.Event) {
	if len(batch) == 0 {
		return
	}

	a.mu.Lock()
	a.events = append(a.events, batch...)
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.EventsReceived.Add(float64(len(batch)))
	}
}

// ExtractWindow moves the contiguous prefix of events with timestamps in
// [lowerUs, endUs] into buf and erases the whole prefix up to endUs from
// the accumulator. Events older than lowerUs are pruned without being
// attributed; that only happens for the first frame of a session, where
// lowerUs is the frame's own exposure start and anything older is stale.
// It returns the number of events attributed.
func (a *EventAccumulator) ExtractWindow(lowerUs, endUs uint64, buf *eventpool.Buffer) int {
	a.mu.Lock()

	// The prefix ends at the first event past the window end.
	n := sort.Search(len(a.events), func(i int) bool {
		return a.events[i].TimestampUs > endUs
	})
	// Stale events precede the window's lower bound.
	d := sort.Search(n, func(i int) bool {
		return a.events[i].TimestampUs >= lowerUs
	})

	attributed := n - d
	if attributed > 0 {
		buf.Events = append(buf.Events, a.events[d:n]...)
	}
	if n > 0 {
		remaining := copy(a.events, a.events[n:])
		a.events = a.events[:remaining]
	}

	a.mu.Unlock()

	if a.metrics != nil {
		if attributed > 0 {
			a.metrics.EventsAttributed.Add(float64(attributed))
		}
		if d > 0 {
			a.metrics.EventsDiscarded.Add(float64(d))
		}
	}

	return attributed
}

// Len returns the number of buffered events.
func (a *EventAccumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.events)
}

// Clear discards all buffered events.
func (a *EventAccumulator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = a.events[:0]
}
