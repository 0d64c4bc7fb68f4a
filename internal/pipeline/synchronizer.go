package pipeline

import (
	"log/slog"
	"sync"
	"time"

	"github.com/evrgb/evfuse/internal/eventpool"
	"github.com/evrgb/evfuse/internal/events"
	"github.com/evrgb/evfuse/internal/metrics"
	"github.com/evrgb/evfuse/internal/trigger"
	"github.com/evrgb/evfuse/internal/types"
)

// DefaultIdleInterval is how long the synchronizer sleeps when no frame
// or trigger pair is ready.
const DefaultIdleInterval = time.Millisecond

// SynchronizerOptions configures a Synchronizer.
type SynchronizerOptions struct {
	Frames      *FrameQueue
	Triggers    *trigger.Buffer
	Accumulator *EventAccumulator
	Pool        *eventpool.Pool
	Dispatcher  *Dispatcher

	// IdleInterval overrides DefaultIdleInterval; useful in tests.
	IdleInterval time.Duration
	Logger       *slog.Logger
	Metrics      *metrics.Pipeline
	Bus          *events.Bus
}

// Synchronizer runs the core matching loop: the oldest buffered frame is
// paired with the oldest completed trigger pair, the event accumulator is
// sliced to the matched exposure window, and the resulting sample is
// handed to the dispatch worker. Exactly one synchronizer instance may
// run per session; it is the sole consumer of both the frame queue and
// the trigger buffer.
type Synchronizer struct {
	frames      *FrameQueue
	triggers    *trigger.Buffer
	accumulator *EventAccumulator
	pool        *eventpool.Pool
	dispatcher  *Dispatcher

	idle    time.Duration
	logger  *slog.Logger
	metrics *metrics.Pipeline
	bus     *events.Bus

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}

	// End timestamp of the previously processed frame; the lower bound of
	// the next window. Only touched by the loop goroutine while running.
	lastEndUs uint64
}

// NewSynchronizer creates a synchronizer over the given queues.
func NewSynchronizer(opts SynchronizerOptions) *Synchronizer {
	idle := opts.IdleInterval
	if idle <= 0 {
		idle = DefaultIdleInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		frames:      opts.Frames,
		triggers:    opts.Triggers,
		accumulator: opts.Accumulator,
		pool:        opts.Pool,
		dispatcher:  opts.Dispatcher,
		idle:        idle,
		logger:      logger,
		metrics:     opts.Metrics,
		bus:         opts.Bus,
	}
}

// Start launches the synchronization loop thread.
func (s *Synchronizer) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("Synchronization thread is already running")
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.lastEndUs = 0
	stop, done := s.stop, s.done
	s.mu.Unlock()

	go s.loop(stop, done)
	s.logger.Info("Synchronization thread started")
}

// Stop signals the loop and waits for it to exit.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.logger.Debug("Synchronization thread is not running")
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
	s.logger.Info("Synchronization thread stopped")
}

func (s *Synchronizer) loop(stop, done chan struct{}) {
	defer close(done)
	s.logger.Debug("Synchronization loop started")

	for {
		select {
		case <-stop:
			s.logger.Debug("Synchronization loop ended")
			return
		default:
		}

		if !s.step() {
			time.Sleep(s.idle)
		}
	}
}

// step attempts to emit one synchronized sample. It returns false when no
// work was ready, signalling the loop to back off briefly.
func (s *Synchronizer) step() bool {
	if s.triggers.Empty() {
		return false
	}

	frame, ok := s.frames.Pop()
	if !ok {
		return false
	}

	pair, ok := s.triggers.GetOldestTrigger()
	if !ok {
		s.frames.PushFront(frame)
		return false
	}

	if pair.End == nil {
		// The pair is still open; both sides wait for the end edge.
		s.frames.PushFront(frame)
		s.triggers.Requeue(pair)
		return false
	}

	// Degenerate single-edge pair: start unknown, anchor a zero-width
	// window at the end timestamp.
	startUs := pair.End.TimestampUs
	if pair.Start != nil {
		startUs = pair.Start.TimestampUs
	}
	endUs := pair.End.TimestampUs

	buf := s.pool.Acquire()

	lowerUs := s.lastEndUs
	if lowerUs == 0 {
		lowerUs = startUs
	}
	attributed := s.accumulator.ExtractWindow(lowerUs, endUs, buf)
	s.lastEndUs = endUs

	sample := Sample{
		Frame: types.FrameWithTimestamps{
			Frame:           frame,
			ExposureStartUs: startUs,
			ExposureEndUs:   endUs,
		},
		Events: buf,
	}

	if s.dispatcher.Enqueue(sample) {
		if s.metrics != nil {
			s.metrics.SamplesEmitted.Inc()
		}
		if s.bus != nil {
			s.bus.Publish(events.SampleSyncedEvent{
				FrameIndex:      frame.Index,
				ExposureStartUs: startUs,
				ExposureEndUs:   endUs,
				EventCount:      attributed,
				Timestamp:       time.Now().Format(time.RFC3339Nano),
			})
		}
	}

	return true
}
