// Package device provides software stand-ins for the camera collaborators.
// The simulator produces a deterministic frame/trigger/event schedule on
// its own delivery goroutine, mirroring how a real driver invokes
// registered callbacks from threads it owns.
package device

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/evrgb/evfuse/internal/types"
)

// SimOptions configures a Simulator.
type SimOptions struct {
	Width         int           // frame width, default 64
	Height        int           // frame height, default 48
	FrameInterval time.Duration // frame period, default 33ms
	ExposureUs    uint64        // exposure window length, default 10000
	EventRate     int           // DVS events per second, default 50000
	Seed          int64         // RNG seed for event placement
	Logger        *slog.Logger
}

// Simulator implements types.FrameSource, types.EventSource and
// types.TriggerSource over a synthetic microsecond clock. For every frame
// period it emits a start trigger, a batch of events spread across the
// exposure, an end trigger, and then publishes the frame.
type Simulator struct {
	opts SimOptions

	mu         sync.Mutex
	running    bool
	stop       chan struct{}
	done       chan struct{}
	nextCbID   uint32
	eventCbs   map[uint32]types.EventsStreamCallback
	triggerCbs map[uint32]types.TriggerCallback
	latest     *types.Frame

	logger *slog.Logger
}

// NewSimulator creates a simulator.
func NewSimulator(opts SimOptions) *Simulator {
	if opts.Width <= 0 {
		opts.Width = 64
	}
	if opts.Height <= 0 {
		opts.Height = 48
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = 33 * time.Millisecond
	}
	if opts.ExposureUs == 0 {
		opts.ExposureUs = 10000
	}
	if opts.EventRate <= 0 {
		opts.EventRate = 50000
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		opts:       opts,
		eventCbs:   make(map[uint32]types.EventsStreamCallback),
		triggerCbs: make(map[uint32]types.TriggerCallback),
		logger:     logger,
	}
}

// Start launches the delivery goroutine.
func (s *Simulator) Start() bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return false
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	go s.run(stop, done)
	s.logger.Info("Simulated device started",
		"frame_interval", s.opts.FrameInterval, "event_rate", s.opts.EventRate)
	return true
}

// Stop halts the delivery goroutine.
func (s *Simulator) Stop() bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return false
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
	s.logger.Info("Simulated device stopped")
	return true
}

// GetLatestImage returns the most recent unconsumed frame. Each frame is
// handed out exactly once.
func (s *Simulator) GetLatestImage() (types.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latest == nil {
		return types.Frame{}, false
	}
	frame := *s.latest
	s.latest = nil
	return frame, true
}

// AddEventsStreamCallback registers an event batch callback.
func (s *Simulator) AddEventsStreamCallback(cb types.EventsStreamCallback) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCbID++
	s.eventCbs[s.nextCbID] = cb
	return s.nextCbID
}

// RemoveEventsStreamCallback removes an event batch callback by id.
func (s *Simulator) RemoveEventsStreamCallback(id uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.eventCbs[id]; !ok {
		return false
	}
	delete(s.eventCbs, id)
	return true
}

// AddTriggerInCallback registers a trigger edge callback.
func (s *Simulator) AddTriggerInCallback(cb types.TriggerCallback) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCbID++
	s.triggerCbs[s.nextCbID] = cb
	return s.nextCbID
}

// RemoveTriggerInCallback removes a trigger edge callback by id.
func (s *Simulator) RemoveTriggerInCallback(id uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.triggerCbs[id]; !ok {
		return false
	}
	delete(s.triggerCbs, id)
	return true
}

func (s *Simulator) run(stop, done chan struct{}) {
	defer close(done)

	rng := rand.New(rand.NewSource(s.opts.Seed))
	ticker := time.NewTicker(s.opts.FrameInterval)
	defer ticker.Stop()

	periodUs := uint64(s.opts.FrameInterval / time.Microsecond)
	eventsPerFrame := int(uint64(s.opts.EventRate) * s.opts.ExposureUs / 1e6)
	if eventsPerFrame < 1 {
		eventsPerFrame = 1
	}

	// Delivery buffer reused across ticks; receivers must copy, exactly
	// like a real driver's transient event run.
	batch := make([]types.Event, 0, eventsPerFrame)

	var clockUs uint64
	var frameCount uint32

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		startUs := clockUs
		endUs := startUs + s.opts.ExposureUs

		s.fireTrigger(types.TriggerSignal{Polarity: types.PolarityExposureStart, TimestampUs: startUs})

		batch = batch[:0]
		for i := range eventsPerFrame {
			// Spread events monotonically across the exposure window.
			ts := startUs + 1 + uint64(i)*(s.opts.ExposureUs-1)/uint64(eventsPerFrame)
			batch = append(batch, types.Event{
				X:           uint16(rng.Intn(s.opts.Width)),
				Y:           uint16(rng.Intn(s.opts.Height)),
				Polarity:    int16(rng.Intn(2)),
				TimestampUs: ts,
			})
		}
		s.fireEvents(batch)

		s.fireTrigger(types.TriggerSignal{Polarity: types.PolarityExposureEnd, TimestampUs: endUs})

		s.publishFrame(frameCount)
		frameCount++
		clockUs += periodUs
	}
}

func (s *Simulator) fireTrigger(t types.TriggerSignal) {
	s.mu.Lock()
	cbs := make([]types.TriggerCallback, 0, len(s.triggerCbs))
	for _, cb := range s.triggerCbs {
		cbs = append(cbs, cb)
	}
	s.mu.Unlock()

	for _, cb := range cbs {
		cb(t)
	}
}

func (s *Simulator) fireEvents(batch []types.Event) {
	s.mu.Lock()
	cbs := make([]types.EventsStreamCallback, 0, len(s.eventCbs))
	for _, cb := range s.eventCbs {
		cbs = append(cbs, cb)
	}
	s.mu.Unlock()

	for _, cb := range cbs {
		cb(batch)
	}
}

func (s *Simulator) publishFrame(count uint32) {
	stride := s.opts.Width * 3
	img := make([]byte, stride*s.opts.Height)
	for y := range s.opts.Height {
		for x := range s.opts.Width {
			off := y*stride + x*3
			img[off] = byte(x)
			img[off+1] = byte(y)
			img[off+2] = byte(count)
		}
	}

	s.mu.Lock()
	s.latest = &types.Frame{
		Image:  img,
		Width:  s.opts.Width,
		Height: s.opts.Height,
		Stride: stride,
	}
	s.mu.Unlock()
}
