// Package combo orchestrates one RGB+DVS fusion session: it owns the
// capture thread, the synchronizer loop and the dispatch worker, and
// wires the trigger/event callbacks into the pipeline queues. Start order
// is consumers first, producers last; stop order is the reverse, so the
// shared queues are never torn down under a running producer.
package combo

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/evrgb/evfuse/internal/eventpool"
	"github.com/evrgb/evfuse/internal/events"
	"github.com/evrgb/evfuse/internal/metrics"
	"github.com/evrgb/evfuse/internal/pipeline"
	"github.com/evrgb/evfuse/internal/trigger"
	"github.com/evrgb/evfuse/internal/types"
)

// Pool sizing defaults tuned for sustained streaming.
const (
	DefaultPoolPrewarm  = 8
	DefaultPoolCapacity = 256 * 1024
)

// Options configures a Combo.
type Options struct {
	FrameSource   types.FrameSource
	EventSource   types.EventSource
	TriggerSource types.TriggerSource

	FrameQueueSize    int
	TriggerBufferSize int
	DispatchQueueSize int
	PoolPrewarm       int
	PoolCapacity      int

	RGBSerial   string
	DVSSerial   string
	Arrangement Arrangement

	Logger  *slog.Logger
	Metrics *metrics.Pipeline
	Bus     *events.Bus
}

// Combo binds the two sensor streams into one synchronized session.
type Combo struct {
	opts Options

	triggers    *trigger.Buffer
	frames      *pipeline.FrameQueue
	accumulator *pipeline.EventAccumulator
	pool        *eventpool.Pool
	synced      *pipeline.Synchronizer
	dispatcher  *pipeline.Dispatcher

	mu                sync.Mutex
	started           bool
	calibration       json.RawMessage
	captureStop       chan struct{}
	captureDone       chan struct{}
	eventCallbackID   uint32
	triggerCallbackID uint32
	rawFrameCallback  types.RawFrameCallback

	logger *slog.Logger
	bus    *events.Bus
}

// New assembles a combo from its collaborators. No thread runs until
// Start is called.
func New(opts Options) *Combo {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PoolPrewarm <= 0 {
		opts.PoolPrewarm = DefaultPoolPrewarm
	}
	if opts.PoolCapacity <= 0 {
		opts.PoolCapacity = DefaultPoolCapacity
	}

	c := &Combo{
		opts:   opts,
		logger: logger,
		bus:    opts.Bus,
	}

	c.triggers = trigger.New(trigger.Options{
		MaxSize: opts.TriggerBufferSize,
		Logger:  logger,
		Metrics: opts.Metrics,
		Bus:     opts.Bus,
	})
	c.frames = pipeline.NewFrameQueue(pipeline.FrameQueueOptions{
		MaxSize: opts.FrameQueueSize,
		Logger:  logger,
		Metrics: opts.Metrics,
		Bus:     opts.Bus,
	})
	c.accumulator = pipeline.NewEventAccumulator(opts.Metrics)
	c.pool = eventpool.New(opts.PoolPrewarm, opts.PoolCapacity, opts.Metrics)
	c.dispatcher = pipeline.NewDispatcher(pipeline.DispatcherOptions{
		QueueSize: opts.DispatchQueueSize,
		Pool:      c.pool,
		Logger:    logger,
		Metrics:   opts.Metrics,
	})
	c.synced = pipeline.NewSynchronizer(pipeline.SynchronizerOptions{
		Frames:      c.frames,
		Triggers:    c.triggers,
		Accumulator: c.accumulator,
		Pool:        c.pool,
		Dispatcher:  c.dispatcher,
		Logger:      logger,
		Metrics:     opts.Metrics,
		Bus:         opts.Bus,
	})

	if opts.Metrics != nil {
		opts.Metrics.RegisterDepthGauge("frame_queue", func() float64 { return float64(c.frames.Len()) })
		opts.Metrics.RegisterDepthGauge("trigger_buffer", func() float64 { return float64(c.triggers.Size()) })
		opts.Metrics.RegisterDepthGauge("event_accumulator", func() float64 { return float64(c.accumulator.Len()) })
		opts.Metrics.RegisterDepthGauge("dispatch_queue", func() float64 { return float64(c.dispatcher.QueueLen()) })
	}

	return c
}

// Start brings the session up: dispatch worker and synchronizer first,
// then the DVS callbacks, then the RGB capture thread, so every consumer
// is ready before its producer begins. Returns false when any device
// fails to start; partially started components are left running so the
// caller can Stop.
func (c *Combo) Start() bool {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		c.logger.Warn("Combo already started")
		return false
	}
	c.started = true
	c.mu.Unlock()

	success := true

	c.dispatcher.Start()
	c.synced.Start()

	if c.opts.TriggerSource != nil {
		id := c.opts.TriggerSource.AddTriggerInCallback(func(t types.TriggerSignal) {
			c.triggers.AddTrigger(t)
		})
		c.mu.Lock()
		c.triggerCallbackID = id
		c.mu.Unlock()
	}

	if c.opts.EventSource != nil {
		id := c.opts.EventSource.AddEventsStreamCallback(func(batch []types.Event) {
			c.accumulator.Append(batch)
		})
		c.mu.Lock()
		c.eventCallbackID = id
		c.mu.Unlock()
	}

	if c.opts.FrameSource != nil {
		if !c.opts.FrameSource.Start() {
			c.logger.Warn("RGB frame source start failed")
			c.publishDeviceState("rgb", "failed")
			success = false
		} else {
			c.publishDeviceState("rgb", "started")
			c.startCaptureThread()
		}
	}

	return success
}

// Stop tears the session down in reverse order and clears all buffers.
// Returns false when a device reports a stop failure.
func (c *Combo) Stop() bool {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		c.logger.Debug("Combo is not started")
		return false
	}
	c.started = false
	c.mu.Unlock()

	success := true

	c.synced.Stop()
	c.dispatcher.Stop()
	c.stopCaptureThread()

	c.mu.Lock()
	triggerID, eventID := c.triggerCallbackID, c.eventCallbackID
	c.triggerCallbackID, c.eventCallbackID = 0, 0
	c.mu.Unlock()

	if c.opts.TriggerSource != nil && triggerID != 0 {
		c.opts.TriggerSource.RemoveTriggerInCallback(triggerID)
	}
	if c.opts.EventSource != nil && eventID != 0 {
		c.opts.EventSource.RemoveEventsStreamCallback(eventID)
	}

	if c.opts.FrameSource != nil {
		if !c.opts.FrameSource.Stop() {
			c.logger.Warn("RGB frame source stop failed")
			success = false
		} else {
			c.publishDeviceState("rgb", "stopped")
		}
	}

	c.frames.Clear()
	c.triggers.Clear()
	c.accumulator.Clear()

	if rec := c.dispatcher.Recorder(); rec != nil {
		if stopper, ok := rec.(interface{ Stop() }); ok {
			stopper.Stop()
		}
	}

	return success
}

// Running reports whether the session is started.
func (c *Combo) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// SetRawFrameCallback registers a callback invoked from the capture
// thread for every frame, before any trigger pairing. Intended for
// low-latency preview; it must be fast.
func (c *Combo) SetRawFrameCallback(cb types.RawFrameCallback) {
	c.mu.Lock()
	c.rawFrameCallback = cb
	c.mu.Unlock()
}

// SetSyncedCallback registers the user callback for synchronized samples.
func (c *Combo) SetSyncedCallback(cb types.SyncedCallback) {
	c.dispatcher.SetSyncedCallback(cb)
}

// SetRecorder attaches (or detaches, with nil) the recorder collaborator.
func (c *Combo) SetRecorder(r types.Recorder) {
	c.dispatcher.SetRecorder(r)
}

// Recorder returns the attached recorder, if any.
func (c *Combo) Recorder() types.Recorder {
	return c.dispatcher.Recorder()
}

// TriggerBuffer exposes the trigger buffer for capacity tuning.
func (c *Combo) TriggerBuffer() *trigger.Buffer {
	return c.triggers
}

// FrameQueue exposes the frame queue for capacity tuning.
func (c *Combo) FrameQueue() *pipeline.FrameQueue {
	return c.frames
}

// DispatchQueueCap returns the dispatch queue capacity.
func (c *Combo) DispatchQueueCap() int {
	return c.dispatcher.QueueCap()
}

// Depths returns a snapshot of all queue depths for status reporting.
func (c *Combo) Depths() map[string]int {
	return map[string]int{
		"frame_queue":       c.frames.Len(),
		"trigger_buffer":    c.triggers.Size(),
		"event_accumulator": c.accumulator.Len(),
		"dispatch_queue":    c.dispatcher.QueueLen(),
	}
}

func (c *Combo) startCaptureThread() {
	c.mu.Lock()
	if c.captureStop != nil {
		c.mu.Unlock()
		c.logger.Warn("RGB capture thread is already running")
		return
	}
	c.captureStop = make(chan struct{})
	c.captureDone = make(chan struct{})
	stop, done := c.captureStop, c.captureDone
	c.mu.Unlock()

	go c.captureLoop(stop, done)
	c.logger.Info("RGB capture thread started")
}

func (c *Combo) stopCaptureThread() {
	c.mu.Lock()
	if c.captureStop == nil {
		c.mu.Unlock()
		c.logger.Debug("RGB capture thread is not running")
		return
	}
	stop, done := c.captureStop, c.captureDone
	c.captureStop, c.captureDone = nil, nil
	c.mu.Unlock()

	close(stop)
	<-done
	c.logger.Info("RGB capture thread stopped")
}

// captureLoop pulls frames from the RGB source at its own pace. Frames go
// to the raw preview callback first, then into the bounded queue.
func (c *Combo) captureLoop(stop, done chan struct{}) {
	defer close(done)
	c.logger.Debug("RGB capture loop started")

	for {
		select {
		case <-stop:
			c.logger.Debug("RGB capture loop ended")
			return
		default:
		}

		frame, ok := c.opts.FrameSource.GetLatestImage()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}

		c.mu.Lock()
		rawCb := c.rawFrameCallback
		c.mu.Unlock()
		if rawCb != nil {
			rawCb(frame)
		}

		c.frames.Push(frame)
	}
}

func (c *Combo) publishDeviceState(device, state string) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(events.DeviceStateChangedEvent{
		Device:    device,
		State:     state,
		Timestamp: time.Now().Format(time.RFC3339Nano),
	})
}
