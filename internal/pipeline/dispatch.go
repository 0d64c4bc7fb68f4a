package pipeline

import (
	"log/slog"
	"sync"

	"github.com/evrgb/evfuse/internal/eventpool"
	"github.com/evrgb/evfuse/internal/metrics"
	"github.com/evrgb/evfuse/internal/types"
)

// DefaultDispatchQueueSize bounds the dispatch queue when no capacity is
// configured.
const DefaultDispatchQueueSize = 16

// Sample is one synchronized unit of output: a frame with its exposure
// window and the pooled events attributed to it. The event buffer is
// returned to the pool after delivery.
type Sample struct {
	Frame  types.FrameWithTimestamps
	Events *eventpool.Buffer
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	// QueueSize bounds the dispatch queue. Zero means
	// DefaultDispatchQueueSize.
	QueueSize int
	Pool      *eventpool.Pool
	Logger    *slog.Logger
	Metrics   *metrics.Pipeline
}

// Dispatcher is the single consumer thread that serializes delivery of
// synchronized samples to the recorder and the user callback, decoupling
// synchronizer timing from possibly slow consumer code.
type Dispatcher struct {
	ch   chan Sample
	stop chan struct{}
	done chan struct{}
	pool *eventpool.Pool

	mu       sync.RWMutex
	running  bool
	recorder types.Recorder
	callback types.SyncedCallback

	logger  *slog.Logger
	metrics *metrics.Pipeline
}

// NewDispatcher creates a dispatch worker. Start must be called before
// samples are delivered.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	size := opts.QueueSize
	if size <= 0 {
		size = DefaultDispatchQueueSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		ch:      make(chan Sample, size),
		pool:    opts.Pool,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// SetRecorder attaches (or detaches, with nil) the recorder collaborator.
func (d *Dispatcher) SetRecorder(r types.Recorder) {
	d.mu.Lock()
	d.recorder = r
	d.mu.Unlock()
}

// Recorder returns the currently attached recorder, if any.
func (d *Dispatcher) Recorder() types.Recorder {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.recorder
}

// SetSyncedCallback registers the user callback invoked for every
// delivered sample.
func (d *Dispatcher) SetSyncedCallback(cb types.SyncedCallback) {
	d.mu.Lock()
	d.callback = cb
	d.mu.Unlock()
}

// Start launches the worker thread.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		d.logger.Warn("Dispatch worker is already running")
		return
	}
	d.running = true
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	d.mu.Unlock()

	go d.run()
	d.logger.Info("Dispatch worker started")
}

// Stop signals the worker and waits for it to exit. Samples still queued
// are discarded with their event buffers returned to the pool, so
// shutdown never leaks pooled buffers at the cost of dropping undelivered
// samples.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		d.logger.Debug("Dispatch worker is not running")
		return
	}
	d.running = false
	stop := d.stop
	done := d.done
	d.mu.Unlock()

	close(stop)
	<-done
	d.logger.Info("Dispatch worker stopped")
}

// Enqueue hands a sample to the worker. When the queue is full the sample
// is dropped and its event buffer released immediately; a slow consumer
// must never block the synchronizer loop.
func (d *Dispatcher) Enqueue(s Sample) bool {
	select {
	case d.ch <- s:
		return true
	default:
		d.logger.Warn("Dispatch queue full, dropping synchronized sample",
			"frame_index", s.Frame.Index)
		if d.metrics != nil {
			d.metrics.SamplesDropped.Inc()
		}
		d.release(s)
		return false
	}
}

// QueueLen returns the number of undelivered samples.
func (d *Dispatcher) QueueLen() int {
	return len(d.ch)
}

// QueueCap returns the dispatch queue capacity.
func (d *Dispatcher) QueueCap() int {
	return cap(d.ch)
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for {
		select {
		case s := <-d.ch:
			d.deliver(s)
		case <-d.stop:
			// Drain without delivering so pooled buffers are returned.
			for {
				select {
				case s := <-d.ch:
					d.release(s)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(s Sample) {
	d.mu.RLock()
	recorder := d.recorder
	callback := d.callback
	d.mu.RUnlock()

	if recorder != nil && recorder.IsActive() {
		recorder.Record(s.Frame, s.Events.Events)
	}
	if callback != nil {
		callback(s.Frame, s.Events.Events)
	}

	d.release(s)
}

func (d *Dispatcher) release(s Sample) {
	if d.pool != nil {
		d.pool.Release(s.Events)
	}
}
