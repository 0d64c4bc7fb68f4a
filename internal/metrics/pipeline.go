// Package metrics exposes Prometheus instrumentation for the fusion
// pipeline. All counters live on a private registry so tests can create
// isolated instances without collisions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Trigger anomaly reasons used as label values.
const (
	AnomalyEndWithoutStart = "end_without_start"
	AnomalyDoubleStart     = "double_start"
	AnomalyBufferFull      = "buffer_full"
)

// Pipeline holds all pipeline-level metrics. A nil *Pipeline is accepted
// by every component; callers guard their own increments.
type Pipeline struct {
	registry *prometheus.Registry

	FramesCaptured        prometheus.Counter
	FramesEvicted         prometheus.Counter
	TriggerPairsCompleted prometheus.Counter
	TriggerAnomalies      *prometheus.CounterVec
	EventsReceived        prometheus.Counter
	EventsAttributed      prometheus.Counter
	EventsDiscarded       prometheus.Counter
	SamplesEmitted        prometheus.Counter
	SamplesDropped        prometheus.Counter
	PoolHits              prometheus.Counter
	PoolMisses            prometheus.Counter
}

// NewPipeline creates and registers the pipeline metric set.
func NewPipeline() *Pipeline {
	p := &Pipeline{
		registry: prometheus.NewRegistry(),
		FramesCaptured: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evfuse_frames_captured_total",
			Help: "RGB frames pulled from the frame source",
		}),
		FramesEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evfuse_frames_evicted_total",
			Help: "Frames dropped from the bounded frame queue under backpressure",
		}),
		TriggerPairsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evfuse_trigger_pairs_completed_total",
			Help: "Trigger pairs enqueued for synchronization",
		}),
		TriggerAnomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evfuse_trigger_anomalies_total",
			Help: "Malformed trigger pulse sequences by reason",
		}, []string{"reason"}),
		EventsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evfuse_events_received_total",
			Help: "DVS events appended to the accumulator",
		}),
		EventsAttributed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evfuse_events_attributed_total",
			Help: "Events attributed to a synchronized sample",
		}),
		EventsDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evfuse_events_discarded_total",
			Help: "Stale events pruned without attribution",
		}),
		SamplesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evfuse_samples_emitted_total",
			Help: "Synchronized samples delivered to the dispatch queue",
		}),
		SamplesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evfuse_samples_dropped_total",
			Help: "Synchronized samples dropped because the dispatch queue was full",
		}),
		PoolHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evfuse_event_pool_hits_total",
			Help: "Event buffer acquisitions served from the pool",
		}),
		PoolMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evfuse_event_pool_misses_total",
			Help: "Event buffer acquisitions that allocated a new buffer",
		}),
	}

	p.registry.MustRegister(
		p.FramesCaptured, p.FramesEvicted,
		p.TriggerPairsCompleted, p.TriggerAnomalies,
		p.EventsReceived, p.EventsAttributed, p.EventsDiscarded,
		p.SamplesEmitted, p.SamplesDropped,
		p.PoolHits, p.PoolMisses,
	)

	return p
}

// RegisterDepthGauge exposes a queue depth through a GaugeFunc so the
// value is sampled at scrape time instead of being pushed.
func (p *Pipeline) RegisterDepthGauge(queue string, depth func() float64) {
	p.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "evfuse_queue_depth",
		Help:        "Current depth of a pipeline queue",
		ConstLabels: prometheus.Labels{"queue": queue},
	}, depth))
}

// Registry returns the underlying registry.
func (p *Pipeline) Registry() *prometheus.Registry {
	return p.registry
}

// Handler returns an HTTP handler serving the metrics in Prometheus
// exposition format.
func (p *Pipeline) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
