package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/evrgb/evfuse/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time event stream for synchronized samples, drops, trigger anomalies and device state",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"sample-synced":           events.SampleSyncedEvent{},
		"frame-dropped":           events.FrameDroppedEvent{},
		"trigger-anomaly":         events.TriggerAnomalyEvent{},
		"device-state-changed":    events.DeviceStateChangedEvent{},
		"recording-state-changed": events.RecordingStateChangedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		live := make(chan any, 10)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.SampleSyncedEvent](s.eventBus, live),
			events.SubscribeToChannel[events.FrameDroppedEvent](s.eventBus, live),
			events.SubscribeToChannel[events.TriggerAnomalyEvent](s.eventBus, live),
			events.SubscribeToChannel[events.DeviceStateChangedEvent](s.eventBus, live),
			events.SubscribeToChannel[events.RecordingStateChangedEvent](s.eventBus, live),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Initial hello so clients can confirm the subscription is live.
		if err := send.Data(events.DeviceStateChangedEvent{
			Device:    "sse",
			State:     "connected",
			Timestamp: time.Now().Format(time.RFC3339),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-live:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
