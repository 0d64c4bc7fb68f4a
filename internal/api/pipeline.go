package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/evrgb/evfuse/internal/api/models"
)

// registerPipelineRoutes sets up status, control and tuning endpoints.
func (s *Server) registerPipelineRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Pipeline Status",
		Description: "Get current fusion pipeline state and queue depths",
		Tags:        []string{"pipeline"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.StatusResponse, error) {
		meta := s.combo.Metadata()
		return &models.StatusResponse{
			Body: models.StatusData{
				Running:     s.combo.Running(),
				Recording:   s.recorder != nil && s.recorder.IsActive(),
				QueueDepths: s.combo.Depths(),
				Arrangement: meta.Arrangement.String(),
				RGBSerial:   meta.RGB.Serial,
				DVSSerial:   meta.DVS.Serial,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "start-pipeline",
		Method:      http.MethodPost,
		Path:        "/api/pipeline/start",
		Summary:     "Start Pipeline",
		Description: "Start the capture, synchronizer and dispatch threads",
		Tags:        []string{"pipeline"},
		Security:    withAuth(),
		Errors:      []int{401, 409},
	}, func(ctx context.Context, input *struct{}) (*models.PipelineControlResponse, error) {
		if s.combo.Running() {
			return nil, huma.Error409Conflict("pipeline is already running")
		}
		if !s.combo.Start() {
			return nil, huma.Error409Conflict("pipeline failed to start")
		}
		return &models.PipelineControlResponse{
			Body: models.PipelineControlData{Running: true, Message: "pipeline started"},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-pipeline",
		Method:      http.MethodPost,
		Path:        "/api/pipeline/stop",
		Summary:     "Stop Pipeline",
		Description: "Stop all pipeline threads and clear the queues",
		Tags:        []string{"pipeline"},
		Security:    withAuth(),
		Errors:      []int{401, 409},
	}, func(ctx context.Context, input *struct{}) (*models.PipelineControlResponse, error) {
		if !s.combo.Running() {
			return nil, huma.Error409Conflict("pipeline is not running")
		}
		s.combo.Stop()
		return &models.PipelineControlResponse{
			Body: models.PipelineControlData{Running: false, Message: "pipeline stopped"},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-tuning",
		Method:      http.MethodGet,
		Path:        "/api/pipeline/tuning",
		Summary:     "Get Tuning",
		Description: "Get the current queue capacities",
		Tags:        []string{"pipeline"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.TuningResponse, error) {
		return &models.TuningResponse{
			Body: models.TuningData{
				FrameQueueSize:    s.combo.FrameQueue().MaxSize(),
				TriggerBufferSize: s.combo.TriggerBuffer().MaxSize(),
				DispatchQueueSize: s.combo.DispatchQueueCap(),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-tuning",
		Method:      http.MethodPut,
		Path:        "/api/pipeline/tuning",
		Summary:     "Set Tuning",
		Description: "Adjust queue capacities at runtime. Shrinking evicts oldest entries.",
		Tags:        []string{"pipeline"},
		Security:    withAuth(),
		Errors:      []int{401, 422},
	}, func(ctx context.Context, input *struct {
		Body models.TuningData
	}) (*models.TuningResponse, error) {
		if input.Body.FrameQueueSize > 0 {
			s.combo.FrameQueue().SetMaxSize(input.Body.FrameQueueSize)
		}
		if input.Body.TriggerBufferSize > 0 {
			s.combo.TriggerBuffer().SetMaxSize(input.Body.TriggerBufferSize)
		}
		return &models.TuningResponse{
			Body: models.TuningData{
				FrameQueueSize:    s.combo.FrameQueue().MaxSize(),
				TriggerBufferSize: s.combo.TriggerBuffer().MaxSize(),
				DispatchQueueSize: s.combo.DispatchQueueCap(),
			},
		}, nil
	})
}
