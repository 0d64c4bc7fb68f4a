package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/evrgb/evfuse/internal/api/models"
	"github.com/evrgb/evfuse/internal/recorder"
)

// registerRecordingRoutes sets up recorder control endpoints.
func (s *Server) registerRecordingRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "start-recording",
		Method:      http.MethodPost,
		Path:        "/api/recording/start",
		Summary:     "Start Recording",
		Description: "Open a recording session. Session metadata is written alongside the sample files.",
		Tags:        []string{"recording"},
		Security:    withAuth(),
		Errors:      []int{401, 409},
	}, func(ctx context.Context, input *models.RecordingStartRequest) (*models.RecordingStateResponse, error) {
		if s.recorder.IsActive() {
			return nil, huma.Error409Conflict("recording is already active")
		}

		ok := s.recorder.Start(recorder.Config{
			OutputDir: input.Body.OutputDir,
			Metadata:  s.combo.Metadata(),
		})
		if !ok {
			return nil, huma.Error409Conflict("failed to start recording")
		}

		s.combo.SetRecorder(s.recorder)

		return &models.RecordingStateResponse{
			Body: models.RecordingStateData{
				Active:    true,
				OutputDir: input.Body.OutputDir,
				Message:   "recording started",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-recording",
		Method:      http.MethodPost,
		Path:        "/api/recording/stop",
		Summary:     "Stop Recording",
		Description: "Close the active recording session and flush its files",
		Tags:        []string{"recording"},
		Security:    withAuth(),
		Errors:      []int{401, 409},
	}, func(ctx context.Context, input *struct{}) (*models.RecordingStateResponse, error) {
		if !s.recorder.IsActive() {
			return nil, huma.Error409Conflict("no recording is active")
		}

		s.recorder.Stop()
		s.combo.SetRecorder(nil)

		return &models.RecordingStateResponse{
			Body: models.RecordingStateData{
				Active:  false,
				Message: "recording stopped",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-recording",
		Method:      http.MethodGet,
		Path:        "/api/recording",
		Summary:     "Recording State",
		Description: "Get the current recorder state",
		Tags:        []string{"recording"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.RecordingStateResponse, error) {
		return &models.RecordingStateResponse{
			Body: models.RecordingStateData{
				Active: s.recorder.IsActive(),
			},
		}, nil
	})
}
