package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/evrgb/evfuse/internal/combo"
)

// MetadataResponse wraps the session metadata payload.
type MetadataResponse struct {
	Body combo.Metadata
}

// registerMetadataRoutes sets up session metadata endpoints.
func (s *Server) registerMetadataRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-metadata",
		Method:      http.MethodGet,
		Path:        "/api/metadata",
		Summary:     "Session Metadata",
		Description: "Get the camera arrangement, serials and calibration blob",
		Tags:        []string{"metadata"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*MetadataResponse, error) {
		return &MetadataResponse{Body: s.combo.Metadata()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-metadata",
		Method:      http.MethodPut,
		Path:        "/api/metadata",
		Summary:     "Update Metadata",
		Description: "Adopt a new arrangement and calibration blob",
		Tags:        []string{"metadata"},
		Security:    withAuth(),
		Errors:      []int{401, 422},
	}, func(ctx context.Context, input *struct {
		Body combo.Metadata
	}) (*MetadataResponse, error) {
		s.combo.ApplyMetadata(input.Body)
		return &MetadataResponse{Body: s.combo.Metadata()}, nil
	})
}
