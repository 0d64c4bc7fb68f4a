// Package models holds the request and response shapes for the HTTP API.
package models

// HealthData represents the health check payload.
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Health status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

// HealthResponse represents the HTTP response for the health check.
type HealthResponse struct {
	Body HealthData
}

// VersionData represents version and build information.
type VersionData struct {
	Version   string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-08-25" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"456" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24" doc:"Go version used for build"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Build platform"`
}

// VersionResponse represents the HTTP response for version information.
type VersionResponse struct {
	Body VersionData
}

// StatusData is a snapshot of the fusion pipeline.
type StatusData struct {
	Running     bool           `json:"running" example:"true" doc:"Whether the pipeline is running"`
	Recording   bool           `json:"recording" example:"false" doc:"Whether a recording session is active"`
	QueueDepths map[string]int `json:"queue_depths" doc:"Current depth of each pipeline queue"`
	Arrangement string         `json:"arrangement" example:"beam_splitter" doc:"Physical camera arrangement"`
	RGBSerial   string         `json:"rgb_serial,omitempty" example:"40123456" doc:"RGB camera serial"`
	DVSSerial   string         `json:"dvs_serial,omitempty" example:"00051234" doc:"DVS camera serial"`
}

// StatusResponse represents the HTTP response for pipeline status.
type StatusResponse struct {
	Body StatusData
}

// PipelineControlData reports the result of a start or stop request.
type PipelineControlData struct {
	Running bool   `json:"running" example:"true" doc:"Pipeline state after the operation"`
	Message string `json:"message" example:"pipeline started" doc:"Operation result"`
}

// PipelineControlResponse represents the HTTP response for pipeline control.
type PipelineControlResponse struct {
	Body PipelineControlData
}

// RecordingStartRequest describes a new recording session.
type RecordingStartRequest struct {
	Body struct {
		OutputDir string `json:"output_dir" example:"/data/session-001" doc:"Directory for the session files" minLength:"1"`
	}
}

// RecordingStateData reports the recorder state.
type RecordingStateData struct {
	Active    bool   `json:"active" example:"true" doc:"Whether recording is active"`
	OutputDir string `json:"output_dir,omitempty" example:"/data/session-001" doc:"Session output directory"`
	Message   string `json:"message,omitempty" example:"recording started" doc:"Operation result"`
}

// RecordingStateResponse represents the HTTP response for recorder control.
type RecordingStateResponse struct {
	Body RecordingStateData
}

// TuningData mirrors the hot-reloadable pipeline settings.
type TuningData struct {
	FrameQueueSize    int `json:"frame_queue_size" example:"10" doc:"Bounded frame queue capacity"`
	TriggerBufferSize int `json:"trigger_buffer_size" example:"100" doc:"Trigger pair buffer capacity"`
	DispatchQueueSize int `json:"dispatch_queue_size" example:"16" doc:"Dispatch queue capacity"`
}

// TuningResponse represents the HTTP response for pipeline tuning.
type TuningResponse struct {
	Body TuningData
}
