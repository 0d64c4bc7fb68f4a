package events

// Event type constants for kelindar/event.
const (
	TypeSampleSynced uint32 = iota + 1
	TypeFrameDropped
	TypeTriggerAnomaly
	TypeDeviceStateChanged
	TypeRecordingStateChanged
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SampleSyncedEvent is published for every synchronized sample handed to
// the dispatch queue.
type SampleSyncedEvent struct {
	FrameIndex      uint32 `json:"frame_index" example:"42" doc:"Capture index of the matched frame"`
	ExposureStartUs uint64 `json:"exposure_start_us" example:"1000100" doc:"Exposure window start, microseconds"`
	ExposureEndUs   uint64 `json:"exposure_end_us" example:"1010100" doc:"Exposure window end, microseconds"`
	EventCount      int    `json:"event_count" example:"1874" doc:"DVS events attributed to the window"`
	Timestamp       string `json:"timestamp" example:"2025-08-25T10:30:00Z" doc:"Wall-clock emission time"`
}

// Type returns the event type identifier for SampleSyncedEvent.
func (e SampleSyncedEvent) Type() uint32 { return TypeSampleSynced }

// FrameDroppedEvent is published when the bounded frame queue evicts its
// oldest frame under backpressure.
type FrameDroppedEvent struct {
	FrameIndex uint32 `json:"frame_index" example:"41" doc:"Capture index of the evicted frame"`
	QueueDepth int    `json:"queue_depth" example:"10" doc:"Frame queue depth at eviction"`
	Timestamp  string `json:"timestamp" example:"2025-08-25T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for FrameDroppedEvent.
func (e FrameDroppedEvent) Type() uint32 { return TypeFrameDropped }

// TriggerAnomalyEvent is published when the trigger reconciliation state
// machine observes a malformed pulse sequence.
type TriggerAnomalyEvent struct {
	Reason      string `json:"reason" example:"end_without_start" doc:"Anomaly classification"`
	TriggerID   int16  `json:"trigger_id" example:"0" doc:"Hardware trigger line id"`
	TimestampUs uint64 `json:"timestamp_us" example:"1000100" doc:"Pulse timestamp, microseconds"`
	Timestamp   string `json:"timestamp" example:"2025-08-25T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for TriggerAnomalyEvent.
func (e TriggerAnomalyEvent) Type() uint32 { return TypeTriggerAnomaly }

// DeviceStateChangedEvent reports lifecycle transitions of the attached
// sources and the pipeline threads.
type DeviceStateChangedEvent struct {
	Device    string `json:"device" example:"rgb" doc:"Device or thread name"`
	State     string `json:"state" example:"started" doc:"New state: started, stopped, failed"`
	Timestamp string `json:"timestamp" example:"2025-08-25T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceStateChangedEvent.
func (e DeviceStateChangedEvent) Type() uint32 { return TypeDeviceStateChanged }

// RecordingStateChangedEvent reports recorder start/stop transitions.
type RecordingStateChangedEvent struct {
	Active    bool   `json:"active" example:"true" doc:"Whether recording is active"`
	OutputDir string `json:"output_dir" example:"/data/session-001" doc:"Recording output directory"`
	Timestamp string `json:"timestamp" example:"2025-08-25T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for RecordingStateChangedEvent.
func (e RecordingStateChangedEvent) Type() uint32 { return TypeRecordingStateChanged }

// LogEntryEvent carries a log entry for SSE streaming.
type LogEntryEvent struct {
	Timestamp  string         `json:"timestamp" example:"2025-08-25T10:30:00Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"warn" doc:"Log level"`
	Module     string         `json:"module" example:"trigger" doc:"Originating module"`
	Message    string         `json:"message" example:"trigger buffer full" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
