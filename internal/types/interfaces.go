package types

// EventsStreamCallback receives a batch of events from the DVS delivery
// thread. The slice is only valid for the duration of the call; receivers
// must copy before returning.
type EventsStreamCallback func(events []Event)

// TriggerCallback receives a single trigger edge on the DVS delivery thread.
// It must not block.
type TriggerCallback func(trigger TriggerSignal)

// RawFrameCallback receives frames straight off the capture thread, before
// any trigger pairing. There is no exposure timestamp information.
type RawFrameCallback func(frame Frame)

// SyncedCallback receives a synchronized frame and the events that occurred
// during its exposure window. It is invoked from the dispatch worker thread
// and must not block indefinitely. The event slice is pooled and only valid
// for the duration of the call.
type SyncedCallback func(frame FrameWithTimestamps, events []Event)

// FrameSource is the minimal capability set the pipeline needs from an RGB
// camera. GetLatestImage returns false when no new frame is ready.
type FrameSource interface {
	Start() bool
	Stop() bool
	GetLatestImage() (Frame, bool)
}

// EventSource delivers the DVS event stream through registered callbacks,
// identified by opaque ids for later removal.
type EventSource interface {
	AddEventsStreamCallback(cb EventsStreamCallback) uint32
	RemoveEventsStreamCallback(id uint32) bool
}

// TriggerSource delivers trigger-in edges through registered callbacks.
type TriggerSource interface {
	AddTriggerInCallback(cb TriggerCallback) uint32
	RemoveTriggerInCallback(id uint32) bool
}

// Recorder persists synchronized samples. Record is called synchronously
// from the dispatch worker; any internal buffering is the recorder's
// responsibility.
type Recorder interface {
	Record(frame FrameWithTimestamps, events []Event) bool
	IsActive() bool
}
