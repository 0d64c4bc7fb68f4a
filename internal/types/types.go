// Package types defines the data model shared by the fusion pipeline:
// trigger pulses, DVS events, RGB frames and the synchronized samples
// built from them. All timestamps are microsecond-resolution unsigned
// 64-bit values on the DVS clock; no wraparound handling is attempted.
package types

// Trigger polarities as delivered on the DVS trigger-in line.
const (
	PolarityExposureStart int16 = 0
	PolarityExposureEnd   int16 = 1
)

// TriggerSignal is a single hardware trigger edge. It is produced by the
// trigger-in interrupt callback and immutable once created.
type TriggerSignal struct {
	TriggerID   int16
	Polarity    int16
	TimestampUs uint64
}

// TriggerPair bounds one exposure window. Either edge may be missing when
// the pulse stream was malformed; a pair is only usable for synchronization
// once its end edge is known.
type TriggerPair struct {
	Start *TriggerSignal
	End   *TriggerSignal
}

// Empty reports whether neither edge has been observed.
func (p TriggerPair) Empty() bool {
	return p.Start == nil && p.End == nil
}

// Reset clears both edges.
func (p *TriggerPair) Reset() {
	p.Start = nil
	p.End = nil
}

// Event is a single DVS brightness-change notification.
type Event struct {
	X           uint16
	Y           uint16
	Polarity    int16
	TimestampUs uint64
}

// Frame is a captured RGB image tagged with a monotonically increasing
// capture index. The pixel buffer is camera-native and opaque to the
// pipeline.
type Frame struct {
	Image  []byte
	Width  int
	Height int
	Stride int
	Index  uint32
}

// FrameWithTimestamps is a frame annotated with its exposure window once
// it has been matched against a trigger pair.
type FrameWithTimestamps struct {
	Frame
	ExposureStartUs uint64
	ExposureEndUs   uint64
}
