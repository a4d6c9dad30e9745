// ABOUTME: Hardware stream interface definitions
// ABOUTME: Common callback-driven contract for capture and render backends
package device

import (
	"errors"

	"github.com/livethru/livethru-go/pkg/audio"
)

// ErrStartAtUnsupported is returned by backends that cannot program a
// future hardware start time.
var ErrStartAtUnsupported = errors.New("timestamped start not supported by this backend")

// CaptureFunc is invoked once per hardware period on the input stream's
// thread. samples holds frameCount interleaved frames captured at
// sampleTime on the input stream's clock. The callback must not block,
// allocate, or panic.
type CaptureFunc func(samples []int32, frameCount int, sampleTime int64)

// RenderFunc is invoked once per hardware period on the output stream's
// thread. The callback fills out with frameCount interleaved frames to be
// played at sampleTime on the output stream's clock. Same real-time rules
// as CaptureFunc.
type RenderFunc func(out []int32, frameCount int, sampleTime int64)

// Stream is the control surface shared by both directions. Sample times are
// monotonically increasing frame counters private to each stream's clock;
// they are not comparable across streams without a calibrated offset.
type Stream interface {
	// Start begins the hardware stream. Idempotent.
	Start() error

	// StartAt begins the stream so that its clock reads sampleTime at the
	// first callback, allowing two streams to be started against a shared
	// future timestamp. Backends without hardware support return
	// ErrStartAtUnsupported or document best-effort behavior.
	StartAt(sampleTime int64) error

	// Stop halts the stream. Callbacks in flight may still complete.
	Stop() error

	Running() bool
	Format() audio.Format

	// PeriodFrames is the fixed frame count delivered per callback.
	PeriodFrames() int

	// SafetyOffsetFrames is the additional latency margin the driver
	// reserves beyond the nominal buffer latency.
	SafetyOffsetFrames() int
}

// InputStream is a capture-capable hardware stream.
type InputStream interface {
	Stream
	SetCaptureCallback(CaptureFunc)
}

// OutputStream is a render-capable hardware stream.
type OutputStream interface {
	Stream
	SetRenderCallback(RenderFunc)
}
