// ABOUTME: Through-latency estimation between the capture and render clocks
// ABOUTME: Static initial estimate, warm-up correction and drift resync
package duplex

import "sync/atomic"

// LatencyTracker keeps the render-side ring reads pointed at the input frame
// that is contemporaneous, in hardware time, with the frame being rendered.
// The estimate is a single scalar offset in frames, written by the render
// thread and read wherever the engine computes a time-shifted read.
type LatencyTracker struct {
	estimate atomic.Int64
	initial  int64
}

// NewLatencyTracker seeds the estimate from the four static hardware terms:
// each side contributes its driver safety offset plus one hardware period.
func NewLatencyTracker(inputSafetyOffset, inputPeriod, outputSafetyOffset, outputPeriod int) *LatencyTracker {
	t := &LatencyTracker{}
	t.initial = int64(inputSafetyOffset) + int64(inputPeriod) + int64(outputSafetyOffset) + int64(outputPeriod)
	t.estimate.Store(t.initial)
	return t
}

// EstimateFrames returns the current through-latency estimate in frames.
func (t *LatencyTracker) EstimateFrames() int64 {
	return t.estimate.Load()
}

// CorrectAtWarmUp folds the measured start delta between the two streams into
// the estimate. Called once, on the first render period after capture has
// begun. The sign of the delta captures whichever stream started first.
func (t *LatencyTracker) CorrectAtWarmUp(firstInputTime, firstOutputTime int64) {
	delta := firstInputTime - firstOutputTime
	t.estimate.Add(-delta)
}

// Resync recomputes the estimate from the ring's oldest valid frame relative
// to the requesting render time. Called after a failed ring read so playback
// realigns instead of repeatedly missing the window.
func (t *LatencyTracker) Resync(outputTime, oldestValidTime int64) {
	t.estimate.Store(outputTime - oldestValidTime)
}

// Reset restores the static initial estimate. Called when the engine stops so
// the next start recalibrates from scratch.
func (t *LatencyTracker) Reset() {
	t.estimate.Store(t.initial)
}
