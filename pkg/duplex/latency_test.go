// ABOUTME: Tests for the latency tracker
// ABOUTME: Verifies static estimate, warm-up delta and drift resync
package duplex

import "testing"

func TestLatencyInitialEstimate(t *testing.T) {
	// inputSafety + inputPeriod + outputSafety + outputPeriod
	lt := NewLatencyTracker(64, 512, 32, 256)
	want := int64(64 + 512 + 32 + 256)
	if got := lt.EstimateFrames(); got != want {
		t.Errorf("expected %d, got %d", want, got)
	}

	// Unchanged by repeated reads absent any drift event
	for i := 0; i < 5; i++ {
		if got := lt.EstimateFrames(); got != want {
			t.Errorf("estimate changed on read %d: %d", i, got)
		}
	}
}

func TestLatencyWarmUpCorrection(t *testing.T) {
	lt := NewLatencyTracker(64, 512, 64, 512)
	base := lt.EstimateFrames()

	// Input started 100 frames before output: delta subtracted
	lt.CorrectAtWarmUp(1000, 1100)
	if got := lt.EstimateFrames(); got != base+100 {
		t.Errorf("expected %d, got %d", base+100, got)
	}

	lt.Reset()
	// Output started first: delta has opposite sign
	lt.CorrectAtWarmUp(1100, 1000)
	if got := lt.EstimateFrames(); got != base-100 {
		t.Errorf("expected %d, got %d", base-100, got)
	}
}

func TestLatencyResync(t *testing.T) {
	lt := NewLatencyTracker(64, 512, 64, 512)

	// A failed read at output time 5000 with oldest valid frame 3500
	// realigns the estimate to the reachable part of the window.
	lt.Resync(5000, 3500)
	if got := lt.EstimateFrames(); got != 1500 {
		t.Errorf("expected 1500, got %d", got)
	}
}

func TestLatencyReset(t *testing.T) {
	lt := NewLatencyTracker(64, 512, 64, 512)
	initial := lt.EstimateFrames()
	lt.Resync(5000, 3500)
	lt.Reset()
	if got := lt.EstimateFrames(); got != initial {
		t.Errorf("expected %d after reset, got %d", initial, got)
	}
}
