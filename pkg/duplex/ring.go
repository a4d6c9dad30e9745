// ABOUTME: Lock-free time-addressed ring buffer
// ABOUTME: Bridges the capture callback thread and the render callback thread
package duplex

import (
	"errors"
	"sync/atomic"

	"github.com/livethru/livethru-go/pkg/audio"
)

// RingBuffer is a single-producer single-consumer circular store of audio
// frames addressed by hardware sample time. The producer is the capture
// callback; the consumer is the render callback. The only state shared
// between the two threads is the valid-window bounds, kept in atomics so
// neither side ever takes a lock or allocates.
//
// The valid window is [oldest, newest). Writes extend the window forward,
// overwriting the oldest frames once capacity is exceeded. Reads that touch
// any frame outside the window fail; the caller is expected to emit silence.
type RingBuffer struct {
	samples   []int32
	capFrames int64
	channels  int
	format    audio.Format

	// Window bounds in frame time. The writer publishes oldest before
	// touching sample storage and newest after, so a reader that
	// validates against oldest both before and after copying can never
	// return frames that were concurrently overwritten.
	oldest atomic.Int64
	newest atomic.Int64

	primed bool // writer-local: first write seeds the window
}

// Allocate sizes the buffer for capacityFrames frames of the given format.
// It must be called before any Write or Read. It reports failure instead of
// panicking so setup errors stay on the control thread.
func (rb *RingBuffer) Allocate(format audio.Format, capacityFrames int) error {
	if format.Channels <= 0 || format.SampleRate <= 0 {
		return errors.New("ring buffer: invalid format")
	}
	if capacityFrames <= 0 {
		return errors.New("ring buffer: capacity must be positive")
	}
	total := capacityFrames * format.Channels
	if total/format.Channels != capacityFrames {
		return errors.New("ring buffer: capacity overflow")
	}
	rb.samples = make([]int32, total)
	rb.capFrames = int64(capacityFrames)
	rb.channels = format.Channels
	rb.format = format
	rb.primed = false
	rb.oldest.Store(0)
	rb.newest.Store(0)
	return nil
}

// Format returns the format the buffer was allocated with.
func (rb *RingBuffer) Format() audio.Format {
	return rb.format
}

// CapacityFrames returns the allocated capacity in frames.
func (rb *RingBuffer) CapacityFrames() int {
	return int(rb.capFrames)
}

// Write appends frameCount frames from buf at the given hardware start time.
// A start time earlier than the newest written frame is a driver anomaly and
// the write fails harmlessly. A gap after the newest frame is zero-filled so
// the window stays contiguous. Once capacity is exceeded the oldest frames
// are overwritten and the window's oldest bound advances.
//
// Called only from the producer thread. No locks, no allocation.
func (rb *RingBuffer) Write(buf []int32, frameCount int, startTime int64) bool {
	if rb.samples == nil || frameCount <= 0 || int64(frameCount) > rb.capFrames {
		return false
	}
	if len(buf) < frameCount*rb.channels {
		return false
	}

	newest := rb.newest.Load()
	if rb.primed && startTime < newest {
		// Driver went backwards; drop the period rather than corrupt
		// the window.
		return false
	}

	end := startTime + int64(frameCount)
	wasPrimed := rb.primed

	// Advance the oldest bound first so the reader stops considering
	// frames we are about to overwrite.
	newOldest := end - rb.capFrames
	if !wasPrimed {
		rb.oldest.Store(startTime)
		rb.primed = true
	} else if newOldest > rb.oldest.Load() {
		rb.oldest.Store(newOldest)
	}

	// Zero any gap between the previous newest frame and this write so a
	// read across the gap returns silence, not stale frames.
	if wasPrimed && startTime > newest {
		rb.zeroRange(newest, startTime)
	}

	rb.copyIn(buf, frameCount, startTime)
	rb.newest.Store(end)
	return true
}

// Read copies frameCount frames beginning at startTime into dest. It fails
// if any portion of [startTime, startTime+frameCount) lies outside the valid
// window, including when a concurrent write overwrote the range mid-copy.
// On failure dest contents are undefined; the caller silences its period.
//
// Called only from the consumer thread. No locks, no allocation.
func (rb *RingBuffer) Read(dest []int32, frameCount int, startTime int64) bool {
	if rb.samples == nil || frameCount <= 0 || int64(frameCount) > rb.capFrames {
		return false
	}
	if len(dest) < frameCount*rb.channels {
		return false
	}

	end := startTime + int64(frameCount)
	if startTime < rb.oldest.Load() || end > rb.newest.Load() {
		return false
	}

	rb.copyOut(dest, frameCount, startTime)

	// The writer may have lapped us while copying; re-validate so stale
	// frames are never reported as valid.
	if startTime < rb.oldest.Load() {
		return false
	}
	return true
}

// TimeBounds returns a snapshot of the valid window [oldest, newest).
// Used by the latency tracker to resynchronize after a failed read.
func (rb *RingBuffer) TimeBounds() (oldest, newest int64) {
	// Load newest first: if a write lands between the two loads the
	// window only shrinks, never reports frames that were never written.
	newest = rb.newest.Load()
	oldest = rb.oldest.Load()
	return oldest, newest
}

func (rb *RingBuffer) copyIn(buf []int32, frameCount int, startTime int64) {
	offset := rb.frameIndex(startTime)
	first := rb.capFrames - offset
	if int64(frameCount) <= first {
		copy(rb.samples[offset*int64(rb.channels):], buf[:frameCount*rb.channels])
		return
	}
	split := first * int64(rb.channels)
	copy(rb.samples[offset*int64(rb.channels):], buf[:split])
	copy(rb.samples, buf[split:frameCount*rb.channels])
}

func (rb *RingBuffer) copyOut(dest []int32, frameCount int, startTime int64) {
	offset := rb.frameIndex(startTime)
	first := rb.capFrames - offset
	if int64(frameCount) <= first {
		copy(dest, rb.samples[offset*int64(rb.channels):(offset+int64(frameCount))*int64(rb.channels)])
		return
	}
	split := first * int64(rb.channels)
	copy(dest[:split], rb.samples[offset*int64(rb.channels):])
	copy(dest[split:frameCount*rb.channels], rb.samples)
}

func (rb *RingBuffer) zeroRange(from, to int64) {
	if to-from > rb.capFrames {
		from = to - rb.capFrames
	}
	for t := from; t < to; t++ {
		base := rb.frameIndex(t) * int64(rb.channels)
		for c := 0; c < rb.channels; c++ {
			rb.samples[base+int64(c)] = 0
		}
	}
}

func (rb *RingBuffer) frameIndex(t int64) int64 {
	idx := t % rb.capFrames
	if idx < 0 {
		idx += rb.capFrames
	}
	return idx
}
