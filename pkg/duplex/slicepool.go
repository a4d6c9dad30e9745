// ABOUTME: Fixed-capacity pool of reusable scheduled playback slots
// ABOUTME: Lets the control thread schedule one-shot buffers without real-time allocation
package duplex

import (
	"errors"
	"sync/atomic"
)

// SliceCount is the fixed number of pool slots, and therefore the hard cap
// on simultaneously pending or playing one-shot playback requests.
const SliceCount = 16

// ErrNoFreeSlices is returned by Acquire when every slot is claimed.
// The caller may retry after a completion or drop the request.
var ErrNoFreeSlices = errors.New("no available slices")

// sliceTimeASAP schedules a slice for the next render period.
const sliceTimeASAP = int64(-1)

// Slice is one reusable playback slot. Lifecycle:
// available → claimed (control thread) → armed → playing (render thread)
// → completed → available. Between claim and completion only the render
// thread touches the payload fields; the availability and armed flags are
// the sole cross-thread state.
type Slice struct {
	available atomic.Bool
	armed     atomic.Bool

	// Payload, installed on the control thread before arming.
	samples    []int32
	frameCount int64
	timestamp  int64 // output-stream sample time; sliceTimeASAP = next period
	done       func(*Slice)

	// Render progress, owned by the render thread after arming.
	rendered int64
}

// install replaces the slot's previous payload with a new one. The previous
// buffer is released here, on the control thread, never in a callback.
func (s *Slice) install(samples []int32, frameCount int64, timestamp int64, done func(*Slice)) {
	s.samples = samples
	s.frameCount = frameCount
	s.timestamp = timestamp
	s.done = done
	s.rendered = 0
}

// arm publishes the installed payload to the render thread.
func (s *Slice) arm() {
	s.armed.Store(true)
}

// Complete marks the slice finished and returns it to the pool. The platform
// playback path asserts this exactly once per claim.
func (s *Slice) Complete() {
	s.armed.Store(false)
	if s.done != nil {
		s.done(s)
	}
	s.available.Store(true)
}

// FrameCount returns the installed payload length in frames.
func (s *Slice) FrameCount() int64 {
	return s.frameCount
}

// SlicePool holds SliceCount fixed Slice instances. Instances are never
// deallocated; only their payload buffers are replaced on claim.
type SlicePool struct {
	slices [SliceCount]Slice
}

// NewSlicePool returns a pool with every slot available.
func NewSlicePool() *SlicePool {
	p := &SlicePool{}
	for i := range p.slices {
		p.slices[i].available.Store(true)
	}
	return p
}

// Acquire claims the first available slot. Called only from the control
// thread, so the linear scan itself needs no synchronization; the flag
// transition is atomic so the asynchronous completion path observes it.
func (p *SlicePool) Acquire() (*Slice, error) {
	for i := range p.slices {
		s := &p.slices[i]
		if s.available.Load() {
			s.available.Store(false)
			return s, nil
		}
	}
	return nil, ErrNoFreeSlices
}

// Available returns the number of free slots.
func (p *SlicePool) Available() int {
	n := 0
	for i := range p.slices {
		if p.slices[i].available.Load() {
			n++
		}
	}
	return n
}

// forEachArmed visits every slot currently published to the render thread.
// Called only from the render thread.
func (p *SlicePool) forEachArmed(fn func(*Slice)) {
	for i := range p.slices {
		s := &p.slices[i]
		if s.armed.Load() {
			fn(s)
		}
	}
}

// completeAll completes every armed slice. Used when the player timeline is
// reset on Stop; a completion arriving after Stop returns is tolerated.
func (p *SlicePool) completeAll() {
	for i := range p.slices {
		s := &p.slices[i]
		if s.armed.Load() {
			s.Complete()
		}
	}
}
