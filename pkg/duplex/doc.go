// ABOUTME: Duplex engine package for low-latency live-through audio
// ABOUTME: Provides the ring buffer, latency tracker, slice pool and engine
// Package duplex routes captured audio to an output stream with measured,
// continuously corrected latency while mixing in scheduled one-shot
// playback buffers.
//
// The engine bridges two independently clocked hardware callback threads
// with a lock-free time-addressed ring buffer. A latency tracker keeps the
// render-side reads aligned with the capture clock: it starts from the
// static hardware terms, folds in the measured start delta on warm-up, and
// resynchronizes from the ring bounds whenever a read misses the valid
// window. Playback requests are decoded on the control thread into slots of
// a fixed pool, so nothing allocates inside a callback.
//
// Example:
//
//	engine, err := duplex.New(duplex.Config{Input: in, Output: out})
//	engine.Start()
//	engine.Play("tone.wav")
package duplex
