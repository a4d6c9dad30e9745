// ABOUTME: Duplex stream engine composing ring, latency tracker and slice pool
// ABOUTME: Implements the capture and render callbacks, lifecycle and playback API
package duplex

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/livethru/livethru-go/pkg/audio"
	"github.com/livethru/livethru-go/pkg/audio/decode"
	"github.com/livethru/livethru-go/pkg/audio/device"
	"github.com/livethru/livethru-go/pkg/audio/record"
)

const timeUnset = int64(-1)

// ErrEngineRunning is returned by configuration calls that require the
// engine to be stopped.
var ErrEngineRunning = errors.New("engine is running")

// DecodeFunc turns a source locator into an in-memory buffer matching the
// target format. The default is decode.File.
type DecodeFunc func(source string, target audio.Format) (*audio.Buffer, error)

// Config configures an Engine.
type Config struct {
	Input  device.InputStream
	Output device.OutputStream

	// RingMultiplier sizes the input ring buffer in input periods.
	// Defaults to 20 periods, generous enough that overwrite of unread
	// frames stays rare.
	RingMultiplier int

	// DecodeFile resolves Play/PlayAt sources. Defaults to decode.File.
	DecodeFile DecodeFunc

	Logger *slog.Logger
}

// Engine routes captured input to the output with continuously corrected
// latency while mixing in scheduled one-shot playback buffers.
//
// Two hardware threads drive it: the input stream fires the capture
// callback, the output stream fires the render callback. Neither callback
// blocks, allocates, or panics; every failure inside them degrades to one
// period of silence.
type Engine struct {
	in  device.InputStream
	out device.OutputStream

	ring    *RingBuffer
	tracker *LatencyTracker
	pool    *SlicePool

	firstInputTime  atomic.Int64
	firstOutputTime atomic.Int64

	channels      int
	liveScratch   []int32
	playerScratch []int32

	inputRec  atomic.Pointer[record.Recorder]
	playerRec atomic.Pointer[record.Recorder]
	outputRec atomic.Pointer[record.Recorder]

	decode DecodeFunc
	logger *slog.Logger

	mu sync.Mutex // serializes lifecycle and scheduling on the control thread
}

// New builds an engine over the given streams. The input and output streams
// must share one format; sample-rate conversion and channel mixing are out
// of scope.
func New(cfg Config) (*Engine, error) {
	if cfg.Input == nil || cfg.Output == nil {
		return nil, errors.New("duplex: both input and output streams are required")
	}
	if !cfg.Input.Format().Equal(cfg.Output.Format()) {
		return nil, fmt.Errorf("duplex: stream formats differ: input %+v, output %+v",
			cfg.Input.Format(), cfg.Output.Format())
	}

	mult := cfg.RingMultiplier
	if mult <= 0 {
		mult = 20
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dec := cfg.DecodeFile
	if dec == nil {
		dec = decode.File
	}

	e := &Engine{
		in:       cfg.Input,
		out:      cfg.Output,
		ring:     &RingBuffer{},
		pool:     NewSlicePool(),
		channels: cfg.Output.Format().Channels,
		decode:   dec,
		logger:   logger,
	}

	if err := e.ring.Allocate(cfg.Input.Format(), mult*cfg.Input.PeriodFrames()); err != nil {
		return nil, fmt.Errorf("duplex: %w", err)
	}

	e.tracker = NewLatencyTracker(
		cfg.Input.SafetyOffsetFrames(), cfg.Input.PeriodFrames(),
		cfg.Output.SafetyOffsetFrames(), cfg.Output.PeriodFrames(),
	)

	period := cfg.Output.PeriodFrames()
	e.liveScratch = make([]int32, period*e.channels)
	e.playerScratch = make([]int32, period*e.channels)

	e.firstInputTime.Store(timeUnset)
	e.firstOutputTime.Store(timeUnset)

	e.in.SetCaptureCallback(e.captureCallback)
	e.out.SetRenderCallback(e.renderCallback)

	return e, nil
}

// Start begins both hardware streams and any attached recorders. Calling
// Start on a running engine is a no-op.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.IsRunning() {
		return nil
	}

	e.startRecorders()
	if err := e.in.Start(); err != nil {
		e.stopRecorders()
		return fmt.Errorf("duplex: input start: %w", err)
	}
	if err := e.out.Start(); err != nil {
		_ = e.in.Stop()
		e.stopRecorders()
		return fmt.Errorf("duplex: output start: %w", err)
	}
	return nil
}

// StartAt behaves as Start but programs both streams to begin at a shared
// future hardware timestamp for sample-accurate synchronized starts.
func (e *Engine) StartAt(sampleTime int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.IsRunning() {
		return nil
	}

	e.startRecorders()
	if err := e.in.StartAt(sampleTime); err != nil {
		e.stopRecorders()
		return fmt.Errorf("duplex: input start at %d: %w", sampleTime, err)
	}
	if err := e.out.StartAt(sampleTime); err != nil {
		_ = e.in.Stop()
		e.stopRecorders()
		return fmt.Errorf("duplex: output start at %d: %w", sampleTime, err)
	}
	return nil
}

// Stop halts both streams, output first so nothing renders into a dead
// capture path, completes in-flight slices, and resets the calibration
// markers so the next Start recalibrates from scratch. Stopping a stopped
// engine is a no-op.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.IsRunning() {
		return nil
	}

	outErr := e.out.Stop()
	inErr := e.in.Stop()

	// Reset the player timeline; a slice completion arriving after Stop
	// returns is tolerated by the pool.
	e.pool.completeAll()

	e.stopRecorders()

	e.firstInputTime.Store(timeUnset)
	e.firstOutputTime.Store(timeUnset)
	e.tracker.Reset()

	if outErr != nil {
		return fmt.Errorf("duplex: output stop: %w", outErr)
	}
	if inErr != nil {
		return fmt.Errorf("duplex: input stop: %w", inErr)
	}
	return nil
}

// IsRunning reports whether either hardware stream is running.
func (e *Engine) IsRunning() bool { return e.in.Running() || e.out.Running() }

// InputIsRunning reports the capture stream state.
func (e *Engine) InputIsRunning() bool { return e.in.Running() }

// OutputIsRunning reports the render stream state.
func (e *Engine) OutputIsRunning() bool { return e.out.Running() }

// InputFormat returns the capture stream format.
func (e *Engine) InputFormat() audio.Format { return e.in.Format() }

// PlayerFormat returns the format Play sources are decoded to.
func (e *Engine) PlayerFormat() audio.Format { return e.out.Format() }

// OutputFormat returns the render stream format.
func (e *Engine) OutputFormat() audio.Format { return e.out.Format() }

// LatencyFrames returns the current through-latency estimate in frames.
func (e *Engine) LatencyFrames() int64 { return e.tracker.EstimateFrames() }

// AvailableSlices returns the number of free playback slots.
func (e *Engine) AvailableSlices() int { return e.pool.Available() }

// RingBounds returns the capture ring's valid window.
func (e *Engine) RingBounds() (oldest, newest int64) { return e.ring.TimeBounds() }

// Play decodes the source into the player format and schedules it for
// playback on the next render period. Returns ErrNoFreeSlices when all
// SliceCount slots are pending or playing.
func (e *Engine) Play(source string) error {
	return e.playAt(source, sliceTimeASAP)
}

// PlayAt behaves as Play but schedules playback to begin at the given
// output-stream sample time. A time already in the past plays nothing and
// completes immediately.
func (e *Engine) PlayAt(source string, sampleTime int64) error {
	if sampleTime < 0 {
		sampleTime = sliceTimeASAP
	}
	return e.playAt(source, sampleTime)
}

func (e *Engine) playAt(source string, sampleTime int64) error {
	buf, err := e.decode(source, e.PlayerFormat())
	if err != nil {
		return fmt.Errorf("duplex: decode %q: %w", source, err)
	}
	frameCount := buf.FrameCount()
	if frameCount == 0 {
		return fmt.Errorf("duplex: %q decoded to an empty buffer", source)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.pool.Acquire()
	if err != nil {
		return err
	}
	s.install(buf.Samples, int64(frameCount), sampleTime, e.sliceDone)
	s.arm()
	e.logger.Debug("scheduled playback", "source", source, "frames", frameCount, "sampleTime", sampleTime)
	return nil
}

func (e *Engine) sliceDone(s *Slice) {
	e.logger.Debug("playback slice completed", "frames", s.FrameCount())
}

// SetInputRecordingTarget attaches a passive tee recorder to the capture
// signal. Must be called while the engine is stopped; the recorder runs in
// lockstep with the engine's own Start/Stop.
func (e *Engine) SetInputRecordingTarget(path string, fileType record.FileType, format audio.Format) error {
	return e.setRecorder(&e.inputRec, path, fileType, format)
}

// SetPlayerRecordingTarget attaches a recorder to the scheduled-playback
// contribution of the mix.
func (e *Engine) SetPlayerRecordingTarget(path string, fileType record.FileType, format audio.Format) error {
	return e.setRecorder(&e.playerRec, path, fileType, format)
}

// SetOutputRecordingTarget attaches a recorder to the final output mix.
func (e *Engine) SetOutputRecordingTarget(path string, fileType record.FileType, format audio.Format) error {
	return e.setRecorder(&e.outputRec, path, fileType, format)
}

func (e *Engine) setRecorder(slot *atomic.Pointer[record.Recorder], path string, fileType record.FileType, format audio.Format) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.IsRunning() {
		return ErrEngineRunning
	}
	rec, err := record.NewRecorder(path, fileType, format)
	if err != nil {
		return fmt.Errorf("duplex: recording target: %w", err)
	}
	if old := slot.Swap(rec); old != nil {
		_ = old.Stop()
	}
	return nil
}

func (e *Engine) startRecorders() {
	for _, slot := range []*atomic.Pointer[record.Recorder]{&e.inputRec, &e.playerRec, &e.outputRec} {
		if rec := slot.Load(); rec != nil {
			rec.Start()
		}
	}
}

// stopRecorders finalizes and detaches the recorders; they are one-shot.
func (e *Engine) stopRecorders() {
	for _, slot := range []*atomic.Pointer[record.Recorder]{&e.inputRec, &e.playerRec, &e.outputRec} {
		if rec := slot.Swap(nil); rec != nil {
			if err := rec.Stop(); err != nil {
				e.logger.Warn("recorder stop failed", "err", err)
			}
		}
	}
}

// captureCallback runs on the input hardware thread once per input period.
func (e *Engine) captureCallback(samples []int32, frameCount int, sampleTime int64) {
	e.firstInputTime.CompareAndSwap(timeUnset, sampleTime)

	if rec := e.inputRec.Load(); rec != nil {
		rec.Tap(samples[:frameCount*e.channels])
	}

	if !e.ring.Write(samples, frameCount, sampleTime) {
		// Driver anomaly; the period is dropped, never fatal here.
		e.logger.Debug("ring write failed", "sampleTime", sampleTime, "frames", frameCount)
	}
}

// renderCallback runs on the output hardware thread once per output period.
func (e *Engine) renderCallback(out []int32, frameCount int, sampleTime int64) {
	period := e.out.PeriodFrames()
	for done := 0; done < frameCount; {
		chunk := frameCount - done
		if chunk > period {
			chunk = period
		}
		e.renderPeriod(out[done*e.channels:(done+chunk)*e.channels], chunk, sampleTime+int64(done))
		done += chunk
	}
}

func (e *Engine) renderPeriod(dst []int32, frameCount int, sampleTime int64) {
	zero(dst)

	firstInput := e.firstInputTime.Load()
	if firstInput == timeUnset {
		// Capture has not produced a period yet.
		e.tapOutput(dst)
		return
	}

	if e.firstOutputTime.CompareAndSwap(timeUnset, sampleTime) {
		// First render period after capture began: warm-up correction,
		// one more period of silence.
		e.tracker.CorrectAtWarmUp(firstInput, sampleTime)
		e.tapOutput(dst)
		return
	}

	// Scheduled-playback contribution.
	player := e.playerScratch[:len(dst)]
	zero(player)
	e.renderSlices(player, frameCount, sampleTime)
	if rec := e.playerRec.Load(); rec != nil {
		rec.Tap(player)
	}

	// Live-input contribution: read the input frames contemporaneous with
	// this render period.
	readTime := sampleTime - e.tracker.EstimateFrames()
	live := e.liveScratch[:len(dst)]
	if e.ring.Read(live, frameCount, readTime) {
		for i := range dst {
			dst[i] = audio.Clamp24(int64(player[i]) + int64(live[i]))
		}
	} else {
		// Window miss: silence the live contribution this period and
		// resynchronize against the ring's oldest valid frame.
		copy(dst, player)
		oldest, newest := e.ring.TimeBounds()
		if newest > oldest {
			e.tracker.Resync(sampleTime, oldest)
		}
		e.logger.Debug("ring read failed", "readTime", readTime, "frames", frameCount)
	}

	e.tapOutput(dst)
}

func (e *Engine) tapOutput(dst []int32) {
	if rec := e.outputRec.Load(); rec != nil {
		rec.Tap(dst)
	}
}

// renderSlices mixes every armed slice that overlaps this render period.
func (e *Engine) renderSlices(dst []int32, frameCount int, sampleTime int64) {
	periodEnd := sampleTime + int64(frameCount)
	e.pool.forEachArmed(func(s *Slice) {
		if s.timestamp == sliceTimeASAP {
			s.timestamp = sampleTime
		}
		pos := s.timestamp + s.rendered
		if pos >= periodEnd {
			// Not due yet.
			return
		}
		if pos < sampleTime {
			// Late schedule; the missed frames are dropped.
			s.rendered += sampleTime - pos
			pos = sampleTime
		}
		if s.rendered >= s.frameCount {
			s.Complete()
			return
		}

		n := periodEnd - pos
		if remain := s.frameCount - s.rendered; n > remain {
			n = remain
		}
		dstOff := int(pos-sampleTime) * e.channels
		srcOff := int(s.rendered) * e.channels
		for i := 0; i < int(n)*e.channels; i++ {
			dst[dstOff+i] = audio.Clamp24(int64(dst[dstOff+i]) + int64(s.samples[srcOff+i]))
		}
		s.rendered += n
		if s.rendered >= s.frameCount {
			s.Complete()
		}
	})
}

func zero(buf []int32) {
	for i := range buf {
		buf[i] = 0
	}
}
