// ABOUTME: Deterministic manually-clocked stream backend
// ABOUTME: Drives capture and render callbacks from test or example code
package device

import (
	"github.com/livethru/livethru-go/pkg/audio"
)

// SyntheticInput is an InputStream whose periods are fired by the caller.
// Sample time starts at the configured epoch and advances by exactly the
// frames fed, making capture fully deterministic.
type SyntheticInput struct {
	cb      CaptureFunc
	format  audio.Format
	period  int
	safety  int
	epoch   int64
	next    int64
	running bool
}

// NewSyntheticInput creates a synthetic capture stream. epoch is the sample
// time of the first period after Start.
func NewSyntheticInput(format audio.Format, periodFrames, safetyOffsetFrames int, epoch int64) *SyntheticInput {
	return &SyntheticInput{
		format: format,
		period: periodFrames,
		safety: safetyOffsetFrames,
		epoch:  epoch,
	}
}

func (d *SyntheticInput) SetCaptureCallback(cb CaptureFunc) { d.cb = cb }

func (d *SyntheticInput) Start() error {
	if d.running {
		return nil
	}
	d.next = d.epoch
	d.running = true
	return nil
}

// StartAt starts the stream with its clock programmed to read sampleTime at
// the first fed period.
func (d *SyntheticInput) StartAt(sampleTime int64) error {
	if d.running {
		return nil
	}
	d.next = sampleTime
	d.running = true
	return nil
}

func (d *SyntheticInput) Stop() error {
	d.running = false
	return nil
}

func (d *SyntheticInput) Running() bool            { return d.running }
func (d *SyntheticInput) Format() audio.Format     { return d.format }
func (d *SyntheticInput) PeriodFrames() int        { return d.period }
func (d *SyntheticInput) SafetyOffsetFrames() int  { return d.safety }

// NextSampleTime returns the sample time the next fed period will carry.
func (d *SyntheticInput) NextSampleTime() int64 { return d.next }

// Feed fires one capture period carrying the given frames. Returns the
// sample time the period carried, or -1 when the stream is stopped.
func (d *SyntheticInput) Feed(samples []int32, frameCount int) int64 {
	if !d.running || d.cb == nil {
		return -1
	}
	t := d.next
	d.cb(samples, frameCount, t)
	d.next += int64(frameCount)
	return t
}

// SyntheticOutput is an OutputStream whose periods are pulled by the caller.
type SyntheticOutput struct {
	cb      RenderFunc
	format  audio.Format
	period  int
	safety  int
	epoch   int64
	next    int64
	running bool
}

// NewSyntheticOutput creates a synthetic render stream. epoch is the sample
// time of the first period after Start.
func NewSyntheticOutput(format audio.Format, periodFrames, safetyOffsetFrames int, epoch int64) *SyntheticOutput {
	return &SyntheticOutput{
		format: format,
		period: periodFrames,
		safety: safetyOffsetFrames,
		epoch:  epoch,
	}
}

func (d *SyntheticOutput) SetRenderCallback(cb RenderFunc) { d.cb = cb }

func (d *SyntheticOutput) Start() error {
	if d.running {
		return nil
	}
	d.next = d.epoch
	d.running = true
	return nil
}

func (d *SyntheticOutput) StartAt(sampleTime int64) error {
	if d.running {
		return nil
	}
	d.next = sampleTime
	d.running = true
	return nil
}

func (d *SyntheticOutput) Stop() error {
	d.running = false
	return nil
}

func (d *SyntheticOutput) Running() bool           { return d.running }
func (d *SyntheticOutput) Format() audio.Format    { return d.format }
func (d *SyntheticOutput) PeriodFrames() int       { return d.period }
func (d *SyntheticOutput) SafetyOffsetFrames() int { return d.safety }

// NextSampleTime returns the sample time the next rendered period will carry.
func (d *SyntheticOutput) NextSampleTime() int64 { return d.next }

// Render pulls one period of frameCount frames through the render callback
// and returns the rendered samples. Returns nil when the stream is stopped.
func (d *SyntheticOutput) Render(frameCount int) []int32 {
	if !d.running || d.cb == nil {
		return nil
	}
	out := make([]int32, frameCount*d.format.Channels)
	d.cb(out, frameCount, d.next)
	d.next += int64(frameCount)
	return out
}
