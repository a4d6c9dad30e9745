// ABOUTME: Miniaudio-backed duplex hardware streams via malgo
// ABOUTME: Wraps capture and playback devices behind the Stream interfaces
package device

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"github.com/livethru/livethru-go/pkg/audio"
)

// MalgoConfig configures the miniaudio duplex pair.
type MalgoConfig struct {
	Format       audio.Format
	PeriodFrames int

	// SafetyOffsetFrames is the driver margin assumed for latency
	// calibration; miniaudio does not expose the device's real margin.
	SafetyOffsetFrames int

	// Backends restricts miniaudio backend selection; nil auto-selects.
	Backends []malgo.Backend

	// LogProc receives miniaudio context log lines; nil discards them.
	LogProc func(message string)
}

// Malgo owns one miniaudio context and a capture/playback device pair on the
// default devices. Devices are released in reverse order of creation.
type Malgo struct {
	ctx    *malgo.AllocatedContext
	input  *malgoInput
	output *malgoOutput
}

// NewMalgo initializes the context and both devices. The returned streams
// are stopped; Close releases everything.
func NewMalgo(cfg MalgoConfig) (*Malgo, error) {
	if cfg.Format.Channels <= 0 || cfg.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("malgo: invalid format %+v", cfg.Format)
	}
	if cfg.PeriodFrames <= 0 {
		return nil, fmt.Errorf("malgo: period must be positive")
	}

	ctx, err := malgo.InitContext(cfg.Backends, malgo.ContextConfig{}, cfg.LogProc)
	if err != nil {
		return nil, fmt.Errorf("malgo: context init: %w", err)
	}

	m := &Malgo{ctx: ctx}

	m.input = &malgoInput{malgoStream: malgoStream{
		format: cfg.Format,
		period: cfg.PeriodFrames,
		safety: cfg.SafetyOffsetFrames,
	}}
	if err := m.input.init(ctx, cfg); err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, err
	}

	m.output = &malgoOutput{malgoStream: malgoStream{
		format: cfg.Format,
		period: cfg.PeriodFrames,
		safety: cfg.SafetyOffsetFrames,
	}}
	if err := m.output.init(ctx, cfg); err != nil {
		m.input.device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return nil, err
	}

	return m, nil
}

// Input returns the capture side.
func (m *Malgo) Input() InputStream { return m.input }

// Output returns the render side.
func (m *Malgo) Output() OutputStream { return m.output }

// Close stops and releases both devices, then the context. Stop before
// dispose, dispose in reverse of creation order.
func (m *Malgo) Close() error {
	_ = m.output.Stop()
	_ = m.input.Stop()
	m.output.device.Uninit()
	m.input.device.Uninit()
	err := m.ctx.Uninit()
	m.ctx.Free()
	return err
}

// malgoStream carries the state shared by both directions. The sample clock
// is a cumulative frame counter seeded by Start or StartAt; miniaudio does
// not surface hardware timestamps, so StartAt is best-effort: the clock
// begins at the requested epoch but the hardware starts immediately.
type malgoStream struct {
	device  *malgo.Device
	format  audio.Format
	period  int
	safety  int
	clock   atomic.Int64
	epoch   int64
	running atomic.Bool
	scratch []int32 // sized one period; callbacks chunk through it
}

func (s *malgoStream) Running() bool           { return s.running.Load() }
func (s *malgoStream) Format() audio.Format    { return s.format }
func (s *malgoStream) PeriodFrames() int       { return s.period }
func (s *malgoStream) SafetyOffsetFrames() int { return s.safety }

func (s *malgoStream) start(at int64) error {
	if s.running.Load() {
		return nil
	}
	s.clock.Store(at)
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("malgo: device start: %w", err)
	}
	s.running.Store(true)
	return nil
}

func (s *malgoStream) Stop() error {
	if !s.running.Load() {
		return nil
	}
	s.running.Store(false)
	if err := s.device.Stop(); err != nil {
		return fmt.Errorf("malgo: device stop: %w", err)
	}
	return nil
}

type malgoInput struct {
	malgoStream
	cb CaptureFunc
}

func (d *malgoInput) SetCaptureCallback(cb CaptureFunc) { d.cb = cb }

func (d *malgoInput) Start() error                 { return d.start(d.epoch) }
func (d *malgoInput) StartAt(sampleTime int64) error { return d.start(sampleTime) }

func (d *malgoInput) init(ctx *malgo.AllocatedContext, cfg MalgoConfig) error {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(cfg.Format.Channels)
	deviceConfig.SampleRate = uint32(cfg.Format.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.PeriodFrames)
	deviceConfig.Alsa.NoMMap = 1

	d.scratch = make([]int32, cfg.PeriodFrames*cfg.Format.Channels)

	onRecvFrames := func(pOutput, pInput []byte, frameCount uint32) {
		if !d.running.Load() || d.cb == nil {
			return
		}
		d.consume(pInput, int(frameCount))
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onRecvFrames,
	})
	if err != nil {
		return fmt.Errorf("malgo: capture device init: %w", err)
	}
	d.device = device
	return nil
}

// consume converts S16LE bytes into the scratch buffer one period at a time
// and forwards them to the capture callback. Chunking keeps the scratch
// fixed-size so the callback path never allocates.
func (d *malgoInput) consume(pInput []byte, frameCount int) {
	channels := d.format.Channels
	for done := 0; done < frameCount; {
		chunk := frameCount - done
		if chunk > d.period {
			chunk = d.period
		}
		base := done * channels * 2
		for i := 0; i < chunk*channels; i++ {
			s16 := int16(binary.LittleEndian.Uint16(pInput[base+i*2:]))
			d.scratch[i] = audio.SampleFromInt16(s16)
		}
		t := d.clock.Load()
		d.cb(d.scratch, chunk, t)
		d.clock.Store(t + int64(chunk))
		done += chunk
	}
}

type malgoOutput struct {
	malgoStream
	cb RenderFunc
}

func (d *malgoOutput) SetRenderCallback(cb RenderFunc) { d.cb = cb }

func (d *malgoOutput) Start() error                 { return d.start(d.epoch) }
func (d *malgoOutput) StartAt(sampleTime int64) error { return d.start(sampleTime) }

func (d *malgoOutput) init(ctx *malgo.AllocatedContext, cfg MalgoConfig) error {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(cfg.Format.Channels)
	deviceConfig.SampleRate = uint32(cfg.Format.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.PeriodFrames)
	deviceConfig.Alsa.NoMMap = 1

	d.scratch = make([]int32, cfg.PeriodFrames*cfg.Format.Channels)

	onSendFrames := func(pOutput, pInput []byte, frameCount uint32) {
		if !d.running.Load() || d.cb == nil {
			for i := range pOutput {
				pOutput[i] = 0
			}
			return
		}
		d.produce(pOutput, int(frameCount))
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSendFrames,
	})
	if err != nil {
		return fmt.Errorf("malgo: playback device init: %w", err)
	}
	d.device = device
	return nil
}

func (d *malgoOutput) produce(pOutput []byte, frameCount int) {
	channels := d.format.Channels
	for done := 0; done < frameCount; {
		chunk := frameCount - done
		if chunk > d.period {
			chunk = d.period
		}
		t := d.clock.Load()
		d.cb(d.scratch, chunk, t)
		d.clock.Store(t + int64(chunk))

		base := done * channels * 2
		for i := 0; i < chunk*channels; i++ {
			s16 := audio.SampleToInt16(d.scratch[i])
			binary.LittleEndian.PutUint16(pOutput[base+i*2:], uint16(s16))
		}
		done += chunk
	}
}
