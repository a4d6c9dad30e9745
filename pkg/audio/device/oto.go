// ABOUTME: Oto-based render-only stream backend
// ABOUTME: Adapts oto's pull reader to the callback-driven OutputStream contract
package device

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
	"github.com/livethru/livethru-go/pkg/audio"
)

// OtoOutput is an OutputStream on the oto playback library. Oto exposes no
// capture and no hardware timestamps, so this backend suits render-only
// setups; StartAt is unsupported. The sample clock counts frames pulled by
// the player from its configured epoch.
type OtoOutput struct {
	cb      RenderFunc
	format  audio.Format
	period  int
	safety  int
	epoch   int64
	clock   atomic.Int64
	running atomic.Bool

	otoCtx  *oto.Context
	player  *oto.Player
	scratch []int32
}

// NewOtoOutput creates the backend. The oto context is created on the first
// Start; oto allows only one context per process.
func NewOtoOutput(format audio.Format, periodFrames, safetyOffsetFrames int, epoch int64) *OtoOutput {
	return &OtoOutput{
		format: format,
		period: periodFrames,
		safety: safetyOffsetFrames,
		epoch:  epoch,
	}
}

func (d *OtoOutput) SetRenderCallback(cb RenderFunc) { d.cb = cb }

func (d *OtoOutput) Start() error {
	if d.running.Load() {
		return nil
	}

	if d.otoCtx == nil {
		op := &oto.NewContextOptions{
			SampleRate:   d.format.SampleRate,
			ChannelCount: d.format.Channels,
			Format:       oto.FormatSignedInt16LE,
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			return fmt.Errorf("oto: context init: %w", err)
		}
		<-ready
		d.otoCtx = ctx
		d.scratch = make([]int32, d.period*d.format.Channels)
	}

	d.clock.Store(d.epoch)
	d.running.Store(true)
	d.player = d.otoCtx.NewPlayer(&otoPullReader{out: d})
	d.player.Play()
	return nil
}

// StartAt cannot be honored: oto has no timestamped start.
func (d *OtoOutput) StartAt(sampleTime int64) error {
	return ErrStartAtUnsupported
}

func (d *OtoOutput) Stop() error {
	if !d.running.Load() {
		return nil
	}
	d.running.Store(false)
	if d.player != nil {
		if err := d.player.Close(); err != nil {
			return fmt.Errorf("oto: player close: %w", err)
		}
		d.player = nil
	}
	return nil
}

func (d *OtoOutput) Running() bool           { return d.running.Load() }
func (d *OtoOutput) Format() audio.Format    { return d.format }
func (d *OtoOutput) PeriodFrames() int       { return d.period }
func (d *OtoOutput) SafetyOffsetFrames() int { return d.safety }

// otoPullReader feeds the oto player by pulling whole periods through the
// render callback, mirroring a hardware pull model.
type otoPullReader struct {
	out *OtoOutput
}

func (r *otoPullReader) Read(p []byte) (int, error) {
	d := r.out
	channels := d.format.Channels
	bytesPerFrame := channels * 2
	frames := len(p) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}

	written := 0
	for done := 0; done < frames; {
		chunk := frames - done
		if chunk > d.period {
			chunk = d.period
		}

		if !d.running.Load() || d.cb == nil {
			for i := 0; i < chunk*bytesPerFrame; i++ {
				p[written+i] = 0
			}
		} else {
			t := d.clock.Load()
			d.cb(d.scratch, chunk, t)
			d.clock.Store(t + int64(chunk))
			for i := 0; i < chunk*channels; i++ {
				s16 := audio.SampleToInt16(d.scratch[i])
				binary.LittleEndian.PutUint16(p[written+i*2:], uint16(s16))
			}
		}
		written += chunk * bytesPerFrame
		done += chunk
	}
	return written, nil
}
