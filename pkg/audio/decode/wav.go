// ABOUTME: WAV file decoder
// ABOUTME: Decodes RIFF/WAVE PCM to int32 samples
package decode

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"

	"github.com/livethru/livethru-go/pkg/audio"
)

// WAVFile decodes a WAV file into its native format. Samples are scaled to
// the internal 24-bit range from whatever the source bit depth is.
func WAVFile(path string) (*audio.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wav: open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav: decode %s: %w", path, err)
	}
	if !dec.WasPCMAccessed() || pcm.Format == nil {
		return nil, fmt.Errorf("wav: %s has no PCM data", path)
	}

	bitDepth := int(dec.BitDepth)
	samples := make([]int32, len(pcm.Data))
	for i, v := range pcm.Data {
		samples[i] = scaleTo24(v, bitDepth)
	}

	return &audio.Buffer{
		Samples: samples,
		Format: audio.Format{
			SampleRate: int(dec.SampleRate),
			Channels:   int(dec.NumChans),
			BitDepth:   24,
		},
	}, nil
}

func scaleTo24(v, bitDepth int) int32 {
	switch bitDepth {
	case 8:
		// WAV 8-bit is unsigned
		return int32(v-128) << 16
	case 16:
		return audio.SampleFromInt16(int16(v))
	case 32:
		return int32(v >> 8)
	default: // 24
		return int32(v)
	}
}
