// ABOUTME: Raw PCM file decoder
// ABOUTME: Decodes headerless 16-bit and 24-bit PCM to int32 samples
package decode

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/livethru/livethru-go/pkg/audio"
)

// PCMFile decodes a headerless PCM file. With no header to describe the
// stream, the target format supplies the sample rate, channel count and bit
// depth; 16-bit and 24-bit little-endian are supported.
func PCMFile(path string, target audio.Format) (*audio.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pcm: read %s: %w", path, err)
	}

	var samples []int32
	switch target.BitDepth {
	case 16:
		numSamples := len(data) / 2
		samples = make([]int32, numSamples)
		for i := 0; i < numSamples; i++ {
			sample16 := int16(binary.LittleEndian.Uint16(data[i*2:]))
			samples[i] = audio.SampleFromInt16(sample16)
		}
	case 24:
		numSamples := len(data) / 3
		samples = make([]int32, numSamples)
		for i := 0; i < numSamples; i++ {
			b := [3]byte{data[i*3], data[i*3+1], data[i*3+2]}
			samples[i] = audio.SampleFrom24Bit(b)
		}
	default:
		return nil, fmt.Errorf("pcm: unsupported bit depth %d (supported: 16, 24)", target.BitDepth)
	}

	return &audio.Buffer{
		Samples: samples,
		Format: audio.Format{
			SampleRate: target.SampleRate,
			Channels:   target.Channels,
			BitDepth:   24,
		},
	}, nil
}
