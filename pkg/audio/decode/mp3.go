// ABOUTME: MP3 file decoder
// ABOUTME: Decodes MP3 audio to int32 samples
package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/livethru/livethru-go/pkg/audio"
)

// MP3File decodes an MP3 file. go-mp3 always outputs stereo 16-bit
// little-endian PCM at the source sample rate.
func MP3File(path string) (*audio.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mp3: open %s: %w", path, err)
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("mp3: decode %s: %w", path, err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("mp3: read %s: %w", path, err)
	}

	numSamples := len(raw) / 2
	samples := make([]int32, numSamples)
	for i := 0; i < numSamples; i++ {
		sample16 := int16(binary.LittleEndian.Uint16(raw[i*2:]))
		samples[i] = audio.SampleFromInt16(sample16)
	}

	return &audio.Buffer{
		Samples: samples,
		Format: audio.Format{
			SampleRate: dec.SampleRate(),
			Channels:   2,
			BitDepth:   24,
		},
	}, nil
}
