// ABOUTME: Ogg Vorbis file decoder
// ABOUTME: Decodes Vorbis audio to int32 samples
package decode

import (
	"fmt"
	"os"

	"github.com/jfreymuth/oggvorbis"

	"github.com/livethru/livethru-go/pkg/audio"
)

// VorbisFile decodes an Ogg Vorbis file. oggvorbis yields normalized
// float32 samples, scaled here to the 24-bit range.
func VorbisFile(path string) (*audio.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vorbis: open %s: %w", path, err)
	}
	defer f.Close()

	data, format, err := oggvorbis.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("vorbis: decode %s: %w", path, err)
	}

	samples := make([]int32, len(data))
	for i, v := range data {
		samples[i] = clampFloat(v)
	}

	return &audio.Buffer{
		Samples: samples,
		Format: audio.Format{
			SampleRate: format.SampleRate,
			Channels:   format.Channels,
			BitDepth:   24,
		},
	}, nil
}
