// ABOUTME: FLAC file decoder
// ABOUTME: Decodes FLAC audio frame by frame to int32 samples
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"

	"github.com/livethru/livethru-go/pkg/audio"
)

// FLACFile decodes a FLAC file using mewkiz/flac's frame-level API.
func FLACFile(path string) (*audio.Buffer, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("flac: parse %s: %w", path, err)
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	shift := 24 - int(info.BitsPerSample)

	samples := make([]int32, 0, int(info.NSamples)*channels)
	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("flac: frame in %s: %w", path, err)
		}

		n := len(frame.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			for c := 0; c < channels; c++ {
				s := frame.Subframes[c].Samples[i]
				if shift >= 0 {
					samples = append(samples, s<<shift)
				} else {
					samples = append(samples, s>>(-shift))
				}
			}
		}
	}

	return &audio.Buffer{
		Samples: samples,
		Format: audio.Format{
			SampleRate: int(info.SampleRate),
			Channels:   channels,
			BitDepth:   24,
		},
	}, nil
}
