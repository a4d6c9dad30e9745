// ABOUTME: Ogg Opus file decoder
// ABOUTME: Decodes Opus audio to int32 samples
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"

	opus "gopkg.in/hraban/opus.v2"

	"github.com/livethru/livethru-go/pkg/audio"
)

// opusFrameSize holds 120ms of 48kHz stereo, the largest Opus frame.
const opusFrameSize = 5760 * 2

// OpusFile decodes an Ogg Opus file. Opus decodes at 48kHz; the stream is
// assumed stereo, the common encoding.
func OpusFile(path string) (*audio.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opus: open %s: %w", path, err)
	}
	defer f.Close()

	stream, err := opus.NewStream(f)
	if err != nil {
		return nil, fmt.Errorf("opus: stream %s: %w", path, err)
	}
	defer stream.Close()

	const channels = 2
	var samples []int32
	pcm := make([]int16, opusFrameSize)
	for {
		n, err := stream.Read(pcm)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("opus: read %s: %w", path, err)
		}
		for _, s := range pcm[:n*channels] {
			samples = append(samples, audio.SampleFromInt16(s))
		}
	}

	return &audio.Buffer{
		Samples: samples,
		Format: audio.Format{
			SampleRate: 48000,
			Channels:   channels,
			BitDepth:   24,
		},
	}, nil
}
