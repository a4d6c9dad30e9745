// ABOUTME: File decoder entry point and format conversion
// ABOUTME: Routes by extension and conforms decoded audio to a target format
package decode

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/livethru/livethru-go/pkg/audio"
)

// MaxFrames caps the decoded length of a single playback buffer.
const MaxFrames = math.MaxInt32

var (
	// ErrUnsupportedFormat is returned for file extensions with no decoder.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrSampleRateMismatch is returned when the source sample rate differs
	// from the target; sample rate conversion is out of scope.
	ErrSampleRateMismatch = errors.New("sample rate mismatch")

	// ErrFrameOverflow is returned when a source decodes to more than
	// MaxFrames frames.
	ErrFrameOverflow = errors.New("decoded audio exceeds maximum frame count")
)

// fileFunc decodes a whole file into a buffer in its native format.
type fileFunc func(path string) (*audio.Buffer, error)

var decoders = map[string]fileFunc{
	".wav":  WAVFile,
	".mp3":  MP3File,
	".flac": FLACFile,
	".ogg":  VorbisFile,
	".oga":  VorbisFile,
	".opus": OpusFile,
	".pcm":  nil, // raw PCM needs the target format; handled in File
	".raw":  nil,
}

// File decodes the file at path into an in-memory buffer conforming to the
// target format. Mono sources are duplicated to stereo and stereo averaged
// to mono when the channel counts differ; any sample rate difference is an
// error.
func File(path string, target audio.Format) (*audio.Buffer, error) {
	ext := strings.ToLower(filepath.Ext(path))
	dec, ok := decoders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	var (
		buf *audio.Buffer
		err error
	)
	if dec == nil {
		buf, err = PCMFile(path, target)
	} else {
		buf, err = dec(path)
	}
	if err != nil {
		return nil, err
	}

	return Conform(buf, target)
}

// Conform converts a decoded buffer to the target channel count and checks
// it against the target sample rate and the frame cap.
func Conform(buf *audio.Buffer, target audio.Format) (*audio.Buffer, error) {
	if buf.Format.SampleRate != target.SampleRate {
		return nil, fmt.Errorf("%w: source %d Hz, target %d Hz",
			ErrSampleRateMismatch, buf.Format.SampleRate, target.SampleRate)
	}
	if buf.FrameCount() > MaxFrames {
		return nil, fmt.Errorf("%w: %d frames", ErrFrameOverflow, buf.FrameCount())
	}

	converted, err := convertChannels(buf, target.Channels)
	if err != nil {
		return nil, err
	}
	converted.Format = target
	return converted, nil
}

func convertChannels(buf *audio.Buffer, targetChannels int) (*audio.Buffer, error) {
	src := buf.Format.Channels
	switch {
	case src == targetChannels:
		return buf, nil

	case src == 1 && targetChannels == 2:
		out := make([]int32, len(buf.Samples)*2)
		for i, s := range buf.Samples {
			out[i*2] = s
			out[i*2+1] = s
		}
		return &audio.Buffer{Samples: out, Format: buf.Format}, nil

	case src == 2 && targetChannels == 1:
		frames := len(buf.Samples) / 2
		out := make([]int32, frames)
		for f := 0; f < frames; f++ {
			out[f] = int32((int64(buf.Samples[f*2]) + int64(buf.Samples[f*2+1])) / 2)
		}
		return &audio.Buffer{Samples: out, Format: buf.Format}, nil

	default:
		return nil, fmt.Errorf("cannot convert %d channels to %d", src, targetChannels)
	}
}

// clampFloat converts a normalized float sample to the 24-bit range.
func clampFloat(v float32) int32 {
	return audio.Clamp24(int64(float64(v) * float64(audio.Max24Bit)))
}
