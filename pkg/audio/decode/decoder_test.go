// ABOUTME: Tests for the file decoder entry point
// ABOUTME: Covers routing, channel conversion and format conformance
package decode

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/livethru/livethru-go/pkg/audio"
)

var target = audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 24}

// writeWAV writes a 16-bit WAV test fixture.
func writeWAV(t *testing.T, path string, sampleRate, channels int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	err = enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestFileUnsupportedExtension(t *testing.T) {
	_, err := File("track.aiff", target)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestFileWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.wav")
	writeWAV(t, path, 48000, 2, []int{100, -100, 200, -200})

	buf, err := File(path, target)
	if err != nil {
		t.Fatal(err)
	}
	if buf.FrameCount() != 2 {
		t.Fatalf("expected 2 frames, got %d", buf.FrameCount())
	}
	// 16-bit source scaled into the 24-bit range
	if want := audio.SampleFromInt16(100); buf.Samples[0] != want {
		t.Errorf("expected %d, got %d", want, buf.Samples[0])
	}
	if !buf.Format.Equal(target) {
		t.Errorf("buffer format %+v does not match target", buf.Format)
	}
}

func TestFileSampleRateMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.wav")
	writeWAV(t, path, 44100, 2, []int{1, 2})

	_, err := File(path, target)
	if !errors.Is(err, ErrSampleRateMismatch) {
		t.Errorf("expected ErrSampleRateMismatch, got %v", err)
	}
}

func TestFileMonoToStereo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.wav")
	writeWAV(t, path, 48000, 1, []int{100, 200})

	buf, err := File(path, target)
	if err != nil {
		t.Fatal(err)
	}
	if buf.FrameCount() != 2 {
		t.Fatalf("expected 2 frames, got %d", buf.FrameCount())
	}
	if buf.Samples[0] != buf.Samples[1] || buf.Samples[2] != buf.Samples[3] {
		t.Error("mono source not duplicated across channels")
	}
}

func TestConformStereoToMono(t *testing.T) {
	src := &audio.Buffer{
		Samples: []int32{100, 300, -100, -300},
		Format:  audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 24},
	}
	mono := audio.Format{SampleRate: 48000, Channels: 1, BitDepth: 24}

	buf, err := Conform(src, mono)
	if err != nil {
		t.Fatal(err)
	}
	if len(buf.Samples) != 2 || buf.Samples[0] != 200 || buf.Samples[1] != -200 {
		t.Errorf("expected averaged [200 -200], got %v", buf.Samples)
	}
}

func TestConformRejectsUnsupportedLayout(t *testing.T) {
	src := &audio.Buffer{
		Samples: make([]int32, 6),
		Format:  audio.Format{SampleRate: 48000, Channels: 6, BitDepth: 24},
	}
	if _, err := Conform(src, target); err == nil {
		t.Error("expected error for 6-to-2 channel conversion")
	}
}
