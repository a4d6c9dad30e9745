// ABOUTME: Backend interface compliance tests
// ABOUTME: Verifies each backend satisfies the stream contracts
package device

import (
	"errors"
	"testing"

	"github.com/livethru/livethru-go/pkg/audio"
)

func TestBackendsImplementStreams(t *testing.T) {
	var _ InputStream = (*malgoInput)(nil)
	var _ OutputStream = (*malgoOutput)(nil)
	var _ OutputStream = (*OtoOutput)(nil)
}

func TestOtoStartAtUnsupported(t *testing.T) {
	out := NewOtoOutput(audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 24}, 512, 64, 0)
	if err := out.StartAt(1000); !errors.Is(err, ErrStartAtUnsupported) {
		t.Errorf("expected ErrStartAtUnsupported, got %v", err)
	}
}

func TestNewMalgoRejectsBadConfig(t *testing.T) {
	if _, err := NewMalgo(MalgoConfig{PeriodFrames: 512}); err == nil {
		t.Error("expected error for missing format")
	}
	if _, err := NewMalgo(MalgoConfig{
		Format: audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 24},
	}); err == nil {
		t.Error("expected error for missing period")
	}
}
