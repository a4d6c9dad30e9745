// ABOUTME: Tests for session orchestration
// ABOUTME: Exercises wiring and lifecycle on the synthetic backend
package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/livethru/livethru-go/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Audio: config.AudioConfig{
			SampleRate:         48000,
			Channels:           2,
			BitDepth:           24,
			PeriodFrames:       512,
			InputSafetyFrames:  64,
			OutputSafetyFrames: 64,
			Backend:            config.BackendSynthetic,
		},
		Engine: config.EngineConfig{RingPeriods: 20},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewSession(t *testing.T) {
	s, err := New(testConfig(), "", testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if s.ID() == "" {
		t.Error("session has no id")
	}
	if s.Engine() == nil {
		t.Fatal("session has no engine")
	}
	if s.Engine().IsRunning() {
		t.Error("engine running before Run")
	}
}

func TestNewSessionRejectsUnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Audio.Backend = "jack"
	if _, err := New(cfg, "", testLogger()); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestSessionToggle(t *testing.T) {
	s, err := New(testConfig(), "", testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Toggle(); err != nil {
		t.Fatal(err)
	}
	if !s.Engine().IsRunning() {
		t.Error("engine not running after first toggle")
	}
	if err := s.Toggle(); err != nil {
		t.Fatal(err)
	}
	if s.Engine().IsRunning() {
		t.Error("engine still running after second toggle")
	}
}

func TestSessionPlayWithoutSource(t *testing.T) {
	s, err := New(testConfig(), "", testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Play(); err == nil {
		t.Error("expected error with no play source configured")
	}
}

func TestSessionRecordingTargets(t *testing.T) {
	cfg := testConfig()
	cfg.Recording.Output = filepath.Join(t.TempDir(), "mix.wav")

	s, err := New(cfg, "", testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
}

func TestSessionRunStopsOnCancel(t *testing.T) {
	s, err := New(testConfig(), "", testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, nil, nil) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if s.Engine().IsRunning() {
		t.Error("engine still running after Run returned")
	}
}
