// ABOUTME: Main engine session orchestration
// ABOUTME: Wires configuration, device backend, engine, recorders and TUI
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/livethru/livethru-go/internal/config"
	"github.com/livethru/livethru-go/internal/ui"
	"github.com/livethru/livethru-go/pkg/audio"
	"github.com/livethru/livethru-go/pkg/audio/device"
	"github.com/livethru/livethru-go/pkg/audio/record"
	"github.com/livethru/livethru-go/pkg/duplex"
)

// Session owns one configured engine and its device backend for the
// lifetime of the process.
type Session struct {
	id     string
	cfg    *config.Config
	engine *duplex.Engine
	logger *slog.Logger

	// closeBackend releases the device backend; nil for backends with
	// nothing to release.
	closeBackend func() error

	// synthetic streams are pumped by the session itself
	synthIn  *device.SyntheticInput
	synthOut *device.SyntheticOutput

	playSource string
}

// New builds a session from configuration. The engine is created stopped.
func New(cfg *config.Config, playSource string, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		id:         uuid.NewString(),
		cfg:        cfg,
		logger:     logger,
		playSource: playSource,
	}

	in, out, err := s.buildStreams()
	if err != nil {
		return nil, err
	}

	engine, err := duplex.New(duplex.Config{
		Input:          in,
		Output:         out,
		RingMultiplier: cfg.Engine.RingPeriods,
		Logger:         logger,
	})
	if err != nil {
		s.close()
		return nil, err
	}
	s.engine = engine

	if err := s.attachRecorders(); err != nil {
		s.close()
		return nil, err
	}

	logger.Info("session created",
		"session", s.id,
		"backend", cfg.Audio.Backend,
		"format", fmt.Sprintf("%dHz/%dch/%d-bit", cfg.Audio.SampleRate, cfg.Audio.Channels, cfg.Audio.BitDepth))
	return s, nil
}

func (s *Session) buildStreams() (device.InputStream, device.OutputStream, error) {
	format := s.cfg.Format()
	period := s.cfg.Audio.PeriodFrames
	inSafety := s.cfg.Audio.InputSafetyFrames
	outSafety := s.cfg.Audio.OutputSafetyFrames

	switch s.cfg.Audio.Backend {
	case config.BackendMalgo:
		m, err := device.NewMalgo(device.MalgoConfig{
			Format:             format,
			PeriodFrames:       period,
			SafetyOffsetFrames: inSafety,
			LogProc: func(message string) {
				s.logger.Debug("miniaudio", "msg", message)
			},
		})
		if err != nil {
			return nil, nil, err
		}
		s.closeBackend = m.Close
		return m.Input(), m.Output(), nil

	case config.BackendOto:
		// Oto has no capture side; pair it with a silent synthetic input
		// for playback-only sessions.
		s.synthIn = device.NewSyntheticInput(format, period, inSafety, 0)
		return s.synthIn, device.NewOtoOutput(format, period, outSafety, 0), nil

	case config.BackendSynthetic:
		s.synthIn = device.NewSyntheticInput(format, period, inSafety, 0)
		s.synthOut = device.NewSyntheticOutput(format, period, outSafety, 0)
		return s.synthIn, s.synthOut, nil

	default:
		return nil, nil, fmt.Errorf("app: unknown backend %q", s.cfg.Audio.Backend)
	}
}

func (s *Session) attachRecorders() error {
	format := s.cfg.Format()
	targets := []struct {
		path string
		set  func(string, record.FileType, audio.Format) error
	}{
		{s.cfg.Recording.Input, s.engine.SetInputRecordingTarget},
		{s.cfg.Recording.Player, s.engine.SetPlayerRecordingTarget},
		{s.cfg.Recording.Output, s.engine.SetOutputRecordingTarget},
	}
	for _, t := range targets {
		if t.path == "" {
			continue
		}
		if err := t.set(t.path, record.FileTypeWAV, format); err != nil {
			return err
		}
	}
	return nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Engine exposes the underlying engine.
func (s *Session) Engine() *duplex.Engine { return s.engine }

// Toggle starts the engine if stopped and stops it if running.
func (s *Session) Toggle() error {
	if s.engine.IsRunning() {
		s.logger.Info("stopping engine", "session", s.id)
		return s.engine.Stop()
	}
	s.logger.Info("starting engine", "session", s.id)
	return s.engine.Start()
}

// Play schedules the configured source for immediate playback.
func (s *Session) Play() error {
	if s.playSource == "" {
		return errors.New("app: no play source configured")
	}
	return s.engine.Play(s.playSource)
}

// Run starts the engine and blocks until the context is canceled or the
// TUI requests quit. tuiProg may be nil for headless runs.
func (s *Session) Run(ctx context.Context, tuiProg *tea.Program, control *ui.Control) error {
	if err := s.engine.Start(); err != nil {
		return err
	}
	defer func() {
		if err := s.engine.Stop(); err != nil {
			s.logger.Warn("engine stop failed", "err", err)
		}
	}()

	pumpCtx, stopPump := context.WithCancel(ctx)
	defer stopPump()
	if s.synthIn != nil {
		go s.pumpSynthetic(pumpCtx)
	}

	if s.playSource != "" {
		if err := s.Play(); err != nil {
			s.logger.Warn("initial playback failed", "err", err)
		}
	}

	if tuiProg != nil {
		go s.statusLoop(pumpCtx, tuiProg)
	}

	for {
		var (
			toggles <-chan struct{}
			plays   <-chan struct{}
			quit    <-chan struct{}
		)
		if control != nil {
			toggles = control.Toggles
			plays = control.Plays
			quit = control.Quit
		}

		select {
		case <-ctx.Done():
			return nil
		case <-quit:
			s.logger.Info("quit requested from TUI")
			return nil
		case <-toggles:
			if err := s.Toggle(); err != nil {
				s.logger.Warn("toggle failed", "err", err)
			}
		case <-plays:
			if err := s.Play(); err != nil {
				s.logger.Warn("playback failed", "err", err)
			}
		}
	}
}

// Close releases the device backend.
func (s *Session) Close() error {
	return s.close()
}

func (s *Session) close() error {
	if s.closeBackend == nil {
		return nil
	}
	err := s.closeBackend()
	s.closeBackend = nil
	return err
}

// pumpSynthetic drives the synthetic streams in near real time so headless
// and demo sessions behave like a live device pair. With the oto backend
// only the silent input is synthetic; feeding it lets capture begin so the
// render path leaves its pre-capture silence.
func (s *Session) pumpSynthetic(ctx context.Context) {
	period := s.cfg.Audio.PeriodFrames
	interval := time.Duration(period) * time.Second / time.Duration(s.cfg.Audio.SampleRate)
	silence := make([]int32, period*s.cfg.Audio.Channels)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.synthIn.Feed(silence, period)
			if s.synthOut != nil {
				s.synthOut.Render(period)
			}
		}
	}
}

// statusLoop periodically pushes engine state into the TUI.
func (s *Session) statusLoop(ctx context.Context, tuiProg *tea.Program) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	format := s.engine.OutputFormat()
	recording := s.cfg.Recording.Input != "" || s.cfg.Recording.Player != "" || s.cfg.Recording.Output != ""

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			running := s.engine.IsRunning()
			inRunning := s.engine.InputIsRunning()
			outRunning := s.engine.OutputIsRunning()
			free := s.engine.AvailableSlices()
			oldest, newest := s.engine.RingBounds()

			tuiProg.Send(ui.StatusMsg{
				Running:       &running,
				InputRunning:  &inRunning,
				OutputRunning: &outRunning,
				SessionID:     s.id,
				SampleRate:    format.SampleRate,
				Channels:      format.Channels,
				BitDepth:      format.BitDepth,
				LatencyFrames: s.engine.LatencyFrames(),
				RingOldest:    oldest,
				RingNewest:    newest,
				FreeSlices:    &free,
				Recording:     &recording,
				LastSource:    s.playSource,
			})
		}
	}
}
