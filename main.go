// ABOUTME: Entry point for the livethru duplex engine
// ABOUTME: Parses CLI flags and runs an engine session
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/livethru/livethru-go/internal/app"
	"github.com/livethru/livethru-go/internal/config"
	"github.com/livethru/livethru-go/internal/ui"
	"github.com/livethru/livethru-go/internal/version"
)

var (
	configPath = flag.String("config", "", "Config file path (default: livethru.yaml in cwd)")
	playFile   = flag.String("play", "", "Audio file to schedule for playback on start")
	logFile    = flag.String("log-file", "", "Log file path (default from config)")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	streamLogs = flag.Bool("stream-logs", false, "Alias for -no-tui")
)

func main() {
	flag.Parse()

	useTUI := !(*noTUI || *streamLogs)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	logPath := cfg.Log.File
	if *logFile != "" {
		logPath = *logFile
	}

	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		slog.Error("error opening log file", "err", err)
		os.Exit(1)
	}
	defer func() { _ = f.Close() }()

	var logOut io.Writer = f
	if !useTUI {
		// Streaming logs mode: log to both stdout and file
		logOut = io.MultiWriter(os.Stdout, f)
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	logger.Info("starting",
		"product", version.Product,
		"version", version.Version,
		"backend", cfg.Audio.Backend)

	session, err := app.New(cfg, *playFile, logger)
	if err != nil {
		logger.Error("session setup failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = session.Close() }()

	var (
		tuiProg *tea.Program
		control *ui.Control
	)
	if useTUI {
		control = ui.NewControl()
		tuiProg, err = ui.Run(control)
		if err != nil {
			logger.Error("failed to start TUI", "err", err)
			os.Exit(1)
		}
		go func() { _, _ = tuiProg.Run() }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := session.Run(ctx, tuiProg, control); err != nil {
		logger.Error("session failed", "err", err)
		os.Exit(1)
	}

	if tuiProg != nil {
		tuiProg.Quit()
	}
	logger.Info("stopped")
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
