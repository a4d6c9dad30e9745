// ABOUTME: Bubbletea model for the engine status TUI
// ABOUTME: Defines application state and update logic
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the TUI state
type Model struct {
	// Session
	sessionID string

	// Engine
	running       bool
	inputRunning  bool
	outputRunning bool

	// Stream
	sampleRate int
	channels   int
	bitDepth   int

	// Calibration
	latencyFrames int64
	ringOldest    int64
	ringNewest    int64

	// Playback
	freeSlices int
	lastSource string

	// Recording
	recording bool
	dropped   int64

	// Debug
	showDebug bool

	// Dimensions
	width  int
	height int

	control *Control
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderStreamInfo()
	s += m.renderPlayback()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders engine state
func (m Model) renderHeader() string {
	state := "Stopped"
	if m.running {
		state = "Running"
	}

	return fmt.Sprintf(`┌─ Livethru Engine ────────────────────────────────────┐
│ State:   %-44s │
│ Session: %-44s │
├──────────────────────────────────────────────────────┤
`, state, truncate(m.sessionID, 44))
}

// renderStreamInfo renders format and calibration status
func (m Model) renderStreamInfo() string {
	if m.sampleRate == 0 {
		return "│ No stream                                            │\n"
	}

	latencyMs := float64(m.latencyFrames) / float64(m.sampleRate) * 1000.0

	s := fmt.Sprintf("│ Format:  %dHz %s %d-bit%-24s │\n",
		m.sampleRate, channelName(m.channels), m.bitDepth, "")
	s += fmt.Sprintf("│ Latency: %d frames (%.1fms)%-21s │\n",
		m.latencyFrames, latencyMs, "")
	s += fmt.Sprintf("│ Window:  [%d, %d)%-24s │\n",
		m.ringOldest, m.ringNewest, "")

	return s
}

// renderPlayback renders slice pool and recorder status
func (m Model) renderPlayback() string {
	recStatus := "off"
	if m.recording {
		recStatus = fmt.Sprintf("on (%d dropped)", m.dropped)
	}

	sliceBar := renderBar(m.freeSlices, 16, 16)

	return fmt.Sprintf("│                                                      │\n"+
		"│ Slices:  [%s] %d/16 free%-12s │\n"+
		"│ Record:  %-43s │\n",
		sliceBar, m.freeSlices, "", recStatus)
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ s:Start/Stop  p:Play  d:Debug  q:Quit                │
└──────────────────────────────────────────────────────┘
`
}

// renderDebug renders debug information
func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   Input running:  %-34v │
│   Output running: %-34v │
│   Last source:    %-34s │
`, m.inputRunning, m.outputRunning, truncate(m.lastSource, 34))
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.control != nil {
			select {
			case m.control.Quit <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case "s":
		if m.control != nil {
			select {
			case m.control.Toggles <- struct{}{}:
			default:
			}
		}
	case "p":
		if m.control != nil {
			select {
			case m.control.Plays <- struct{}{}:
			default:
			}
		}
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Running != nil {
		m.running = *msg.Running
	}
	if msg.InputRunning != nil {
		m.inputRunning = *msg.InputRunning
	}
	if msg.OutputRunning != nil {
		m.outputRunning = *msg.OutputRunning
	}
	if msg.SessionID != "" {
		m.sessionID = msg.SessionID
	}
	if msg.SampleRate != 0 {
		m.sampleRate = msg.SampleRate
		m.channels = msg.Channels
		m.bitDepth = msg.BitDepth
	}
	if msg.LatencyFrames != 0 {
		m.latencyFrames = msg.LatencyFrames
	}
	if msg.RingNewest != 0 {
		m.ringOldest = msg.RingOldest
		m.ringNewest = msg.RingNewest
	}
	if msg.FreeSlices != nil {
		m.freeSlices = *msg.FreeSlices
	}
	if msg.Recording != nil {
		m.recording = *msg.Recording
	}
	if msg.Dropped != 0 {
		m.dropped = msg.Dropped
	}
	if msg.LastSource != "" {
		m.lastSource = msg.LastSource
	}
}

// StatusMsg updates TUI state
type StatusMsg struct {
	Running       *bool
	InputRunning  *bool
	OutputRunning *bool
	SessionID     string
	SampleRate    int
	Channels      int
	BitDepth      int
	LatencyFrames int64
	RingOldest    int64
	RingNewest    int64
	FreeSlices    *int
	Recording     *bool
	Dropped       int64
	LastSource    string
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	if channels == 1 {
		return "Mono"
	}
	return "Stereo"
}
