// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program for the engine status UI
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Control holds channels carrying keyboard commands out of the TUI
type Control struct {
	Toggles chan struct{}
	Plays   chan struct{}
	Quit    chan struct{}
}

// NewControl creates a new control handler
func NewControl() *Control {
	return &Control{
		Toggles: make(chan struct{}, 10),
		Plays:   make(chan struct{}, 10),
		Quit:    make(chan struct{}, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(control *Control) Model {
	return Model{
		freeSlices: 16,
		control:    control,
	}
}

// Run starts the TUI
func Run(control *Control) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(control), tea.WithAltScreen())
	return p, nil
}
