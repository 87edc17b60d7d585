// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and the channels it reports user actions on
package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Controls holds channels for user actions coming from the TUI
type Controls struct {
	Changes chan VolumeChangeMsg
	Quit    chan struct{}

	quitOnce sync.Once
}

// NewControls creates a new control handler
func NewControls() *Controls {
	return &Controls{
		Changes: make(chan VolumeChangeMsg, 10),
		Quit:    make(chan struct{}),
	}
}

// RequestQuit closes the Quit channel; later calls are no-ops
func (c *Controls) RequestQuit() {
	c.quitOnce.Do(func() { close(c.Quit) })
}

// NewModel creates a new TUI model
func NewModel(controls *Controls, title string, volume int) Model {
	return Model{
		title:      title,
		volume:     volume,
		showStatus: true,
		controls:   controls,
	}
}

// Run creates the TUI program; the caller starts it
func Run(controls *Controls, title string, volume int) *tea.Program {
	return tea.NewProgram(NewModel(controls, title, volume), tea.WithAltScreen())
}
