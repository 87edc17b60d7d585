// ABOUTME: Bubbletea model for the video player TUI
// ABOUTME: Holds the current frame and pacing status, handles quit and volume keys
package ui

import (
	"fmt"
	"time"

	"github.com/Resonate-Protocol/termvid/internal/sync"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	statusStyle  = lipgloss.NewStyle().Faint(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Model represents the TUI state
type Model struct {
	// Video
	title       string
	frame       string
	fps         float64
	totalFrames int

	// Pacing
	index     int64
	frameTime time.Duration
	slack     time.Duration
	quality   sync.Quality
	displayed int64
	skipped   int64
	failures  int64

	// Audio
	hasAudio bool
	volume   int
	muted    bool

	showStatus bool
	controls   *Controls

	// Dimensions
	width  int
	height int
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
	case FrameMsg:
		m.frame = msg.Text
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.frame == "" {
		return "Loading " + m.title + "..."
	}

	s := m.frame
	if m.showStatus {
		s += m.renderStatus()
	}
	return s
}

// renderStatus renders the one-line pacing summary under the frame
func (m Model) renderStatus() string {
	total := "?"
	if m.totalFrames > 0 {
		total = fmt.Sprintf("%d", m.totalFrames)
	}

	sched := statusStyle.Render(m.quality.String())
	switch m.quality {
	case sync.QualityDegraded:
		sched = warningStyle.Render(m.quality.String())
	case sync.QualityLost:
		sched = errorStyle.Render(m.quality.String())
	}

	audio := "no audio"
	if m.hasAudio {
		audio = fmt.Sprintf("vol %d%%", m.volume)
		if m.muted {
			audio = "muted"
		}
	}

	line := fmt.Sprintf("frame %d/%s  %.2f fps  %.1fms/frame  slack %+.1fms  shown %d  skipped %d  failed %d  %s",
		m.index, total, m.fps, ms(m.frameTime), ms(m.slack),
		m.displayed, m.skipped, m.failures, audio)

	return statusStyle.Render(line) + "  " + sched + "\n" +
		statusStyle.Render("↑/↓:Volume  m:Mute  s:Status  q:Quit")
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		if m.controls != nil {
			m.controls.RequestQuit()
		}
		return m, tea.Quit
	case "s":
		m.showStatus = !m.showStatus
	case "up":
		m.volume = clampVolume(m.volume + 5)
		m.sendVolume()
	case "down":
		m.volume = clampVolume(m.volume - 5)
		m.sendVolume()
	case "m":
		m.muted = !m.muted
		m.sendVolume()
	}

	return m, nil
}

func (m Model) sendVolume() {
	if m.controls == nil {
		return
	}
	select {
	case m.controls.Changes <- VolumeChangeMsg{Volume: m.volume, Muted: m.muted}:
	default:
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Title != "" {
		m.title = msg.Title
	}
	if msg.FPS != 0 {
		m.fps = msg.FPS
	}
	if msg.TotalFrames != 0 {
		m.totalFrames = msg.TotalFrames
	}
	if msg.HasAudio != nil {
		m.hasAudio = *msg.HasAudio
	}
	if msg.Index != 0 {
		m.index = msg.Index
		m.frameTime = msg.FrameTime
		m.slack = msg.Slack
		m.quality = msg.Quality
		m.displayed = msg.Displayed
		m.skipped = msg.Skipped
		m.failures = msg.Failures
	}
}

// FrameMsg carries a rendered frame
type FrameMsg struct {
	Text string
}

// StatusMsg updates TUI state
type StatusMsg struct {
	Title       string
	FPS         float64
	TotalFrames int
	HasAudio    *bool

	Index     int64
	FrameTime time.Duration
	Slack     time.Duration
	Quality   sync.Quality
	Displayed int64
	Skipped   int64
	Failures  int64
}

// VolumeChangeMsg is sent when the user changes volume or mute
type VolumeChangeMsg struct {
	Volume int
	Muted  bool
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
