// Package tui provides a terminal user interface for playing MIDI files
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Chunn241529/FourT-sub001/pkg/engine"
	"github.com/Chunn241529/FourT-sub001/pkg/input"
	"github.com/Chunn241529/FourT-sub001/pkg/score"
)

// Neon color scheme
var (
	neonGreen  = lipgloss.Color("#39FF14")
	neonYellow = lipgloss.Color("#FFFF00")
	silverGray = lipgloss.Color("#C0C0C0")
	darkGray   = lipgloss.Color("#333333")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(neonGreen).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	dimStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(neonYellow).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(neonGreen).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(neonGreen).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateFilePicker State = iota
	StateAnalyzing
	StatePlayer
	StateError
)

// Model represents the TUI model
type Model struct {
	state      State
	filePicker filepicker.Model
	spinner    spinner.Model
	progress   progress.Model

	engine *engine.Engine

	selectedFile string
	result       *score.Result
	playing      bool

	speed     float64
	handMode  engine.HandMode
	loop      bool
	humanize  bool
	smartBass bool

	err    error
	width  int
	height int
}

// analyzeDoneMsg signals analysis completion
type analyzeDoneMsg struct {
	result *score.Result
	err    error
}

// playbackDoneMsg signals the end of a playback session
type playbackDoneMsg struct {
	err error
}

// tickMsg refreshes the progress display while playing
type tickMsg time.Time

// New creates a new TUI model around a playback engine
func New(eng *engine.Engine) Model {
	// Initialize file picker
	fp := filepicker.New()
	fp.AllowedTypes = []string{".mid", ".midi"}
	fp.CurrentDirectory, _ = os.Getwd()

	// Initialize spinner
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonGreen)

	return Model{
		state:      StateFilePicker,
		filePicker: fp,
		spinner:    s,
		progress:   progress.New(progress.WithDefaultGradient()),
		engine:     eng,
		speed:      1.0,
		handMode:   engine.HandBoth,
	}
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.filePicker.Init(), m.spinner.Tick)
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle file picker state first - it needs to receive all messages
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "q", "esc", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		// Check if file was selected
		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			m.state = StateAnalyzing
			return m, tea.Batch(m.spinner.Tick, m.analyzeFile())
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		if w := msg.Width - 14; w > 10 {
			m.progress.Width = w
		}
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StatePlayer:
			return m.updatePlayer(msg)
		case StateError:
			return m.updateError(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case analyzeDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = StateError
			return m, nil
		}
		m.result = msg.result
		m.err = nil
		m.state = StatePlayer
		return m, nil

	case playbackDoneMsg:
		m.playing = false
		if msg.err != nil {
			m.err = msg.err
		}
		return m, nil

	case tickMsg:
		if m.state == StatePlayer && m.playing {
			return m, tickCmd()
		}
		return m, nil
	}

	return m, nil
}

func (m Model) updatePlayer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case " ":
		if m.playing {
			m.engine.Stop()
			return m, nil
		}
		return m.startPlayback()
	case "+", "=":
		m.speed = clampSpeed(m.speed + 0.25)
		m.engine.SetSpeed(m.speed)
	case "-", "_":
		m.speed = clampSpeed(m.speed - 0.25)
		m.engine.SetSpeed(m.speed)
	case "h":
		m.handMode = (m.handMode + 1) % 3
		m.engine.SetHandMode(m.handMode)
	case "l":
		m.loop = !m.loop
		m.engine.SetLoop(m.loop)
	case "u":
		m.humanize = !m.humanize
	case "b":
		m.smartBass = !m.smartBass
		m.engine.Stop()
		m.state = StateAnalyzing
		return m, tea.Batch(m.spinner.Tick, m.analyzeFile())
	case "esc":
		m.engine.Stop()
		m.state = StateFilePicker
		return m, m.filePicker.Init()
	case "q", "ctrl+c":
		m.engine.Stop()
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateError(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateFilePicker
		m.err = nil
		m.selectedFile = ""
		return m, m.filePicker.Init()
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) startPlayback() (tea.Model, tea.Cmd) {
	done := make(chan error, 1)
	session := engine.Session{
		Events:   m.result.Events,
		Speed:    m.speed,
		Loop:     m.loop,
		HandMode: m.handMode,
		Humanize: m.humanize,
	}
	if err := m.engine.Play(session, func(err error) { done <- err }); err != nil {
		m.err = err
		return m, nil
	}
	m.playing = true
	m.err = nil
	return m, tea.Batch(waitForDone(done), tickCmd())
}

func (m Model) analyzeFile() tea.Cmd {
	path := m.selectedFile
	opts := score.Options{AutoTranspose: true, SmartBass: m.smartBass}
	return func() tea.Msg {
		res, err := score.Preprocess(path, opts)
		return analyzeDoneMsg{result: res, err: err}
	}
}

func waitForDone(done chan error) tea.Cmd {
	return func() tea.Msg {
		return playbackDoneMsg{err: <-done}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func clampSpeed(s float64) float64 {
	if s < 0.25 {
		return 0.25
	}
	if s > 4 {
		return 4
	}
	return s
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	// Header
	s.WriteString(asciiLogo())
	s.WriteString("\n")

	switch m.state {
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateAnalyzing:
		s.WriteString(m.viewAnalyzing())
	case StatePlayer:
		s.WriteString(m.viewPlayer())
	case StateError:
		s.WriteString(m.viewError())
	}

	// Footer help
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("q: quit"))

	return s.String()
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT MIDI FILE "))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("enter: play file • esc: quit"))

	return s.String()
}

func (m Model) viewAnalyzing() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" ANALYZING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Analyzing %s...\n", m.spinner.View(), filepath.Base(m.selectedFile)))

	return boxStyle.Render(s.String())
}

func (m Model) viewPlayer() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" PLAYER "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("♪ %s\n", filepath.Base(m.selectedFile)))

	d := m.result.Debug
	s.WriteString(dimStyle.Render(fmt.Sprintf("%s • transpose %+d • %d notes", d.EstimatedKey, d.Transpose, d.TotalNotes)))
	s.WriteString("\n\n")

	elapsed := m.engine.Elapsed()
	percent := 1.0
	if m.result.Duration > 0 {
		percent = elapsed / m.result.Duration
		if percent > 1 {
			percent = 1
		}
	}
	s.WriteString(m.progress.ViewAs(percent))
	s.WriteString(fmt.Sprintf("\n%.1fs / %.1fs\n", elapsed, m.result.Duration))

	status := fmt.Sprintf("speed %.2fx • hands %s", m.speed, m.handMode)
	if m.loop {
		status += " • loop"
	}
	if m.humanize {
		status += " • humanize"
	}
	if m.smartBass {
		status += " • smart bass"
	}
	s.WriteString(statusStyle.Render(status))
	s.WriteString("\n")

	if m.playing {
		s.WriteString(successStyle.Render("▶ playing"))
	} else {
		s.WriteString(dimStyle.Render("■ stopped"))
	}
	if m.err != nil {
		s.WriteString("\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s", m.err.Error())))
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("space: play/stop • +/-: speed • h: hands • l: loop • u: humanize • b: smart bass • esc: back"))

	return boxStyle.Render(s.String())
}

func (m Model) viewError() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" ERROR "))
	s.WriteString("\n\n")
	s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s", m.err.Error())))
	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func asciiLogo() string {
	logo := `
   _____ ___  _   _ ____ _____
  |  ___/ _ \| | | |  _ \_   _|
  | |_ | | | | | | | |_) || |
  |  _|| |_| | |_| |  _ < | |
  |_|   \___/ \___/|_| \_\|_|
`
	return lipgloss.NewStyle().Foreground(neonGreen).Render(logo)
}

// Run starts the player with the platform input backend
func Run() error {
	ctrl := input.NewController(input.New(), nil)
	eng := engine.New(ctrl, nil)
	p := tea.NewProgram(New(eng), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
