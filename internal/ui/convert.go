package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/IFAKA/spotiytm/internal/tasks"
)

// logWindow caps how many recent track lines the running view keeps.
const logWindow = 12

type eventMsg struct {
	event tasks.Event
}

type streamClosedMsg struct{}

// Model renders a live conversion as it streams progress events.
type Model struct {
	cancel context.CancelFunc
	events <-chan tasks.Event

	spinner  spinner.Model
	progress progress.Model

	name      string
	total     int
	completed int
	lines     []string

	done   *tasks.DoneEvent
	errMsg string
}

// NewModel creates a conversion view consuming events until the stream
// closes. cancel stops the underlying conversion when the user quits early.
func NewModel(cancel context.CancelFunc, events <-chan tasks.Event) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.title

	return &Model{
		cancel:   cancel,
		events:   events,
		spinner:  sp,
		progress: progress.New(progress.WithDefaultGradient()),
	}
}

// Err returns the terminal error message, empty on success.
func (m *Model) Err() string {
	return m.errMsg
}

// Result returns the terminal done event, nil when the conversion failed
// or was cancelled.
func (m *Model) Result() *tasks.DoneEvent {
	return m.done
}

// Init starts the spinner and begins consuming the event stream.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.progress.Width = min(msg.Width-8, 60)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			if m.done == nil && m.errMsg == "" {
				m.errMsg = "cancelled"
			}
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd

	case eventMsg:
		return m.handleEvent(msg.event)

	case streamClosedMsg:
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) handleEvent(event tasks.Event) (tea.Model, tea.Cmd) {
	switch e := event.(type) {
	case tasks.FetchingEvent:
		m.lines = appendLine(m.lines, styles.help.Render("Fetching playlist..."))

	case tasks.FetchedEvent:
		m.name = e.Name
		m.total = e.Total

	case tasks.LogEvent:
		m.lines = appendLine(m.lines, styles.help.Render(e.Message))

	case tasks.TrackEvent:
		m.completed = e.Index
		line := fmt.Sprintf("%s - %s", e.Name, e.Artists)
		if e.Status == tasks.StatusFound {
			line = styles.ok.Render("✓ ") + line
		} else {
			line = styles.err.Render("✗ ") + line
		}
		m.lines = appendLine(m.lines, line)
		if m.total > 0 {
			return m, tea.Batch(
				m.progress.SetPercent(float64(m.completed)/float64(m.total)),
				m.waitForEvent(),
			)
		}

	case tasks.DoneEvent:
		m.done = &e
		return m, m.waitForEvent()

	case tasks.ErrorEvent:
		m.errMsg = e.Message
		return m, m.waitForEvent()
	}

	return m, m.waitForEvent()
}

// View renders the UI based on the current conversion state.
func (m *Model) View() string {
	if m.errMsg != "" {
		return styles.err.Render(fmt.Sprintf("Conversion failed: %s", m.errMsg)) + "\n"
	}
	if m.done != nil {
		return m.renderResult()
	}
	return m.renderRunning()
}

func (m *Model) renderRunning() string {
	var b strings.Builder

	title := "Converting playlist"
	if m.name != "" {
		title = fmt.Sprintf("Converting '%s'", m.name)
	}
	b.WriteString(m.spinner.View() + styles.title.Render(title) + "\n\n")

	if m.total > 0 {
		b.WriteString(fmt.Sprintf("%s %d/%d\n\n", m.progress.View(), m.completed, m.total))
	}

	for _, line := range m.lines {
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + styles.help.Render("q to cancel") + "\n")
	return b.String()
}

func (m *Model) renderResult() string {
	var b strings.Builder

	b.WriteString(styles.ok.Render("✓ Conversion complete") + "\n\n")
	b.WriteString(fmt.Sprintf("Playlist: %s\nAdded: %d\nMissing: %d\n", m.name, m.done.Found, m.done.Missing))
	b.WriteString(fmt.Sprintf("https://music.youtube.com/playlist?list=%s\n", m.done.PlaylistID))

	if len(m.done.MissingTracks) > 0 {
		b.WriteString("\n" + styles.warn.Render("Tracks without a match:") + "\n")
		for _, track := range m.done.MissingTracks {
			b.WriteString(fmt.Sprintf("  • %s - %s\n", track.Name, track.Artists))
		}
	}

	return b.String()
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg{event: event}
	}
}

func appendLine(lines []string, line string) []string {
	lines = append(lines, line)
	if len(lines) > logWindow {
		lines = lines[len(lines)-logWindow:]
	}
	return lines
}
