package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/embedpay/metrics"
)

// StatsModel is a Bubble Tea model for stats views.
type StatsModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(viewType string, data any) StatsModel {
	return StatsModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch data := m.data.(type) {
	case metrics.Snapshot:
		content = renderMetrics(data)
	case *metrics.Snapshot:
		content = renderMetrics(*data)
	default:
		content = fmt.Sprintf("Invalid data type for %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func renderMetrics(s metrics.Snapshot) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Session Statistics"))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		renderStatBox("Started", s.SessionsStarted, highlightColor),
		renderStatBox("Succeeded", s.SessionsSucceeded, successColor),
		renderStatBox("Cancelled", s.SessionsCancelled, warningColor),
		renderStatBox("Failed", s.SessionsFailed, errorColor),
	))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		renderStatBox("Intercepted", s.NavigationsIntercepted, highlightColor),
		renderStatBox("Ignored", s.NavigationsIgnored, mutedColor),
		renderStatBox("Published", s.PublishSuccess, successColor),
		renderStatBox("Publish Fail", s.PublishFailure, errorColor),
	))

	return b.String()
}

func renderStatBox(label string, value int64, color lipgloss.Color) string {
	valueStyle := StatValueStyle.Foreground(color)
	content := fmt.Sprintf("%s\n%s",
		StatLabelStyle.Render(label),
		valueStyle.Render(fmt.Sprintf("%d", value)))
	return StatBoxStyle.Render(content)
}

// RunStatsTUI runs the stats TUI.
func RunStatsTUI(viewType string, data any) error {
	model := NewStatsModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
