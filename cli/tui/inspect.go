package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/embedpay/cli/sim"
)

// InspectModel is a Bubble Tea model for inspect views.
type InspectModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(viewType string, data any) InspectModel {
	return InspectModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case ViewInspectSession:
		content = m.renderSession()
	case ViewInspectFrames:
		content = m.renderFrames()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m InspectModel) renderSession() string {
	var res sim.Result
	switch data := m.data.(type) {
	case sim.Result:
		res = data
	case *sim.Result:
		res = *data
	default:
		return "Invalid data type for " + ViewInspectSession
	}
	return BoxStyle.Render(renderResult(res))
}

func (m InspectModel) renderFrames() string {
	frames, ok := m.data.([]sim.Frame)
	if !ok {
		return "Invalid data type for " + ViewInspectFrames
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Result Frames (%d)", len(frames))))
	b.WriteString("\n\n")

	if len(frames) == 0 {
		b.WriteString(HelpStyle.Render("(no frames)"))
		return BoxStyle.Render(b.String())
	}

	for i, f := range frames {
		if i > 0 {
			b.WriteString("\n")
		}
		code := StateStyle(f.ResultCode).Render(fmt.Sprintf("%-8s", f.ResultCode))
		b.WriteString(fmt.Sprintf("%s %s %s %s\n",
			ValueStyle.Render(fmt.Sprintf("#%-3d", f.Index)),
			LabelStyle.Render(fmt.Sprintf("request %d", f.RequestCode)),
			code,
			ValueStyle.Render(f.Callback)))
		if len(f.PayloadKeys) > 0 {
			b.WriteString(HelpStyle.UnsetMarginTop().Render("     keys: " + strings.Join(f.PayloadKeys, ", ")))
			b.WriteString("\n")
		}
	}

	return BoxStyle.Render(b.String())
}

// renderResult lays out a session result as labelled rows.
func renderResult(res sim.Result) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Session Result"))
	b.WriteString("\n\n")

	rows := [][]string{
		{"Session", res.SessionID},
		{"Flow", string(res.Flow)},
		{"Outcome", res.Outcome},
		{"Request Code", fmt.Sprintf("%d", res.RequestCode)},
		{"Result Code", res.ResultCode},
		{"Callback", res.Callback},
		{"Duration", fmt.Sprintf("%dms", res.DurationMS)},
	}
	if len(res.PayloadKeys) > 0 {
		rows = append(rows, []string{"Payload", strings.Join(res.PayloadKeys, ", ")})
	}

	for _, row := range rows {
		label := LabelStyle.Render(row[0] + ":")
		var value string
		switch row[0] {
		case "Outcome", "Result Code":
			value = StateStyle(row[1]).Render(row[1])
		default:
			value = ValueStyle.Render(row[1])
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, label, " ", value))
		b.WriteString("\n")
	}

	if len(res.Steps) > 0 {
		b.WriteString("\n")
		b.WriteString(LabelStyle.Render("Steps:"))
		b.WriteString("\n")
		for _, s := range res.Steps {
			b.WriteString(fmt.Sprintf("  %s %s\n",
				ValueStyle.Render(s.Step),
				HelpStyle.UnsetMarginTop().Render("→ "+s.Decision+", "+s.State)))
		}
	}

	return b.String()
}

// RunInspectTUI runs the inspect TUI.
func RunInspectTUI(viewType string, data any) error {
	model := NewInspectModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
