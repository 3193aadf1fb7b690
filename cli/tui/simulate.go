package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pithecene-io/embedpay/cli/sim"
	"github.com/pithecene-io/embedpay/metrics"
)

// Simulation is what the simulate view drives.
type Simulation struct {
	Driver *sim.Driver
	// Token is sent when the user confirms.
	Token string
	// Result summarizes the finished session.
	Result func() (sim.Result, bool)
	// Metrics returns the current counters; nil hides the stats row.
	Metrics func() metrics.Snapshot
}

type (
	loadedMsg struct{ err error }
	doneMsg   struct{}
	stepMsg   struct {
		res sim.StepResult
		err error
	}
)

// SimulateModel hosts one session: the keys play the remote flow's part.
type SimulateModel struct {
	ctx     context.Context
	sim     Simulation
	spinner spinner.Model
	help    help.Model

	loaded   bool
	finished bool
	log      []string
	result   *sim.Result
	err      error
	quitting bool
}

// NewSimulateModel creates the interactive model.
func NewSimulateModel(ctx context.Context, s Simulation) SimulateModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = WarningStyle
	return SimulateModel{
		ctx:     ctx,
		sim:     s,
		spinner: sp,
		help:    help.New(),
	}
}

// Init implements tea.Model.
func (m SimulateModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitLoaded(), m.waitDone())
}

func (m SimulateModel) waitLoaded() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: m.sim.Driver.Ready(m.ctx)}
	}
}

func (m SimulateModel) waitDone() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.sim.Driver.Done():
		case <-m.ctx.Done():
		}
		return doneMsg{}
	}
}

func (m SimulateModel) apply(step sim.Step) tea.Cmd {
	return func() tea.Msg {
		res, err := m.sim.Driver.Apply(m.ctx, step)
		return stepMsg{res: res, err: err}
	}
}

// Update implements tea.Model.
func (m SimulateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if !m.loaded || m.finished {
			return m, nil
		}
		switch {
		case key.Matches(msg, keys.Confirm):
			return m, m.apply(sim.Confirm(m.sim.Token))
		case key.Matches(msg, keys.Cancel):
			return m, m.apply(sim.CancelStep(""))
		case key.Matches(msg, keys.Fail):
			return m, m.apply(sim.Step{Action: sim.ActionTransportError, Message: "connection failed"})
		case key.Matches(msg, keys.Dismiss):
			return m, m.apply(sim.Step{Action: sim.ActionDismiss})
		}

	case loadedMsg:
		m.loaded = true
		m.err = msg.err
		return m, nil

	case stepMsg:
		if msg.err != nil {
			m.log = append(m.log, ErrorStyle.Render(msg.err.Error()))
		} else {
			m.log = append(m.log, fmt.Sprintf("%s → %s", msg.res.Step, msg.res.Decision))
		}
		return m, nil

	case doneMsg:
		m.finished = true
		if m.sim.Result != nil {
			if res, ok := m.sim.Result(); ok {
				m.result = &res
			}
		}
		return m, nil

	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m SimulateModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("embedpay simulate"))
	b.WriteString("\n")

	surface := m.sim.Driver.Surface()
	b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Session:"), ValueStyle.Render(m.sim.Driver.SessionID())))

	switch {
	case m.err != nil:
		b.WriteString(ErrorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	case !m.loaded:
		b.WriteString(fmt.Sprintf("%s creating checkout...\n", m.spinner.View()))
	case !m.finished:
		b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Showing:"), ValueStyle.Render(surface.URL())))
		b.WriteString(fmt.Sprintf("%s waiting for the buyer\n", m.spinner.View()))
	}

	if len(m.log) > 0 {
		b.WriteString("\n")
		for _, line := range m.log {
			b.WriteString("  " + line + "\n")
		}
	}

	if m.result != nil {
		b.WriteString("\n")
		b.WriteString(BoxStyle.Render(renderResult(*m.result)))
		b.WriteString("\n")
	}
	if m.finished && m.sim.Metrics != nil {
		b.WriteString(renderMetrics(m.sim.Metrics()))
		b.WriteString("\n")
	}

	if m.finished {
		b.WriteString(HelpStyle.Render("Press q or Ctrl+C to quit"))
	} else {
		b.WriteString(HelpStyle.Render(m.help.View(keys)))
	}
	return b.String()
}

// Result returns the finished session's result, if any.
func (m SimulateModel) Result() (sim.Result, bool) {
	if m.result == nil {
		return sim.Result{}, false
	}
	return *m.result, true
}

// RunSimulate runs the interactive simulate view until the user quits and
// returns the session result when the session finished.
func RunSimulate(ctx context.Context, s Simulation) (sim.Result, bool, error) {
	p := tea.NewProgram(NewSimulateModel(ctx, s), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return sim.Result{}, false, err
	}
	m, ok := final.(SimulateModel)
	if !ok {
		return sim.Result{}, false, nil
	}
	res, ok := m.Result()
	return res, ok, nil
}
