// Package app is the interactive front end: it runs a bring-up plan one
// step at a time and shows results as they arrive.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/bringup/internal/check"
	"github.com/buckleypaul/bringup/internal/runner"
	"github.com/buckleypaul/bringup/internal/ui"
)

// StepDoneMsg carries the result of the step at Index.
type StepDoneMsg struct {
	Index  int
	Result check.Result
}

// inflight tracks the step currently running off the UI loop. It is
// shared by every copy of a Model.
type inflight struct {
	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

type Model struct {
	title     string
	steps     []runner.Step
	ctx       context.Context
	cancel    context.CancelFunc
	inflight  *inflight
	results   []check.Result
	current   int
	done      bool
	showSteps bool
	showHelp  bool
	spinner   spinner.Model
	viewport  viewport.Model
	width     int
	height    int
}

// New creates a model that runs steps in order under ctx. Quitting
// cancels ctx so a step blocked on the DUT returns promptly.
func New(ctx context.Context, title string, steps []runner.Step) Model {
	ctx, cancel := context.WithCancel(ctx)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = ui.AccentStyle
	return Model{
		title:     title,
		steps:     steps,
		ctx:       ctx,
		cancel:    cancel,
		inflight:  &inflight{},
		showSteps: true,
		spinner:   sp,
		viewport:  viewport.New(0, 0),
		done:      len(steps) == 0,
	}
}

// Results returns the results collected so far, in step order.
func (m Model) Results() []check.Result { return m.results }

// Done reports whether every step has finished.
func (m Model) Done() bool { return m.done }

// Stop cancels the run, keeps further steps from starting and blocks until
// the step in flight, if any, has returned. Call it before closing the
// connection the steps read from.
func (m Model) Stop() {
	m.cancel()
	m.inflight.mu.Lock()
	m.inflight.stopped = true
	m.inflight.mu.Unlock()
	m.inflight.wg.Wait()
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runStep(0))
}

// runStep runs step i off the UI loop. The next step is only started once
// this one's StepDoneMsg has been handled, so at most one transaction is
// ever in flight.
func (m Model) runStep(i int) tea.Cmd {
	if i >= len(m.steps) {
		return nil
	}
	st := m.steps[i]
	ctx := m.ctx
	fl := m.inflight
	return func() tea.Msg {
		fl.mu.Lock()
		if fl.stopped {
			fl.mu.Unlock()
			return nil
		}
		fl.wg.Add(1)
		fl.mu.Unlock()
		defer fl.wg.Done()
		return StepDoneMsg{Index: i, Result: st.Run(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 2
		vpHeight := msg.Height - 6
		if vpHeight < 3 {
			vpHeight = 3
		}
		m.viewport.Height = vpHeight
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, GlobalKeys.Quit):
			m.cancel()
			return m, tea.Quit
		case key.Matches(msg, GlobalKeys.Help):
			m.showHelp = !m.showHelp
			return m, nil
		case key.Matches(msg, GlobalKeys.Details):
			m.showSteps = !m.showSteps
			m.refresh()
			return m, nil
		}

	case StepDoneMsg:
		if msg.Index != m.current {
			return m, nil
		}
		m.results = append(m.results, msg.Result)
		m.current++
		if m.current >= len(m.steps) {
			m.done = true
		}
		m.refresh()
		m.viewport.GotoBottom()
		return m, m.runStep(m.current)

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) refresh() {
	rows := make([]string, 0, len(m.results))
	for _, r := range m.results {
		if !m.showSteps {
			r.Steps = nil
		}
		rows = append(rows, ui.Row(r))
	}
	m.viewport.SetContent(strings.Join(rows, "\n"))
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(ui.Title(m.title))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n\n")

	if m.done {
		b.WriteString(ui.Summary(m.results))
	} else {
		b.WriteString(fmt.Sprintf("%s running %s (%d/%d)", m.spinner.View(), m.steps[m.current].Name, m.current+1, len(m.steps)))
	}
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString(ui.DimStyle.Render("Steps run in order; a failed check never stops the run."))
		b.WriteString("\n")
	}
	b.WriteString(m.statusBar())
	return b.String()
}

func (m Model) statusBar() string {
	parts := []string{
		ui.StatusKey("↑/↓", "scroll"),
		ui.StatusKey(GlobalKeys.Details.Help().Key, GlobalKeys.Details.Help().Desc),
		ui.StatusKey(GlobalKeys.Help.Help().Key, GlobalKeys.Help.Help().Desc),
		ui.StatusKey(GlobalKeys.Quit.Help().Key, GlobalKeys.Quit.Help().Desc),
	}
	return ui.StatusBarStyle.Width(m.width).Render(strings.Join(parts, "  "))
}
