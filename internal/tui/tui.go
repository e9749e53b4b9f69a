// Package tui renders generation progress as an interactive terminal view.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"notedraft/internal/core"
	"notedraft/internal/pipeline"
)

// Outcome is the end state of a generation run displayed by the TUI.
type Outcome struct {
	Path string // Where the markdown was written
	Err  error  // Non-nil when generation failed
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	currentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

const barWidth = 30

type progressMsg core.Progress

type progressClosedMsg struct{}

type outcomeMsg Outcome

// Model is the bubbletea model for a generation run.
type Model struct {
	theme    string
	stages   []pipeline.Stage
	progress <-chan core.Progress
	outcome  <-chan Outcome
	cancel   context.CancelFunc

	current    int // Index into stages, -1 before the first event
	percentage int
	message    string
	aborting   bool
	done       bool
	result     Outcome
}

// New returns a progress model fed by the progress channel. The outcome
// channel must deliver exactly one value after the progress channel closes.
// cancel, when non-nil, is invoked when the user aborts.
func New(theme string, progress <-chan core.Progress, outcome <-chan Outcome, cancel context.CancelFunc) Model {
	return Model{
		theme:    theme,
		stages:   pipeline.Stages(),
		progress: progress,
		outcome:  outcome,
		cancel:   cancel,
		current:  -1,
	}
}

// Result returns the generation outcome once the model has finished.
func (m Model) Result() Outcome {
	return m.result
}

func (m Model) Init() tea.Cmd {
	return listenProgress(m.progress)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.percentage = msg.Percentage
		m.message = msg.Message
		for i, stage := range m.stages {
			if stage.Step == msg.Step {
				m.current = i
				break
			}
		}
		return m, listenProgress(m.progress)

	case progressClosedMsg:
		return m, awaitOutcome(m.outcome)

	case outcomeMsg:
		m.done = true
		m.result = Outcome(msg)
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if !m.aborting && m.cancel != nil {
				m.cancel()
			}
			m.aborting = true
			// Keep listening: the pipeline unwinds through its context
			// and the outcome still arrives.
			return m, nil
		}
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	header := "記事を生成しています"
	if m.theme != "" {
		header += ": " + m.theme
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	for i, stage := range m.stages {
		switch {
		case m.done && m.result.Err == nil, i < m.current:
			b.WriteString(doneStyle.Render("  ✓ " + stage.Label))
		case i == m.current:
			b.WriteString(currentStyle.Render("  ▸ " + stage.Label))
		default:
			b.WriteString(pendingStyle.Render("    " + stage.Label))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	filled := m.percentage * barWidth / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	fmt.Fprintf(&b, "  %s %3d%%", barStyle.Render(bar), m.percentage)
	if m.message != "" {
		b.WriteString("  " + m.message)
	}
	b.WriteString("\n\n")

	switch {
	case m.done && m.result.Err != nil:
		if errors.Is(m.result.Err, core.ErrCancelled) {
			b.WriteString(errorStyle.Render("生成を中断しました"))
		} else {
			b.WriteString(errorStyle.Render("生成に失敗しました: " + m.result.Err.Error()))
		}
		b.WriteString("\n")
	case m.done:
		b.WriteString(doneStyle.Render("記事を生成しました: " + m.result.Path))
		b.WriteString("\n")
	case m.aborting:
		b.WriteString(helpStyle.Render("中断しています..."))
		b.WriteString("\n")
	default:
		b.WriteString(helpStyle.Render("q: 中断"))
		b.WriteString("\n")
	}

	return b.String()
}

// Run displays the progress view until generation finishes and returns the
// recorded outcome.
func Run(theme string, progress <-chan core.Progress, outcome <-chan Outcome, cancel context.CancelFunc) (Outcome, error) {
	final, err := tea.NewProgram(New(theme, progress, outcome, cancel)).Run()
	if err != nil {
		return Outcome{}, fmt.Errorf("progress view failed: %w", err)
	}
	model, ok := final.(Model)
	if !ok {
		return Outcome{}, errors.New("progress view returned an unexpected model")
	}
	return model.Result(), nil
}

func listenProgress(ch <-chan core.Progress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return progressClosedMsg{}
		}
		return progressMsg(p)
	}
}

func awaitOutcome(ch <-chan Outcome) tea.Cmd {
	return func() tea.Msg {
		return outcomeMsg(<-ch)
	}
}
