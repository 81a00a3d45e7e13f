package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ProgressReporter receives the completed fraction in [0, 1]
type ProgressReporter func(fraction float64)

// Operation is a long-running task that reports its progress
type Operation func(ctx context.Context, report ProgressReporter) error

type progressMsg float64

type doneMsg struct{ err error }

// progressModel is the Bubble Tea model behind RunWithProgress
type progressModel struct {
	label     string
	detail    string
	bar       progress.Model
	percent   float64
	done      bool
	err       error
	cancelled bool
}

func newProgressModel(label, detail string, width int) progressModel {
	return progressModel{
		label:  label,
		detail: detail,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth(width))),
	}
}

func barWidth(width int) int {
	w := width - 20
	if w < 20 {
		w = 20
	}
	if w > 50 {
		w = 50
	}
	return w
}

func (m progressModel) Init() tea.Cmd {
	return nil
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.percent = float64(msg)
		return m, nil
	case doneMsg:
		m.done = true
		m.err = msg.err
		if msg.err == nil {
			m.percent = 1
		}
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			m.cancelled = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.bar.Width = barWidth(msg.Width)
	}
	return m, nil
}

func (m progressModel) View() string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(ValueStyle.Render(m.label)))
	if m.detail != "" {
		b.WriteString(" " + MutedStyle.Render(m.detail))
	}
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(
		fmt.Sprintf("%s  %3.0f%%", m.bar.ViewAs(m.percent), m.percent*100)))
	b.WriteString("\n")
	switch {
	case m.done && m.err == nil:
		b.WriteString("\n" + SuccessStyle.Render("  "+SuccessMarker+" done") + "\n")
	case m.done:
		b.WriteString("\n" + ErrorStyle.Render("  "+FailureMarker+" failed") + "\n")
	case m.cancelled:
		b.WriteString("\n" + WarningStyle.Render("  "+WarningMarker+" cancelling") + "\n")
	}
	return b.String()
}

// RunWithProgress runs op while drawing a progress bar. Ctrl+C cancels the
// operation's context. When stdout is not a terminal, progress is printed as
// one line per ten percent instead.
func RunWithProgress(ctx context.Context, label, detail string, op Operation) error {
	if !IsTerminal() {
		return runPlain(ctx, os.Stdout, label, op)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newProgressModel(label, detail, GetTerminalWidth()), tea.WithOutput(os.Stdout))
	result := make(chan error, 1)
	go func() {
		err := op(ctx, func(f float64) { p.Send(progressMsg(f)) })
		result <- err
		p.Send(doneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-result
		return fmt.Errorf("progress display failed: %w", err)
	}
	// Either the operation finished or the user asked to stop.
	cancel()
	return <-result
}

func runPlain(ctx context.Context, out io.Writer, label string, op Operation) error {
	_, _ = fmt.Fprintf(out, "%s\n", label)
	last := -1
	err := op(ctx, func(f float64) {
		step := int(f * 10)
		if step > last {
			last = step
			_, _ = fmt.Fprintf(out, "  %3d%%\n", step*10)
		}
	})
	return err
}
