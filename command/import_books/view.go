package import_books

import (
	"bookload/pipeline"
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

type recordProcessed struct {
	event pipeline.Event
}

type fileImported struct {
	report *pipeline.Report
	err    error
}

type model struct {
	bar   progress.Model
	total int

	processed    int
	loaded       int
	duplicates   int
	inadmissible int
	failed       int
	issues       int

	cancel     context.CancelFunc
	cancelling bool

	done bool
	err  error
}

func newModel(total int, cancel context.CancelFunc) *model {
	return &model{
		bar:    progress.New(progress.WithDefaultGradient()),
		total:  total,
		cancel: cancel,
	}
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			// wait for the import to stop and report, unless asked twice
			if m.cancelling {
				return m, tea.Quit
			}
			m.cancelling = true
			m.cancel()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.bar.Width = max(msg.Width-4, 10)

	case recordProcessed:
		m.processed++
		m.issues += msg.event.Issues

		switch msg.event.Outcome {
		case pipeline.OutcomeLoaded:
			m.loaded++
		case pipeline.OutcomeDuplicate:
			m.duplicates++
		case pipeline.OutcomeInadmissible:
			m.inadmissible++
		case pipeline.OutcomeFailed:
			m.failed++
		}

		return m, m.bar.SetPercent(m.percent())

	case fileImported:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m *model) percent() float64 {
	if m.total == 0 {
		return 1
	}
	return min(float64(m.processed)/float64(m.total), 1)
}

func (m *model) View() string {
	sb := strings.Builder{}

	sb.WriteString("importing books...")
	switch {
	case m.done:
		sb.WriteString("Done")
	case m.cancelling:
		sb.WriteString("Cancelling")
	}
	sb.WriteString("\n\n")

	if m.done {
		sb.WriteString(m.bar.ViewAs(m.percent()))
	} else {
		sb.WriteString(m.bar.View())
	}
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Processed: %v / %v\n", m.processed, m.total)
	fmt.Fprintf(&sb, "Loaded: %v\nDuplicates: %v\nDropped: %v\nFailed: %v\nField issues: %v\n",
		m.loaded, m.duplicates, m.inadmissible, m.failed, m.issues)

	if m.err != nil {
		fmt.Fprintf(&sb, "\nError: %s\n", m.err)
	}

	return sb.String()
}
