package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/sprjihoon/pdf01/internal/scan"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// scanEventMsg carries one scanner progress event.
type scanEventMsg scan.Event

// scanDoneMsg reports that the scan returned.
type scanDoneMsg struct {
	err error
}

// progressModel is the bubbletea model for a folder scan.
type progressModel struct {
	title      string
	cancel     context.CancelFunc
	event      scan.Event
	failures   int
	progress   progress.Model
	theme      Theme
	done       bool
	cancelling bool
	err        error
}

func newProgressModel(title string, cancel context.CancelFunc) progressModel {
	return progressModel{
		title:    title,
		cancel:   cancel,
		progress: progress.New(progress.WithDefaultBlend(), progress.WithWidth(40)),
		theme:    defaultTheme,
	}
}

// Init returns the initial command.
func (m progressModel) Init() tea.Cmd {
	return m.progress.Init()
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			// Files already handed out finish; the scan then returns
			// its partial report and sends scanDoneMsg.
			if !m.cancelling {
				m.cancelling = true
				m.cancel()
			}
		}

	case scanEventMsg:
		m.event = scan.Event(msg)
		if msg.Err != nil {
			m.failures++
		}

	case scanDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m progressModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	var pct float64
	if m.event.Total > 0 {
		pct = float64(m.event.Processed) / float64(m.event.Total)
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.title))
	bar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d files, %d found", m.event.Processed, m.event.Total, m.event.Found)

	hint := "Press Ctrl+C to stop and keep partial results"
	if m.cancelling {
		hint = "Stopping after the files in progress..."
	} else if m.event.Path != "" {
		hint = filepath.Base(m.event.Path)
	}
	return fmt.Sprintf("%s %s %s\n%s\n", status, bar, counts, m.theme.hintStyle().Render(hint))
}

func (m progressModel) finalView() string {
	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("✗ %s failed: %s\n", m.title, m.err))
	}
	msg := fmt.Sprintf("✓ %s: %d files", m.title, m.event.Processed)
	if m.failures > 0 {
		msg += fmt.Sprintf(", %d unreadable", m.failures)
	}
	if m.cancelling {
		return m.theme.hintStyle().Render(msg+" (stopped)") + "\n"
	}
	return m.theme.completedStyle().Render(msg) + "\n"
}

// runScanProgress runs fn with a progress UI when stdout is a terminal.
// Pressing Ctrl+C in the UI cancels the context passed to fn.
func runScanProgress(ctx context.Context, title string, fn func(context.Context, scan.ProgressFunc) error) error {
	if !isTerminal() {
		return fn(ctx, nil)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newProgressModel(title, cancel))
	errCh := make(chan error, 1)
	go func() {
		err := fn(ctx, func(e scan.Event) { p.Send(scanEventMsg(e)) })
		p.Send(scanDoneMsg{err: err})
		errCh <- err
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-errCh
		return fmt.Errorf("progress UI error: %w", err)
	}
	return <-errCh
}
