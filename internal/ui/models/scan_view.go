package models

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fenilsonani/diskindex/internal/progress"
	"github.com/fenilsonani/diskindex/internal/ui/styles"
	"github.com/fenilsonani/diskindex/internal/ui/utils"
)

// ScanViewModel shows a running scan
type ScanViewModel struct {
	root     string
	spinner  spinner.Model
	updates  <-chan *progress.ScanProgress
	progress *progress.ScanProgress
	width    int
}

// NewScanViewModel creates a scan view fed by updates
func NewScanViewModel(root string, updates <-chan *progress.ScanProgress, width int) *ScanViewModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.SelectedStyle

	return &ScanViewModel{
		root:    root,
		spinner: s,
		updates: updates,
		width:   width,
	}
}

// Init initializes the scan view
func (m *ScanViewModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForProgress(m.updates))
}

// Update handles messages
func (m *ScanViewModel) Update(msg tea.Msg) (*ScanViewModel, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ScanProgressMsg:
		m.progress = msg.Progress
		return m, waitForProgress(m.updates)
	}

	return m, nil
}

// View renders the scan view
func (m *ScanViewModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Scanning " + m.root))
	b.WriteString("\n\n")

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(progress.FormatScanProgress(m.progress))
	b.WriteString("\n\n")

	if m.progress != nil && m.progress.CurrentPath != "" {
		width := m.width
		if width <= 0 {
			width = utils.MinTerminalWidth
		}
		b.WriteString(styles.DimStyle.Render("Current: "))
		b.WriteString(styles.FilePathStyle.Render(utils.ShortenPath(m.progress.CurrentPath, m.root, width-len("Current: "))))
		b.WriteString("\n\n")
	}

	b.WriteString(styles.HelpStyle.Render("Results appear as folders are written. Press ctrl+c to cancel."))

	return b.String()
}

// waitForProgress turns the next update into a message. A closed channel
// yields nil, which ends the loop.
func waitForProgress(updates <-chan *progress.ScanProgress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-updates
		if !ok {
			return nil
		}
		return ScanProgressMsg{Progress: p}
	}
}

// ScanProgressMsg carries one progress update
type ScanProgressMsg struct {
	Progress *progress.ScanProgress
}

// ScanCompleteMsg is sent when a scan started from the browser ends
type ScanCompleteMsg struct {
	Err error
}
