package models

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fenilsonani/diskindex/internal/progress"
	"github.com/fenilsonani/diskindex/internal/scanner"
	"github.com/fenilsonani/diskindex/internal/ui/components"
	"github.com/fenilsonani/diskindex/internal/ui/styles"
	"github.com/fenilsonani/diskindex/internal/volume"
)

// ViewState represents the current view in the app
type ViewState int

const (
	ViewBrowser ViewState = iota
	ViewScanning
	ViewHelp
)

// Scanner starts a rescan from the browser
type Scanner interface {
	Scan(ctx context.Context, root string, onProgress scanner.ProgressFunc) error
}

// AppModel is the root model for the browse TUI
type AppModel struct {
	state         ViewState
	previousState ViewState

	reader  SnapshotReader
	scanner Scanner
	root    string
	volume  volume.Volume

	browserView *BrowserViewModel
	scanView    *ScanViewModel
	cancelScan  context.CancelFunc

	width  int
	height int
	err    error
}

// NewAppModel creates a new app model
func NewAppModel(reader SnapshotReader, sc Scanner, root string, vol volume.Volume) *AppModel {
	return &AppModel{
		state:       ViewBrowser,
		reader:      reader,
		scanner:     sc,
		root:        root,
		volume:      vol,
		browserView: NewBrowserViewModel(reader, root, vol, 0, 0),
	}
}

// Init initializes the model
func (m *AppModel) Init() tea.Cmd {
	return nil
}

// State is the active view
func (m *AppModel) State() ViewState { return m.state }

// Err is the last scan error, if any
func (m *AppModel) Err() error { return m.err }

// Update handles messages
func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == ViewHelp {
			m.state = m.previousState
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c":
			if m.cancelScan != nil {
				m.cancelScan()
			}
			return m, tea.Quit
		case "q":
			if m.state == ViewBrowser {
				return m, tea.Quit
			}
		case "?":
			m.previousState = m.state
			m.state = ViewHelp
			return m, nil
		case "s":
			if m.state == ViewBrowser && m.scanner != nil {
				return m, m.startScan()
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.browserView.SetSize(msg.Width, msg.Height)

	case ScanCompleteMsg:
		m.cancelScan = nil
		m.err = msg.Err
		m.state = ViewBrowser
		if msg.Err != nil {
			m.browserView.SetNotice(styles.ErrorStyle.Render("Last scan failed: " + msg.Err.Error()))
		} else {
			m.browserView.SetNotice(styles.SuccessStyle.Render("Scan complete"))
		}
		m.browserView.Reload()
		return m, nil
	}

	return m.delegateUpdate(msg)
}

// startScan runs a scan in the background; the scan view follows it
// through a progress reporter
func (m *AppModel) startScan() tea.Cmd {
	reporter := progress.NewReporter()
	updates := reporter.Subscribe()
	tracker := progress.NewTracker(reporter, m.root)

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelScan = cancel
	m.err = nil
	m.browserView.SetNotice("")
	m.scanView = NewScanViewModel(m.root, updates, m.width)
	m.state = ViewScanning

	root := m.root
	sc := m.scanner
	run := func() tea.Msg {
		defer cancel()
		err := sc.Scan(ctx, root, tracker.OnProgress)
		tracker.Finish(err)
		reporter.Unsubscribe(updates)
		return ScanCompleteMsg{Err: err}
	}

	return tea.Batch(m.scanView.Init(), run)
}

// delegateUpdate delegates the update to the current view
func (m *AppModel) delegateUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.state {
	case ViewBrowser:
		m.browserView, cmd = m.browserView.Update(msg)
	case ViewScanning:
		if m.scanView != nil {
			m.scanView, cmd = m.scanView.Update(msg)
		}
	}

	return m, cmd
}

// View renders the current view
func (m *AppModel) View() string {
	switch m.state {
	case ViewScanning:
		if m.scanView != nil {
			return m.scanView.View()
		}
	case ViewHelp:
		return m.renderHelp()
	}

	return m.browserView.View()
}

func (m *AppModel) renderHelp() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Help"))
	b.WriteString("\n\n")
	b.WriteString(`Browse the sizes recorded by the last scans.

Navigation:
  ↑/k       Move up
  ↓/j       Move down
  enter     Open folder (marked with ›)
  backspace Go to parent folder

Views:
  g         Toggle largest items anywhere
  s         Rescan (results stream in as folders finish)

Other:
  ?         Toggle help
  q         Quit
  ctrl+c    Cancel scan and quit`)
	b.WriteString("\n\n")
	b.WriteString(components.RenderSimple("Press any key to close", m.width))

	return b.String()
}
