package models

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fenilsonani/diskindex/internal/store"
	"github.com/fenilsonani/diskindex/internal/ui/components"
	"github.com/fenilsonani/diskindex/internal/ui/styles"
	"github.com/fenilsonani/diskindex/internal/ui/utils"
	"github.com/fenilsonani/diskindex/internal/volume"
)

// SnapshotReader is the read side of the snapshot store
type SnapshotReader interface {
	Get(dir string) *store.DirectorySnapshot
	HasSnapshot(dir string) bool
	GlobalIndex() []store.FileEntry
}

// BrowserViewModel browses stored snapshots one directory at a time, or the
// global index of largest entries
type BrowserViewModel struct {
	reader SnapshotReader
	root   string
	dir    string
	global bool

	entries    []store.FileEntry
	restricted []store.FileEntry
	notice     string
	table      table.Model
	statusBar  *components.StatusBar

	width  int
	height int
}

// NewBrowserViewModel creates a browser positioned at root
func NewBrowserViewModel(reader SnapshotReader, root string, vol volume.Volume, width, height int) *BrowserViewModel {
	t := table.New(table.WithFocused(true))
	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		Foreground(styles.Secondary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Border).
		BorderBottom(true).
		Bold(true)
	ts.Selected = styles.HighlightStyle
	t.SetStyles(ts)

	m := &BrowserViewModel{
		reader:    reader,
		root:      root,
		dir:       root,
		table:     t,
		statusBar: components.NewStatusBar(),
		width:     width,
		height:    height,
	}
	m.statusBar.SetVolume(vol)
	m.statusBar.SetShortcuts(map[string]string{
		"↑/↓":       "move",
		"enter":     "open",
		"backspace": "up",
		"g":         "largest",
		"s":         "rescan",
		"q":         "quit",
	})
	m.Reload()
	return m
}

// Init initializes the browser view
func (m *BrowserViewModel) Init() tea.Cmd {
	return nil
}

// Dir is the directory currently shown
func (m *BrowserViewModel) Dir() string { return m.dir }

// Global reports whether the global index is shown
func (m *BrowserViewModel) Global() bool { return m.global }

// Reload re-reads the current listing from the store
func (m *BrowserViewModel) Reload() {
	if m.global {
		m.entries = m.reader.GlobalIndex()
		m.restricted = nil
	} else if snap := m.reader.Get(m.dir); snap != nil {
		m.entries = snap.Accessible
		m.restricted = snap.Restricted
	} else {
		m.entries = nil
		m.restricted = nil
	}

	var total uint64
	for _, e := range m.entries {
		total += e.Bytes
	}
	if m.global {
		m.statusBar.SetView("Largest items")
	} else {
		m.statusBar.SetView(m.dir)
	}
	m.statusBar.SetListing(len(m.entries), total)

	m.layout()
}

// SetNotice shows a styled line above the listing; empty clears it
func (m *BrowserViewModel) SetNotice(notice string) {
	m.notice = notice
	m.layout()
}

// SetSize adapts the table to the terminal
func (m *BrowserViewModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.layout()
}

// chrome is what View draws around the table
func (m *BrowserViewModel) chrome() utils.BrowserChrome {
	return utils.BrowserChrome{
		Banner:     utils.GetSizeWarningBanner(m.width, m.height) != "",
		Notice:     m.notice != "",
		Restricted: len(m.restricted) > 0,
	}
}

func (m *BrowserViewModel) layout() {
	nameWidth := utils.NameColumnWidth(m.width)

	title := "Name"
	if m.global {
		title = "Path"
	}
	m.table.SetRows(nil)
	m.table.SetColumns([]table.Column{
		{Title: title, Width: nameWidth},
		{Title: "Size", Width: utils.SizeColumnWidth},
		{Title: "", Width: utils.MarkColumnWidth},
	})

	rows := make([]table.Row, 0, len(m.entries)+len(m.restricted))
	for _, e := range m.entries {
		label := e.Name
		if m.global {
			label = utils.ShortenPath(e.Path, m.root, nameWidth)
		}
		mark := ""
		if m.reader.HasSnapshot(e.Path) {
			mark = "›"
		}
		rows = append(rows, table.Row{label, e.FormattedSize, mark})
	}
	for _, e := range m.restricted {
		rows = append(rows, table.Row{e.Name, e.FormattedSize, ""})
	}
	m.table.SetRows(rows)
	m.table.SetHeight(utils.TableHeight(m.height, m.chrome()))
	m.table.SetCursor(0)
}

// selected returns the entry under the cursor; restricted rows have none
func (m *BrowserViewModel) selected() (store.FileEntry, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.entries) {
		return store.FileEntry{}, false
	}
	return m.entries[i], true
}

// Update handles messages
func (m *BrowserViewModel) Update(msg tea.Msg) (*BrowserViewModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			if e, ok := m.selected(); ok && m.reader.HasSnapshot(e.Path) {
				m.global = false
				m.dir = e.Path
				m.Reload()
			}
			return m, nil
		case "backspace":
			if m.global {
				m.global = false
				m.Reload()
			} else if m.dir != m.root {
				m.dir = filepath.Dir(m.dir)
				m.Reload()
			}
			return m, nil
		case "g":
			m.global = !m.global
			m.Reload()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the browser view
func (m *BrowserViewModel) View() string {
	var b strings.Builder

	b.WriteString(utils.GetSizeWarningBanner(m.width, m.height))
	if m.notice != "" {
		b.WriteString(m.notice)
		b.WriteString("\n")
	}

	if m.global {
		b.WriteString(styles.TitleStyle.Render("Largest items under " + m.root))
	} else {
		b.WriteString(styles.TitleStyle.Render(m.dir))
	}
	b.WriteString("\n")

	if len(m.entries) == 0 && len(m.restricted) == 0 {
		msg := "No data yet for this folder. Press s to scan."
		if m.global {
			msg = "No index yet. Press s to scan."
		}
		b.WriteString(styles.DimStyle.Render(msg))
		b.WriteString("\n\n")
	} else {
		b.WriteString(m.table.View())
		b.WriteString("\n")
		if n := len(m.restricted); n > 0 {
			b.WriteString(styles.RestrictedStyle.Render(fmt.Sprintf("%d item(s) could not be read", n)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(m.statusBar.Render(m.width))
	return b.String()
}
