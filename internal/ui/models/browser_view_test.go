package models

import (
	"context"
	"errors"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fenilsonani/diskindex/internal/progress"
	"github.com/fenilsonani/diskindex/internal/scanner"
	"github.com/fenilsonani/diskindex/internal/store"
	"github.com/fenilsonani/diskindex/internal/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	snaps  map[string]*store.DirectorySnapshot
	global []store.FileEntry
}

func (f *fakeReader) Get(dir string) *store.DirectorySnapshot { return f.snaps[dir] }

func (f *fakeReader) HasSnapshot(dir string) bool {
	_, ok := f.snaps[dir]
	return ok
}

func (f *fakeReader) GlobalIndex() []store.FileEntry { return f.global }

func entry(path, name string, bytes uint64) store.FileEntry {
	return store.FileEntry{Path: path, Name: name, Bytes: bytes, FormattedSize: "x"}
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		snaps: map[string]*store.DirectorySnapshot{
			"/r": {
				Accessible: []store.FileEntry{entry("/r/a", "a", 300), entry("/r/b.bin", "b.bin", 100)},
				Restricted: []store.FileEntry{entry("/r/locked", "locked", 0)},
			},
			"/r/a": {
				Accessible: []store.FileEntry{entry("/r/a/x", "x", 300)},
			},
		},
		global: []store.FileEntry{entry("/r/a/x", "x", 300), entry("/r/b.bin", "b.bin", 100)},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBrowser_Navigation(t *testing.T) {
	m := NewBrowserViewModel(newFakeReader(), "/r", volume.Volume{}, 100, 30)
	assert.Equal(t, "/r", m.Dir())
	assert.Contains(t, m.View(), "b.bin")
	assert.Contains(t, m.View(), "1 item(s) could not be read")

	m, _ = m.Update(key("enter"))
	assert.Equal(t, "/r/a", m.Dir())
	assert.NotContains(t, m.View(), "b.bin")

	m, _ = m.Update(key("backspace"))
	assert.Equal(t, "/r", m.Dir())

	// Never climbs above the scan root
	m, _ = m.Update(key("backspace"))
	assert.Equal(t, "/r", m.Dir())

	// Files have no snapshot to open
	m, _ = m.Update(key("down"))
	m, _ = m.Update(key("enter"))
	assert.Equal(t, "/r", m.Dir())
}

func TestBrowser_GlobalToggle(t *testing.T) {
	m := NewBrowserViewModel(newFakeReader(), "/r", volume.Volume{}, 100, 30)

	m, _ = m.Update(key("g"))
	assert.True(t, m.Global())
	assert.Contains(t, m.View(), "Largest items under /r")
	// Paths are shown relative to the scan root
	assert.Contains(t, m.View(), "a/x")
	assert.NotContains(t, m.View(), "/r/a/x")

	// backspace leaves the global view
	m, _ = m.Update(key("down"))
	m, _ = m.Update(key("backspace"))
	assert.False(t, m.Global())
	assert.Equal(t, "/r", m.Dir())
}

func TestBrowser_EmptyStore(t *testing.T) {
	m := NewBrowserViewModel(&fakeReader{}, "/r", volume.Volume{}, 100, 30)
	assert.Contains(t, m.View(), "No data yet")

	m, _ = m.Update(key("g"))
	assert.Contains(t, m.View(), "No index yet")

	// Nothing selected, nothing happens
	m, _ = m.Update(key("enter"))
	assert.True(t, m.Global())
}

func TestBrowser_ReloadPicksUpNewSnapshots(t *testing.T) {
	reader := &fakeReader{snaps: map[string]*store.DirectorySnapshot{}}
	m := NewBrowserViewModel(reader, "/r", volume.Volume{}, 100, 30)
	assert.Contains(t, m.View(), "No data yet")

	reader.snaps["/r"] = &store.DirectorySnapshot{Accessible: []store.FileEntry{entry("/r/new.iso", "new.iso", 9)}}
	m.Reload()
	assert.Contains(t, m.View(), "new.iso")
}

type fakeScanner struct {
	err   error
	roots []string
}

func (f *fakeScanner) Scan(_ context.Context, root string, onProgress scanner.ProgressFunc) error {
	f.roots = append(f.roots, root)
	onProgress(root+"/a", "1.0 MiB")
	return f.err
}

func TestApp_HelpToggle(t *testing.T) {
	app := NewAppModel(newFakeReader(), nil, "/r", volume.Volume{})

	app.Update(key("?"))
	assert.Equal(t, ViewHelp, app.State())
	assert.Contains(t, app.View(), "Toggle largest items anywhere")

	app.Update(key("j"))
	assert.Equal(t, ViewBrowser, app.State())
}

func TestApp_Quit(t *testing.T) {
	app := NewAppModel(newFakeReader(), nil, "/r", volume.Volume{})

	_, cmd := app.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_ScanLifecycle(t *testing.T) {
	reader := &fakeReader{snaps: map[string]*store.DirectorySnapshot{}}
	sc := &fakeScanner{}
	app := NewAppModel(reader, sc, "/r", volume.Volume{})

	_, cmd := app.Update(key("s"))
	require.NotNil(t, cmd)
	assert.Equal(t, ViewScanning, app.State())
	assert.Contains(t, app.View(), "Scanning /r")

	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	require.NotEmpty(t, batch)

	// The scan itself is the last command of the batch
	reader.snaps["/r"] = &store.DirectorySnapshot{Accessible: []store.FileEntry{entry("/r/a", "a", 1)}}
	done := batch[len(batch)-1]()
	complete, ok := done.(ScanCompleteMsg)
	require.True(t, ok)
	assert.NoError(t, complete.Err)
	assert.Equal(t, []string{"/r"}, sc.roots)

	app.Update(complete)
	assert.Equal(t, ViewBrowser, app.State())
	assert.Contains(t, app.View(), "1 entries")
}

func TestApp_ScanErrorShown(t *testing.T) {
	app := NewAppModel(newFakeReader(), &fakeScanner{}, "/r", volume.Volume{})

	app.Update(ScanCompleteMsg{Err: errors.New("du exited with code 2")})
	assert.Equal(t, ViewBrowser, app.State())
	require.Error(t, app.Err())
	assert.Contains(t, app.View(), "Last scan failed: du exited with code 2")

	app.Update(ScanCompleteMsg{})
	assert.NotContains(t, app.View(), "Last scan failed")
	assert.Contains(t, app.View(), "Scan complete")
}

func TestBrowser_TableFillsTerminal(t *testing.T) {
	reader := &fakeReader{snaps: map[string]*store.DirectorySnapshot{"/r": {}}}
	for i := 0; i < 100; i++ {
		name := fmt.Sprintf("f%03d", i)
		reader.snaps["/r"].Accessible = append(reader.snaps["/r"].Accessible, entry("/r/"+name, name, uint64(100-i)))
	}
	reader.snaps["/r"].Restricted = []store.FileEntry{entry("/r/locked", "locked", 0)}

	for _, height := range []int{20, 30, 45} {
		m := NewBrowserViewModel(reader, "/r", volume.Volume{}, 100, height)
		assert.Equal(t, height, lipgloss.Height(m.View()), "height %d", height)

		m.SetNotice("notice")
		assert.Equal(t, height, lipgloss.Height(m.View()), "height %d with notice", height)
	}
}

func TestScanView_FollowsProgress(t *testing.T) {
	updates := make(chan *progress.ScanProgress, 1)
	v := NewScanViewModel("/r", updates, 100)
	assert.Contains(t, v.View(), "Initializing...")

	updates <- &progress.ScanProgress{Phase: progress.PhaseScanning, Root: "/r", CurrentPath: "/r/deep/dir", Memory: "2.0 MiB"}
	msg := waitForProgress(updates)()
	v, cmd := v.Update(msg)
	assert.NotNil(t, cmd)
	assert.Contains(t, v.View(), "deep/dir")
	assert.NotContains(t, v.View(), "/r/deep/dir")

	close(updates)
	assert.Nil(t, waitForProgress(updates)())
}
