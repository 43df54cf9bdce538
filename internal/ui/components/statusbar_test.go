package components

import (
	"testing"

	"github.com/fenilsonani/diskindex/internal/volume"
	"github.com/stretchr/testify/assert"
)

func TestStatusBar_Render(t *testing.T) {
	sb := NewStatusBar()
	sb.SetView("/home/u")
	sb.SetListing(3, 2*1024*1024)
	sb.SetShortcuts(map[string]string{"q": "quit", "enter": "open"})

	out := sb.Render(120)
	assert.Contains(t, out, "/home/u")
	assert.Contains(t, out, "3 entries")
	assert.Contains(t, out, "2.0 MiB")
	assert.Contains(t, out, "quit")
	assert.Contains(t, out, "open")
}

func TestStatusBar_Volume(t *testing.T) {
	sb := NewStatusBar()
	sb.SetVolume(volume.Volume{Path: "/", TotalBytes: 100, FreeBytes: 25, UsageLabel: "75%"})

	out := sb.Render(120)
	assert.Contains(t, out, "75% used")
	assert.Contains(t, out, "25 B free")
}

func TestStatusBar_NarrowDropsShortcuts(t *testing.T) {
	sb := NewStatusBar()
	sb.SetView("/a/very/long/directory/name/that/fills/the/bar")
	sb.SetShortcuts(map[string]string{"q": "quit"})

	out := sb.Render(30)
	assert.NotContains(t, out, "quit")
}

func TestRenderSimple(t *testing.T) {
	assert.Contains(t, RenderSimple("Press any key", 0), "Press any key")
}
