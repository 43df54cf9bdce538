package utils

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestShortenPath(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		root  string
		width int
		want  string
	}{
		{"relative to root", "/home/u/projects/a.iso", "/home/u", 40, "projects/a.iso"},
		{"root itself stays absolute", "/home/u", "/home/u", 40, "/home/u"},
		{"outside root unchanged", "/tmp/x.iso", "/home/u", 40, "/tmp/x.iso"},
		{"sibling with shared prefix", "/home/user2/x.iso", "/home/u", 40, "/home/user2/x.iso"},
		{"no root", "/home/u/a.iso", "", 40, "/home/u/a.iso"},
		{"drops leading segments", "/r/aaaa/bbbb/cccc/file.bin", "/r", 16, "…/cccc/file.bin"},
		{"long base name keeps extension", "/r/abcdefghijklmnopqrstuvwxyz.bin", "/r", 10, "…vwxyz.bin"},
		{"one column", "/r/a/b", "", 1, "…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShortenPath(tt.path, tt.root, tt.width)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, lipgloss.Width(got), tt.width)
		})
	}
}

func TestBrowserChrome_Rows(t *testing.T) {
	assert.Equal(t, 4, BrowserChrome{}.Rows())
	assert.Equal(t, 5, BrowserChrome{Restricted: true}.Rows())
	assert.Equal(t, 9, BrowserChrome{Banner: true, Notice: true, Restricted: true}.Rows())
}

func TestTableHeight(t *testing.T) {
	assert.Equal(t, 36, TableHeight(40, BrowserChrome{}))
	assert.Equal(t, 35, TableHeight(40, BrowserChrome{Restricted: true}))

	// Never smaller than a header and a few rows
	assert.Equal(t, minTableRows, TableHeight(0, BrowserChrome{}))
	assert.Equal(t, minTableRows, TableHeight(6, BrowserChrome{Banner: true}))
}

func TestNameColumnWidth(t *testing.T) {
	assert.Equal(t, 100-SizeColumnWidth-MarkColumnWidth-3*cellPadding, NameColumnWidth(100))
	assert.Equal(t, NameColumnWidth(MinTerminalWidth), NameColumnWidth(0))
	assert.Equal(t, MinNameColumnWidth, NameColumnWidth(10))
}

func TestSizeWarning(t *testing.T) {
	assert.True(t, IsTerminalTooSmall(MinTerminalWidth-1, MinTerminalHeight))
	assert.False(t, IsTerminalTooSmall(MinTerminalWidth, MinTerminalHeight))
	assert.Empty(t, GetSizeWarningBanner(120, 40))
	assert.Empty(t, GetSizeWarningBanner(0, 0))

	banner := GetSizeWarningBanner(40, 10)
	assert.Contains(t, banner, "Terminal too small")
	assert.Contains(t, banner, "40x10")
}
