package utils

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fenilsonani/diskindex/internal/ui/styles"
)

// Browser table columns. bubbles' table pads every cell by one column on
// each side.
const (
	SizeColumnWidth    = 12
	MarkColumnWidth    = 2
	MinNameColumnWidth = 20
	cellPadding        = 2
)

// Rows the browser draws around its table
const (
	titleRows    = 2 // title and its bottom margin
	footerRows   = 2 // blank separator and status bar
	bannerRows   = 2
	noticeRows   = 1
	summaryRows  = 1
	headerRows   = 2 // column titles and their rule
	minTableRows = headerRows + 3
)

const (
	// MinTerminalWidth fits the narrowest table plus a readable status bar
	MinTerminalWidth = 60
	// MinTerminalHeight fits the chrome and ten entries
	MinTerminalHeight = titleRows + noticeRows + summaryRows + footerRows + headerRows + 10
)

const ellipsis = "…"

// BrowserChrome describes the optional lines drawn around the browser table
type BrowserChrome struct {
	Banner     bool // terminal size warning
	Notice     bool // outcome of the last scan
	Restricted bool // count of entries that could not be read
}

// Rows is the number of terminal rows the chrome occupies
func (c BrowserChrome) Rows() int {
	rows := titleRows + footerRows
	if c.Banner {
		rows += bannerRows
	}
	if c.Notice {
		rows += noticeRows
	}
	if c.Restricted {
		rows += summaryRows
	}
	return rows
}

// TableHeight is the table height, header included, that fills a terminal
// of termHeight rows around the chrome
func TableHeight(termHeight int, c BrowserChrome) int {
	return max(termHeight-c.Rows(), minTableRows)
}

// NameColumnWidth is the width left for names once the size and marker
// columns are laid out
func NameColumnWidth(termWidth int) int {
	if termWidth <= 0 {
		termWidth = MinTerminalWidth
	}
	return max(termWidth-SizeColumnWidth-MarkColumnWidth-3*cellPadding, MinNameColumnWidth)
}

// ShortenPath renders path relative to root when it lies below it, then
// drops leading segments until it fits width. A base name wider than width
// keeps its end, where the extension is.
func ShortenPath(path, root string, width int) string {
	sep := string(filepath.Separator)
	if root != "" {
		if rel, err := filepath.Rel(root, path); err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+sep) {
			path = rel
		}
	}

	if lipgloss.Width(path) <= width {
		return path
	}
	if width <= 1 {
		return ellipsis
	}

	segs := strings.Split(path, sep)
	tail := segs[len(segs)-1]
	if lipgloss.Width(ellipsis+sep+tail) <= width {
		for i := len(segs) - 2; i >= 0; i-- {
			next := segs[i] + sep + tail
			if lipgloss.Width(ellipsis+sep+next) > width {
				break
			}
			tail = next
		}
		return ellipsis + sep + tail
	}

	r := []rune(tail)
	return ellipsis + string(r[len(r)-min(len(r), width-1):])
}

// IsTerminalTooSmall checks if the terminal is below minimum recommended size
func IsTerminalTooSmall(width, height int) bool {
	return width < MinTerminalWidth || height < MinTerminalHeight
}

// GetSizeWarningBanner returns a warning banner if terminal is too small.
// A size of zero means it is not known yet and gives no banner.
func GetSizeWarningBanner(width, height int) string {
	if width <= 0 || height <= 0 || !IsTerminalTooSmall(width, height) {
		return ""
	}

	warning := fmt.Sprintf("⚠️  Terminal too small! Recommended: %dx%d or larger", MinTerminalWidth, MinTerminalHeight)
	warning = styles.WarningStyle.Render(warning) +
		styles.DimStyle.Render(" (current: ") +
		styles.WarningStyle.Render(fmt.Sprintf("%dx%d", width, height)) +
		styles.DimStyle.Render(")")

	return warning + "\n\n"
}
