package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fenilsonani/diskindex/internal/ui/styles"
	"github.com/fenilsonani/diskindex/internal/ui/utils"
	"github.com/fenilsonani/diskindex/internal/volume"
	pkgutils "github.com/fenilsonani/diskindex/pkg/utils"
)

// shortcutOrder fixes the display order of known keys
var shortcutOrder = []string{"↑/↓", "enter", "backspace", "g", "s", "q"}

// StatusBar represents a status bar component that displays at the bottom of views
type StatusBar struct {
	viewName  string
	entries   int
	size      uint64
	volume    *volume.Volume
	shortcuts map[string]string
}

// NewStatusBar creates a new status bar
func NewStatusBar() *StatusBar {
	return &StatusBar{
		shortcuts: make(map[string]string),
	}
}

// SetView sets the current view name
func (s *StatusBar) SetView(viewName string) {
	s.viewName = viewName
}

// SetListing sets the entry count and total size of what is shown
func (s *StatusBar) SetListing(entries int, size uint64) {
	s.entries = entries
	s.size = size
}

// SetVolume shows capacity of the volume being browsed
func (s *StatusBar) SetVolume(v volume.Volume) {
	s.volume = &v
}

// SetShortcuts sets the shortcuts to display
func (s *StatusBar) SetShortcuts(shortcuts map[string]string) {
	s.shortcuts = shortcuts
}

// Render renders the status bar with the given width
func (s *StatusBar) Render(width int) string {
	if width <= 0 {
		width = 80
	}

	var parts []string

	if s.viewName != "" {
		parts = append(parts, styles.BoldStyle.Render(utils.ShortenPath(s.viewName, "", width/3)))
	}

	parts = append(parts, fmt.Sprintf("%d entries", s.entries))
	if s.size > 0 {
		parts = append(parts, styles.FileSizeStyle.Render(pkgutils.FormatBytes(s.size)))
	}

	if v := s.volume; v != nil {
		used := v.TotalBytes - min(v.FreeBytes, v.TotalBytes)
		bar := styles.UsageBar(used, v.TotalBytes, 10)
		parts = append(parts, strings.TrimSpace(fmt.Sprintf("%s %s used, %s free",
			bar, v.UsageLabel, pkgutils.FormatBytes(v.FreeBytes))))
	}

	leftSide := strings.Join(parts, " • ")

	var shortcutParts []string
	seen := make(map[string]bool, len(shortcutOrder))
	for _, key := range shortcutOrder {
		seen[key] = true
		if desc, ok := s.shortcuts[key]; ok {
			shortcutParts = append(shortcutParts, fmt.Sprintf("%s:%s", styles.DimStyle.Render(key), desc))
		}
	}
	for key, desc := range s.shortcuts {
		if !seen[key] {
			shortcutParts = append(shortcutParts, fmt.Sprintf("%s:%s", styles.DimStyle.Render(key), desc))
		}
	}

	rightSide := strings.Join(shortcutParts, " ")

	leftLen := lipgloss.Width(leftSide)
	rightLen := lipgloss.Width(rightSide)
	spacing := width - leftLen - rightLen - 2 // -2 for padding

	if spacing < 1 {
		// Not enough room for shortcuts
		rightSide = ""
		spacing = 1
	}

	return styles.StatusBarStyle.Width(width).Render(leftSide + strings.Repeat(" ", spacing) + rightSide)
}

// RenderSimple renders a simple status bar with just a message
func RenderSimple(message string, width int) string {
	if width <= 0 {
		width = 80
	}

	return styles.StatusBarStyle.Width(width).Render(message)
}
