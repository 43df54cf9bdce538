package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fenilsonani/diskindex/internal/ui/models"
	"github.com/fenilsonani/diskindex/internal/volume"
)

// RunBrowser starts the interactive snapshot browser at root
func RunBrowser(reader models.SnapshotReader, sc models.Scanner, root string) error {
	m := models.NewAppModel(reader, sc, root, volume.Fetch(root))

	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running interactive mode: %w", err)
	}

	return nil
}
