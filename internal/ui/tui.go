// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program around the player
package ui

import (
	"github.com/ampkit/ampkit-go/internal/player"
	tea "github.com/charmbracelet/bubbletea"
)

// Run builds the bubbletea program for the player. The caller runs it
// and closes the player when it exits.
func Run(p *player.Player) *tea.Program {
	return tea.NewProgram(NewModel(p), tea.WithAltScreen())
}
