package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Spinner cycles through braille frames on every tick
type Spinner struct {
	frame int
}

// Next advances the spinner to the next frame
func (s *Spinner) Next() {
	s.frame = (s.frame + 1) % len(spinnerFrames)
}

// View returns the current spinner frame
func (s Spinner) View() string {
	return spinnerFrames[s.frame]
}

// LoadingIndicator renders a spinner next to a short status text
type LoadingIndicator struct {
	Spinner
	Message string
}

// View renders the loading indicator
func (l LoadingIndicator) View() string {
	return fmt.Sprintf("%s %s",
		accentStyle.Render(l.Spinner.View()),
		mutedStyle.Render(l.Message))
}

// renderBar draws a horizontal bar filled to share (0..1) of width cells
func renderBar(share float64, width int, color lipgloss.Color) string {
	share = min(max(share, 0), 1)
	filled := int(float64(width)*share + 0.5)
	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", width-filled))
}

// LoadingOverlay centers the indicator in a width x height box
func LoadingOverlay(width, height int, indicator LoadingIndicator) string {
	hint := dimStyle.Render("[q to quit]")
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(indicator.View() + "\n\n" + hint)
}
