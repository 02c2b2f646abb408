package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/strrl/coach-dashboard/pkg/models"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("63"))
	sectionStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	accentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	interimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	toastStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("24"))
	errorToastStyle = toastStyle.Copy().Background(lipgloss.Color("124"))
)

var senderColors = map[models.Sender]lipgloss.Color{
	models.SenderUser:   lipgloss.Color("39"),
	models.SenderCoach:  lipgloss.Color("42"),
	models.SenderSystem: lipgloss.Color("243"),
}

var moodColors = map[string]lipgloss.Color{
	"happy":    lipgloss.Color("42"),
	"excited":  lipgloss.Color("214"),
	"neutral":  lipgloss.Color("250"),
	"stressed": lipgloss.Color("203"),
	"sad":      lipgloss.Color("69"),
	"anxious":  lipgloss.Color("170"),
}

func senderStyle(s models.Sender) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(senderColors[s])
}

func moodColor(emotion string) lipgloss.Color {
	if c, ok := moodColors[emotion]; ok {
		return c
	}
	return lipgloss.Color("252")
}
