package ui

import "github.com/charmbracelet/lipgloss"

var (
	TableGray = lipgloss.Color("240")
	Accent    = lipgloss.Color("#6ea4ff")
)

var Title = lipgloss.NewStyle().Inline(true).Bold(true).Foreground(lipgloss.Color("252")).Render
var Help = lipgloss.NewStyle().Inline(true).Foreground(lipgloss.Color("241")).Render
var Faint = lipgloss.NewStyle().Inline(true).Faint(true).Render
var Warn = lipgloss.NewStyle().Inline(true).Foreground(lipgloss.Color("214")).Render

var TableBase = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(TableGray).
	Render
