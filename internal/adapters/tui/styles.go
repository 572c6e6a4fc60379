package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles of the board.
type Styles struct {
	Title    lipgloss.Style
	Period   lipgloss.Style
	Rank     lipgloss.Style
	TopRank  lipgloss.Style
	Name     lipgloss.Style
	Role     lipgloss.Style
	Positive lipgloss.Style
	Negative lipgloss.Style
	Selected lipgloss.Style
	Leaving  lipgloss.Style
	Empty    lipgloss.Style
	Total    lipgloss.Style
	Status   lipgloss.Style
}

// DefaultStyles returns the board palette.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E6EDF3")),
		Period:   lipgloss.NewStyle().Foreground(lipgloss.Color("#8B949E")),
		Rank:     lipgloss.NewStyle().Width(4).Foreground(lipgloss.Color("#8B949E")),
		TopRank:  lipgloss.NewStyle().Width(4).Bold(true).Foreground(lipgloss.Color("#F0B429")),
		Name:     lipgloss.NewStyle().Width(20),
		Role:     lipgloss.NewStyle().Width(18).Foreground(lipgloss.Color("#8B949E")),
		Positive: lipgloss.NewStyle().Width(10).Align(lipgloss.Right).Foreground(lipgloss.Color("#3FB950")),
		Negative: lipgloss.NewStyle().Width(10).Align(lipgloss.Right).Foreground(lipgloss.Color("#F85149")),
		Selected: lipgloss.NewStyle().Background(lipgloss.Color("#30363D")),
		Leaving:  lipgloss.NewStyle().Faint(true).Strikethrough(true),
		Empty:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#8B949E")),
		Total:    lipgloss.NewStyle().Bold(true).MarginTop(1),
		Status:   lipgloss.NewStyle().Foreground(lipgloss.Color("#F85149")),
	}
}
