package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run drives the board in the terminal until the user quits or ctx ends.
func Run(ctx context.Context, deps Dependencies, opts ...tea.ProgramOption) error {
	m := New(deps)
	defer m.Close()

	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	if _, err := tea.NewProgram(m, opts...).Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("terminal ui: %w", err)
	}
	return nil
}
