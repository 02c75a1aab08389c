package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// ErrorModel is a model that can end with an error of its own.
type ErrorModel interface {
	tea.Model
	Err() error
}

// Run runs model and returns the final model and the error it ended with.
// An error from Bubble Tea itself takes precedence.
func Run(model ErrorModel, opts ...tea.ProgramOption) (tea.Model, error) {
	result, teaErr := tea.NewProgram(model, opts...).Run()
	if teaErr != nil {
		return result, teaErr
	}
	if m, ok := result.(ErrorModel); ok {
		return result, m.Err()
	}
	return result, nil
}
