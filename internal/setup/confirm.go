package setup

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

var detailStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

// Confirmer asks for signing approval in the terminal.
type Confirmer struct{}

// Confirm shows the request and waits for a yes/no answer. Escaping the form rejects.
func (Confirmer) Confirm(ctx context.Context, action, details string) (bool, error) {
	fmt.Println(stepStyle.Render(action))
	if details != "" {
		fmt.Println(detailStyle.Render(details))
	}

	var approved bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(action + "?").
				Affirmative("Sign").
				Negative("Reject").
				Value(&approved),
		),
	).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return approved, nil
}
