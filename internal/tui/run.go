package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/utafrali/storefront/internal/app"
	"github.com/utafrali/storefront/internal/catalog"
)

// Run browses the whole catalog until the user quits or ctx is cancelled.
func Run(ctx context.Context, a *app.App) error {
	list := a.Storefront.Products(a.Storefront.DefaultFilters(),
		catalog.WithName("browser"),
		catalog.WithLogger(a.Logger()),
	)
	defer list.Close()

	model := NewModel(ctx, list, a.Session, a.Notices)
	defer model.Close()

	_, err := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen()).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("run catalog browser: %w", err)
	}
	return nil
}
