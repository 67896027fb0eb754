package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/vanpelt/rpsh/internal/logger"
)

// App runs the form surface for one controller
type App struct {
	ctrl    Controller
	surface *Surface
	values  FormValues
}

// NewApp creates an App. The surface must be the one the controller was built with.
func NewApp(ctrl Controller, surface *Surface, values FormValues) *App {
	return &App{
		ctrl:    ctrl,
		surface: surface,
		values:  values,
	}
}

// Run blocks until the user quits or ctx is cancelled
func (a *App) Run(ctx context.Context) error {
	m := NewModel(ctx, a.ctrl, a.surface, a.values)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	logger.Debugf("form surface closed")
	return nil
}
