package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/scan-io-git/scanio-audit/internal/workflow"
)

// Start runs the interactive screen until the user quits or ctx is done.
func Start(ctx context.Context, coord *workflow.Coordinator, opts ...Option) error {
	model := NewModel(ctx, coord, opts...)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	// Send blocks until the event loop receives, and transitions may be
	// committed from inside Update.
	unsubscribe := coord.Subscribe(func(s workflow.Snapshot) {
		go program.Send(snapshotMsg{snap: s})
	})
	defer unsubscribe()

	_, err := program.Run()
	return err
}
