// Package bubbletea provides a Bubble Tea TUI for drip.
//
// The model never reads the stream itself. Turns are started through a
// [SubmitFunc], and the session's snapshots and alerts come back through an
// [Observer] registered with the chat controller.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/drip"
)

// SubmitFunc runs one turn for a thread and blocks until the session ends.
// history is the thread's messages before text.
type SubmitFunc func(ctx context.Context, threadID string, history []drip.Message, text string) error

// Threads is the thread catalog the TUI reads and creates threads in.
type Threads interface {
	List(ctx context.Context) (drip.Registry, error)
	Create(ctx context.Context) (drip.Thread, error)
}

// Run creates and runs the Bubble Tea TUI program. It blocks until the program
// exits. The context is used for graceful shutdown: when cancelled, the
// program quits.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// SnapshotMsg delivers a published snapshot to the model.
type SnapshotMsg struct {
	Snapshot drip.Snapshot
}

// AlertMsg delivers a user-visible alert to the model.
type AlertMsg struct {
	Alert drip.Alert
}

// TurnDoneMsg signals that a submitted turn has ended.
type TurnDoneMsg struct {
	Err error
}

// ThreadsChangedMsg signals that the thread catalog changed.
type ThreadsChangedMsg struct{}

// ThreadsLoadedMsg carries a freshly read registry.
type ThreadsLoadedMsg struct {
	Registry drip.Registry
	Err      error
}

// ThreadCreatedMsg carries a thread created with Ctrl+N.
type ThreadCreatedMsg struct {
	Thread drip.Thread
	Err    error
}
