package bubbletea

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/drip"
)

var _ drip.Observer = (*Observer)(nil)

// Observer forwards snapshots and alerts to the TUI as tea messages. Sends
// block until the model drains them or Close is called, so no final
// snapshot is dropped while the program is running.
type Observer struct {
	ch   chan tea.Msg
	done chan struct{}
	once sync.Once
}

// NewObserver creates an Observer with the given channel buffer.
func NewObserver(buffer int) *Observer {
	return &Observer{
		ch:   make(chan tea.Msg, buffer),
		done: make(chan struct{}),
	}
}

// Messages returns the channel the model listens on.
func (o *Observer) Messages() <-chan tea.Msg { return o.ch }

// Publish implements drip.Observer.
func (o *Observer) Publish(_ context.Context, s drip.Snapshot) error {
	o.send(SnapshotMsg{Snapshot: s})
	return nil
}

// Alert implements drip.Observer.
func (o *Observer) Alert(_ context.Context, a drip.Alert) {
	o.send(AlertMsg{Alert: a})
}

// Close releases pending and future sends. Call it after the program exits.
func (o *Observer) Close() {
	o.once.Do(func() { close(o.done) })
}

func (o *Observer) send(msg tea.Msg) {
	select {
	case o.ch <- msg:
	case <-o.done:
	}
}
