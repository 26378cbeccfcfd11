package drip

import (
	"context"
	"errors"
)

// Snapshot is an immutable published view of a thread during a session.
// Messages holds the full ordered message list, with the in-progress
// assistant message last once streaming has produced text.
type Snapshot struct {
	ThreadID   string
	Messages   []Message
	Text       string // durable assistant text so far
	Annotation string // ephemeral, never persisted
	State      SessionState
	Final      bool
}

// Display returns Text with the annotation as a trailing paragraph.
func (s Snapshot) Display() string {
	return withAnnotation(s.Text, s.Annotation)
}

// AlertSource classifies a user-visible notification.
type AlertSource string

const (
	AlertBackend   AlertSource = "backend"   // error event reported by the backend
	AlertTransport AlertSource = "transport" // request, body or read failure
)

// Alert is a user-visible failure notification.
type Alert struct {
	ThreadID string
	Source   AlertSource
	Message  string
}

// Observer receives published snapshots and alerts.
type Observer interface {
	Publish(ctx context.Context, s Snapshot) error
	Alert(ctx context.Context, a Alert)
}

// Observers fans out to every observer in order.
type Observers []Observer

// Publish delivers s to every observer and joins their errors.
func (o Observers) Publish(ctx context.Context, s Snapshot) error {
	var errs []error
	for _, obs := range o {
		if err := obs.Publish(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Alert delivers a to every observer.
func (o Observers) Alert(ctx context.Context, a Alert) {
	for _, obs := range o {
		obs.Alert(ctx, a)
	}
}

var _ Observer = Observers(nil)
