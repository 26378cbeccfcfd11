// Package mock provides test doubles for drip interfaces using function fields.
package mock

import (
	"context"
	"io"
	"sync"

	"github.com/fwojciec/drip"
)

// Interface compliance checks.
var (
	_ drip.Backend  = (*Backend)(nil)
	_ drip.Stream   = (*Stream)(nil)
	_ drip.Observer = (*Observer)(nil)
	_ drip.Store    = (*Store)(nil)
)

// Backend is a test double for drip.Backend.
// Set ChatFn before calling Chat.
type Backend struct {
	ChatFn func(ctx context.Context, req drip.Request) (drip.Stream, error)
}

// Chat delegates to ChatFn.
func (b *Backend) Chat(ctx context.Context, req drip.Request) (drip.Stream, error) {
	return b.ChatFn(ctx, req)
}

// Stream is a test double for drip.Stream.
// Set the function fields for the methods you need.
type Stream struct {
	NextFn  func() (drip.Event, error)
	StateFn func() drip.StreamState
	CloseFn func() error
}

// Next delegates to NextFn.
func (s *Stream) Next() (drip.Event, error) {
	return s.NextFn()
}

// State delegates to StateFn.
func (s *Stream) State() drip.StreamState {
	return s.StateFn()
}

// Close delegates to CloseFn.
func (s *Stream) Close() error {
	return s.CloseFn()
}

// Events returns a Stream that yields events in order, then io.EOF.
// Closed reports how many times Close was called.
func Events(events ...drip.Event) (*Stream, func() int) {
	var (
		mu     sync.Mutex
		i      int
		closed int
		state  = drip.StreamStateNew
	)
	s := &Stream{
		NextFn: func() (drip.Event, error) {
			mu.Lock()
			defer mu.Unlock()
			if i >= len(events) {
				state = drip.StreamStateComplete
				return nil, io.EOF
			}
			state = drip.StreamStateStreaming
			e := events[i]
			i++
			return e, nil
		},
		StateFn: func() drip.StreamState {
			mu.Lock()
			defer mu.Unlock()
			return state
		},
		CloseFn: func() error {
			mu.Lock()
			defer mu.Unlock()
			closed++
			return nil
		},
	}
	return s, func() int {
		mu.Lock()
		defer mu.Unlock()
		return closed
	}
}

// Observer is a test double for drip.Observer.
type Observer struct {
	PublishFn func(ctx context.Context, s drip.Snapshot) error
	AlertFn   func(ctx context.Context, a drip.Alert)
}

// Publish delegates to PublishFn.
func (o *Observer) Publish(ctx context.Context, s drip.Snapshot) error {
	return o.PublishFn(ctx, s)
}

// Alert delegates to AlertFn.
func (o *Observer) Alert(ctx context.Context, a drip.Alert) {
	o.AlertFn(ctx, a)
}

// Store is a test double for drip.Store.
type Store struct {
	GetFn    func(ctx context.Context, key string) ([]byte, error)
	PutFn    func(ctx context.Context, key string, value []byte) error
	DeleteFn func(ctx context.Context, key string) error
}

// Get delegates to GetFn.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	return s.GetFn(ctx, key)
}

// Put delegates to PutFn.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	return s.PutFn(ctx, key, value)
}

// Delete delegates to DeleteFn.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.DeleteFn(ctx, key)
}
