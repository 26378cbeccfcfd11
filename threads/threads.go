// Package threads keeps the durable store in step with published snapshots:
// one message list per thread plus an ordered registry of thread summaries.
//
// Writes are ordered so that no reader ever sees a non-empty message list
// without a registry entry. Publish writes the registry before the message
// list; Delete removes the message list before the registry entry. A reader
// between the two writes sees an entry whose messages are absent, which
// reads as an empty thread.
//
// Writers within one process are serialized. Two processes writing the same
// store race, and the last write wins.
package threads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/drip"
	"github.com/fwojciec/drip/json"
	"github.com/google/uuid"
)

// RegistryKey is the store key of the thread registry.
const RegistryKey = "threads"

// MessagesKey returns the store key of a thread's message list.
func MessagesKey(id string) string {
	return "thread/" + id
}

// Service implements [drip.Observer] over a [drip.Store].
type Service struct {
	store    drip.Store
	notifier drip.Notifier
	log      *slog.Logger
	now      func() time.Time
	newID    func() string
	titleLen int

	mu sync.Mutex
}

// Interface compliance check.
var _ drip.Observer = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the notifier told about every successful write.
func WithNotifier(n drip.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock sets the clock used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator sets the generator of ids for Create.
func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

// WithTitleLength sets the grapheme bound of derived titles.
func WithTitleLength(n int) Option {
	return func(s *Service) { s.titleLen = n }
}

// New creates a Service over store.
func New(store drip.Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		notifier: drip.NotifierFunc(func() {}),
		log:      slog.New(slog.DiscardHandler),
		now:      time.Now,
		newID:    uuid.NewString,
		titleLen: DefaultTitleLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Publish persists the snapshot's message list and updates the registry.
// A new entry takes its title from the first user message; an existing one
// refreshes it unless the title is locked.
func (s *Service) Publish(ctx context.Context, snap drip.Snapshot) error {
	if snap.ThreadID == "" {
		return fmt.Errorf("threads: publish: thread id is required: %w", drip.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := s.registry(ctx)
	if err != nil {
		return err
	}
	entry, ok := reg.Lookup(snap.ThreadID)
	if !ok {
		entry = drip.ThreadEntry{ID: snap.ThreadID, Title: DefaultTitle}
	}
	entry.UpdatedAt = s.now()
	if !entry.TitleLocked {
		if first, ok := drip.FirstUser(snap.Messages); ok {
			if title := DeriveTitle(first, s.titleLen); title != "" {
				entry.Title = title
			}
		}
	}
	if err := s.putRegistry(ctx, reg.Upsert(entry)); err != nil {
		return err
	}
	if err := s.putMessages(ctx, snap.ThreadID, snap.Messages); err != nil {
		return err
	}
	s.notifier.Notify()
	return nil
}

// Alert records a session alert. The service has no user surface.
func (s *Service) Alert(_ context.Context, a drip.Alert) {
	s.log.Warn("session alert", "thread", a.ThreadID, "source", a.Source, "message", a.Message)
}

// Create registers a new empty thread.
func (s *Service) Create(ctx context.Context) (drip.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := s.registry(ctx)
	if err != nil {
		return drip.Thread{}, err
	}
	t := drip.Thread{ID: s.newID(), Title: DefaultTitle, UpdatedAt: s.now()}
	if err := s.putRegistry(ctx, reg.Upsert(t.Entry())); err != nil {
		return drip.Thread{}, err
	}
	s.notifier.Notify()
	s.log.Debug("thread created", "thread", t.ID)
	return t, nil
}

// Import stores a whole thread, replacing any thread with the same id.
func (s *Service) Import(ctx context.Context, t drip.Thread) error {
	if t.ID == "" {
		return fmt.Errorf("threads: import: thread id is required: %w", drip.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := s.registry(ctx)
	if err != nil {
		return err
	}
	if t.Title == "" {
		t.Title = DefaultTitle
	}
	if err := s.putRegistry(ctx, reg.Upsert(t.Entry())); err != nil {
		return err
	}
	if err := s.putMessages(ctx, t.ID, t.Messages); err != nil {
		return err
	}
	s.notifier.Notify()
	return nil
}

// Get returns the thread with its messages. A thread without a registry
// entry is drip.ErrThreadNotFound even if stray messages exist.
func (s *Service) Get(ctx context.Context, id string) (drip.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := s.registry(ctx)
	if err != nil {
		return drip.Thread{}, err
	}
	entry, ok := reg.Lookup(id)
	if !ok {
		return drip.Thread{}, fmt.Errorf("threads: %s: %w", id, drip.ErrThreadNotFound)
	}
	msgs, err := s.messages(ctx, id)
	if err != nil {
		return drip.Thread{}, err
	}
	return drip.Thread{
		ID:          entry.ID,
		Title:       entry.Title,
		Messages:    msgs,
		UpdatedAt:   entry.UpdatedAt,
		TitleLocked: entry.TitleLocked,
	}, nil
}

// List returns the registry in stored order.
func (s *Service) List(ctx context.Context) (drip.Registry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry(ctx)
}

// Rename sets a thread's title and locks it against automatic derivation.
func (s *Service) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("threads: rename: title is required: %w", drip.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := s.registry(ctx)
	if err != nil {
		return err
	}
	entry, ok := reg.Lookup(id)
	if !ok {
		return fmt.Errorf("threads: %s: %w", id, drip.ErrThreadNotFound)
	}
	entry.Title = title
	entry.TitleLocked = true
	if err := s.putRegistry(ctx, reg.Upsert(entry)); err != nil {
		return err
	}
	s.notifier.Notify()
	return nil
}

// Delete removes a thread's messages and then its registry entry.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := s.registry(ctx)
	if err != nil {
		return err
	}
	if reg.Index(id) < 0 {
		return fmt.Errorf("threads: %s: %w", id, drip.ErrThreadNotFound)
	}
	if err := s.store.Delete(ctx, MessagesKey(id)); err != nil {
		return fmt.Errorf("threads: delete messages: %w", err)
	}
	if err := s.putRegistry(ctx, reg.Remove(id)); err != nil {
		return err
	}
	s.notifier.Notify()
	s.log.Debug("thread deleted", "thread", id)
	return nil
}

// Prune deletes message lists that have no registry entry, as left behind
// when another process rewrites the registry concurrently. It returns the
// ids of the removed threads. The store must implement [drip.KeyLister].
func (s *Service) Prune(ctx context.Context) ([]string, error) {
	lister, ok := s.store.(drip.KeyLister)
	if !ok {
		return nil, fmt.Errorf("threads: prune: store cannot list keys: %w", errors.ErrUnsupported)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := s.registry(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := lister.Keys(ctx, MessagesKey(""))
	if err != nil {
		return nil, fmt.Errorf("threads: prune: %w", err)
	}
	var pruned []string
	for _, k := range keys {
		id := strings.TrimPrefix(k, MessagesKey(""))
		if reg.Index(id) >= 0 {
			continue
		}
		if err := s.store.Delete(ctx, k); err != nil {
			return pruned, fmt.Errorf("threads: prune %s: %w", id, err)
		}
		pruned = append(pruned, id)
	}
	if len(pruned) > 0 {
		s.notifier.Notify()
		s.log.Info("pruned stray messages", "threads", len(pruned))
	}
	return pruned, nil
}

func (s *Service) registry(ctx context.Context) (drip.Registry, error) {
	data, err := s.store.Get(ctx, RegistryKey)
	if errors.Is(err, drip.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("threads: read registry: %w", err)
	}
	reg, err := json.UnmarshalRegistry(data)
	if err != nil {
		return nil, fmt.Errorf("threads: %w", err)
	}
	return reg, nil
}

func (s *Service) putRegistry(ctx context.Context, reg drip.Registry) error {
	data, err := json.MarshalRegistry(reg)
	if err != nil {
		return fmt.Errorf("threads: %w", err)
	}
	if err := s.store.Put(ctx, RegistryKey, data); err != nil {
		return fmt.Errorf("threads: write registry: %w", err)
	}
	return nil
}

func (s *Service) messages(ctx context.Context, id string) ([]drip.Message, error) {
	data, err := s.store.Get(ctx, MessagesKey(id))
	if errors.Is(err, drip.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("threads: read messages: %w", err)
	}
	msgs, err := json.UnmarshalMessages(data)
	if err != nil {
		return nil, fmt.Errorf("threads: %w", err)
	}
	return msgs, nil
}

func (s *Service) putMessages(ctx context.Context, id string, msgs []drip.Message) error {
	data, err := json.MarshalMessages(msgs)
	if err != nil {
		return fmt.Errorf("threads: %w", err)
	}
	if err := s.store.Put(ctx, MessagesKey(id), data); err != nil {
		return fmt.Errorf("threads: write messages: %w", err)
	}
	return nil
}
