// Package chat drives one stream session per submission: it issues the
// backend call, folds decoded events into a turn, and publishes snapshots
// to observers under the emission policy.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/drip"
	"github.com/fwojciec/drip/emit"
)

// Controller runs stream sessions against a backend. Sessions for different
// threads run independently; at most one session per thread is active.
type Controller struct {
	backend  drip.Backend
	observer drip.Observers
	interval time.Duration
	log      *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	active map[string]struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithObserver adds observers that receive every published snapshot and
// alert, in the order given.
func WithObserver(obs ...drip.Observer) Option {
	return func(c *Controller) { c.observer = append(c.observer, obs...) }
}

// WithInterval sets the minimum interval between throttled publishes.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) { c.interval = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithClock sets the clock consulted by the emission policy.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New creates a Controller for the given backend.
func New(backend drip.Backend, opts ...Option) *Controller {
	c := &Controller{
		backend:  backend,
		interval: emit.DefaultInterval,
		log:      slog.New(slog.DiscardHandler),
		now:      time.Now,
		active:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submission is one user turn.
type Submission struct {
	ThreadID string
	History  []drip.Message // prior messages of the thread
	Text     string
	Options  drip.Options
}

// Result describes how a session ended. Messages and Text are the last
// published state.
type Result struct {
	State    drip.SessionState
	Messages []drip.Message
	Text     string
}

// Active reports whether a session is running for the thread.
func (c *Controller) Active(threadID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[threadID]
	return ok
}

// Submit runs a session for sub and blocks until it ends. Cancelling ctx
// stops the session without an error or alert; content already published
// stays published. Transport failures raise an alert and are returned.
func (c *Controller) Submit(ctx context.Context, sub Submission) (Result, error) {
	if sub.ThreadID == "" {
		return Result{}, fmt.Errorf("chat: thread id is required: %w", drip.ErrValidation)
	}
	if strings.TrimSpace(sub.Text) == "" {
		return Result{}, fmt.Errorf("chat: message text is required: %w", drip.ErrValidation)
	}
	if !c.acquire(sub.ThreadID) {
		return Result{}, fmt.Errorf("chat: thread %s: %w", sub.ThreadID, drip.ErrSessionActive)
	}
	defer c.release(sub.ThreadID)

	s := &session{
		c:        c,
		threadID: sub.ThreadID,
		messages: drip.Append(sub.History, drip.UserMessage(sub.Text)),
		sched:    emit.New(c.interval),
		log:      c.log.With("thread", sub.ThreadID),
	}
	req := drip.Request{ThreadID: sub.ThreadID, Messages: s.messages, Options: sub.Options}
	if err := req.Validate(); err != nil {
		return Result{}, fmt.Errorf("chat: %w", err)
	}

	s.log.Debug("session requesting", "messages", len(req.Messages), "model", sub.Options.Model, "mode", sub.Options.Mode)
	s.publish(ctx, drip.SessionRequesting, false)

	stream, err := c.backend.Chat(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return s.cancelled(), nil
		}
		return s.fail(ctx, err)
	}
	defer stream.Close()
	s.src = stream

	return s.stream(ctx, stream)
}

func (c *Controller) acquire(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.active[id]; ok {
		return false
	}
	c.active[id] = struct{}{}
	return true
}

func (c *Controller) release(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, id)
}

// session is the state of one Submit call. It is confined to the
// controller goroutine; only stream.Next runs elsewhere.
type session struct {
	c        *Controller
	threadID string
	messages []drip.Message // last published message list
	replied  bool           // messages ends with the assistant reply
	text     string         // last published assistant text
	turn     drip.Turn
	sched    *emit.Scheduler
	log      *slog.Logger
	src      drip.Stream
	events   int
}

// malformedCounter is implemented by streams that skip undecodable lines.
type malformedCounter interface {
	Malformed() int
}

type next struct {
	event drip.Event
	err   error
}

func (s *session) stream(ctx context.Context, stream drip.Stream) (Result, error) {
	ch := make(chan next)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			e, err := stream.Next()
			select {
			case ch <- next{e, err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	arm := func() {
		if timerC != nil || !s.sched.Pending() {
			return
		}
		d := s.sched.Delay(s.c.now())
		if timer == nil {
			timer = time.NewTimer(d)
		} else {
			timer.Reset(d)
		}
		timerC = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return s.cancelled(), nil
		case <-timerC:
			timerC = nil
			if s.sched.Due(s.c.now()) {
				s.publish(ctx, drip.SessionStreaming, false)
			}
			arm()
		case n := <-ch:
			if ctx.Err() != nil {
				return s.cancelled(), nil
			}
			switch {
			case errors.Is(n.err, io.EOF):
				return s.complete(ctx), nil
			case n.err != nil:
				return s.fail(ctx, n.err)
			}
			s.apply(ctx, n.event)
			arm()
		}
	}
}

func (s *session) apply(ctx context.Context, e drip.Event) {
	s.events++
	if inert(e) {
		return
	}
	s.turn = s.turn.Apply(e)
	if ev, ok := e.(drip.EventError); ok {
		s.log.Warn("backend reported error", "message", ev.Message)
		s.c.observer.Alert(context.WithoutCancel(ctx), drip.Alert{ThreadID: s.threadID, Source: drip.AlertBackend, Message: ev.Message})
	}
	if s.sched.Offer(e.Kind(), s.c.now()) {
		s.publish(ctx, drip.SessionStreaming, false)
	}
}

// inert reports whether e leaves every turn unchanged. Such events are not
// offered to the scheduler.
func inert(e drip.Event) bool {
	switch e := e.(type) {
	case drip.EventContent:
		return e.Text == "" || drip.LooksLikeJSON(e.Text)
	case drip.EventThought:
		return e.Text == ""
	}
	return false
}

func (s *session) complete(ctx context.Context) Result {
	s.sched.Flush()
	s.publish(ctx, drip.SessionCompleted, true)
	attrs := []any{"events", s.events, "bytes", len(s.turn.Text())}
	if m, ok := s.src.(malformedCounter); ok {
		attrs = append(attrs, "malformed", m.Malformed())
	}
	s.log.Info("session completed", attrs...)
	return s.result(drip.SessionCompleted)
}

func (s *session) cancelled() Result {
	s.log.Info("session cancelled", "events", s.events)
	return s.result(drip.SessionCancelled)
}

func (s *session) fail(ctx context.Context, err error) (Result, error) {
	if s.sched.Flush() {
		s.publish(ctx, drip.SessionFailed, true)
	}
	s.log.Error("session failed", "error", err)
	s.c.observer.Alert(context.WithoutCancel(ctx), drip.Alert{ThreadID: s.threadID, Source: drip.AlertTransport, Message: err.Error()})
	return s.result(drip.SessionFailed), fmt.Errorf("chat: %w", err)
}

func (s *session) result(state drip.SessionState) Result {
	return Result{State: state, Messages: s.messages, Text: s.text}
}

// publish builds an immutable snapshot of the current turn and hands it to
// the observers. The assistant reply is added once and then replaced, never
// mutated in place. Observers get a context detached from cancellation.
func (s *session) publish(ctx context.Context, state drip.SessionState, final bool) {
	ctx = context.WithoutCancel(ctx)
	if !s.turn.Empty() {
		reply := drip.AssistantMessage(s.turn.Text())
		if s.replied {
			s.messages = drip.ReplaceLast(s.messages, reply)
		} else {
			s.messages = drip.Append(s.messages, reply)
			s.replied = true
		}
	}
	snap := drip.Snapshot{
		ThreadID: s.threadID,
		Messages: s.messages,
		Text:     s.turn.Text(),
		State:    state,
		Final:    final,
	}
	s.text = snap.Text
	if !final {
		snap.Annotation = s.turn.Annotation()
	}
	if err := s.c.observer.Publish(ctx, snap); err != nil {
		s.log.Error("publish failed", "state", state, "error", err)
	}
}
