package ndjson

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/fwojciec/drip"
)

// DefaultChunkSize is the size of each body read.
const DefaultChunkSize = 4 << 10

// Stream implements [drip.Stream] over a newline-delimited JSON body.
//
// Next must be called from a single goroutine. State, Malformed and Close
// are safe to call concurrently with Next.
type Stream struct {
	ctx   context.Context
	body  io.ReadCloser
	dec   *Decoder
	log   *slog.Logger
	buf   []byte
	queue []drip.Event
	eof   bool

	mu        sync.Mutex
	state     drip.StreamState
	err       error // terminal error, if any
	malformed int

	closeOnce sync.Once
	closeErr  error
}

// Interface compliance check.
var _ drip.Stream = (*Stream)(nil)

// Option configures a Stream.
type Option func(*Stream)

// WithLogger sets the logger that records skipped lines.
func WithLogger(l *slog.Logger) Option {
	return func(s *Stream) { s.log = l }
}

// WithChunkSize sets the size of each body read.
func WithChunkSize(n int) Option {
	return func(s *Stream) {
		if n > 0 {
			s.buf = make([]byte, n)
		}
	}
}

// NewStream returns a Stream reading events from body. The stream owns body
// and closes it on Close.
func NewStream(ctx context.Context, body io.ReadCloser, opts ...Option) *Stream {
	s := &Stream{
		ctx:   ctx,
		body:  body,
		dec:   NewDecoder(),
		log:   slog.New(slog.DiscardHandler),
		state: drip.StreamStateNew,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.buf == nil {
		s.buf = make([]byte, DefaultChunkSize)
	}
	return s
}

// Next returns the next event in wire order, or io.EOF when the body is
// exhausted. Malformed lines are logged and skipped.
func (s *Stream) Next() (drip.Event, error) {
	if err := s.terminal(); err != nil {
		return nil, err
	}
	for {
		if len(s.queue) > 0 {
			e := s.queue[0]
			s.queue = s.queue[1:]
			s.setState(drip.StreamStateStreaming)
			return e, nil
		}
		if s.eof {
			s.setState(drip.StreamStateComplete)
			return nil, io.EOF
		}
		if err := s.ctx.Err(); err != nil {
			return nil, s.fail(err)
		}

		n, err := s.body.Read(s.buf)
		if n > 0 {
			s.parse(s.dec.Feed(s.buf[:n]))
		}
		switch {
		case errors.Is(err, io.EOF):
			s.parse(s.dec.Flush())
			s.eof = true
		case err != nil:
			return nil, s.fail(err)
		}
	}
}

// State returns the current stream state.
func (s *Stream) State() drip.StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Malformed returns the number of lines skipped so far.
func (s *Stream) Malformed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.malformed
}

// Close closes the underlying body. It is safe to call more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.state != drip.StreamStateComplete && s.state != drip.StreamStateError {
		s.state = drip.StreamStateClosed
	}
	s.mu.Unlock()
	s.closeOnce.Do(func() { s.closeErr = s.body.Close() })
	return s.closeErr
}

func (s *Stream) parse(lines []string) {
	for _, line := range lines {
		e, err := ParseLine(line)
		if err != nil {
			s.mu.Lock()
			s.malformed++
			s.mu.Unlock()
			s.log.Debug("skipping malformed line", "error", err, "line", line)
			continue
		}
		s.queue = append(s.queue, e)
	}
}

func (s *Stream) terminal() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case drip.StreamStateComplete:
		return io.EOF
	case drip.StreamStateError:
		return s.err
	case drip.StreamStateClosed:
		return drip.ErrStreamClosed
	}
	return nil
}

func (s *Stream) setState(st drip.StreamState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != drip.StreamStateClosed {
		s.state = st
	}
}

// fail records a terminal read error. A failure after cancellation is
// reported as the context's cause so callers can tell it from I/O errors.
func (s *Stream) fail(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == drip.StreamStateClosed {
		return drip.ErrStreamClosed
	}
	s.state = drip.StreamStateError
	if s.ctx.Err() != nil {
		s.err = context.Cause(s.ctx)
	} else {
		s.err = fmt.Errorf("ndjson: read: %w", err)
	}
	return s.err
}
