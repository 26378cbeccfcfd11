package gemini

import (
	"context"
	"fmt"
	"io"
	"iter"

	"github.com/fwojciec/drip"
	"google.golang.org/genai"
)

// stream implements [drip.Stream] by wrapping the genai SDK's streaming
// iterator. One response chunk may carry several parts; extra events are
// queued and returned by subsequent calls to Next.
type stream struct {
	ctx   context.Context
	pull  func() (*genai.GenerateContentResponse, error, bool)
	stop  func()
	queue []drip.Event
	state drip.StreamState
	err   error
}

// Interface compliance check.
var _ drip.Stream = (*stream)(nil)

// NewStream wraps a genai response iterator into a [drip.Stream].
func NewStream(ctx context.Context, seq iter.Seq2[*genai.GenerateContentResponse, error]) drip.Stream {
	next, stop := iter.Pull2(seq)
	return &stream{
		ctx:   ctx,
		pull:  next,
		stop:  stop,
		state: drip.StreamStateNew,
	}
}

func (s *stream) Next() (drip.Event, error) {
	switch s.state {
	case drip.StreamStateComplete:
		return nil, io.EOF
	case drip.StreamStateError:
		return nil, s.err
	case drip.StreamStateClosed:
		return nil, fmt.Errorf("gemini: %w", drip.ErrStreamClosed)
	}
	for len(s.queue) == 0 {
		if err := s.ctx.Err(); err != nil {
			return nil, s.fail(err)
		}
		resp, err, ok := s.pull()
		if !ok {
			s.state = drip.StreamStateComplete
			return nil, io.EOF
		}
		if err != nil {
			return nil, s.fail(err)
		}
		s.queue = append(s.queue, events(resp)...)
	}
	s.state = drip.StreamStateStreaming
	evt := s.queue[0]
	s.queue = s.queue[1:]
	return evt, nil
}

func (s *stream) fail(err error) error {
	s.state = drip.StreamStateError
	s.err = fmt.Errorf("gemini: %w", err)
	return s.err
}

func (s *stream) State() drip.StreamState {
	return s.state
}

func (s *stream) Close() error {
	if s.state != drip.StreamStateComplete && s.state != drip.StreamStateError {
		s.state = drip.StreamStateClosed
	}
	s.queue = nil
	s.stop()
	return nil
}

// events translates one response chunk. A blocked prompt surfaces as an
// error event so it reaches the user like any backend-reported failure.
func events(resp *genai.GenerateContentResponse) []drip.Event {
	if resp == nil {
		return nil
	}
	var out []drip.Event
	if pf := resp.PromptFeedback; pf != nil && pf.BlockReason != "" {
		msg := "prompt blocked: " + string(pf.BlockReason)
		if pf.BlockReasonMessage != "" {
			msg += ": " + pf.BlockReasonMessage
		}
		out = append(out, drip.EventError{Message: msg})
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return out
	}
	cand := resp.Candidates[0]
	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			if p == nil || p.Text == "" {
				continue
			}
			if p.Thought {
				out = append(out, drip.EventThought{Text: p.Text})
				continue
			}
			out = append(out, drip.EventContent{Text: p.Text})
		}
	}
	switch cand.FinishReason {
	case genai.FinishReasonSafety:
		out = append(out, drip.EventError{Message: "response blocked: " + string(cand.FinishReason)})
	case genai.FinishReasonMaxTokens:
		out = append(out, drip.EventStatus{Text: "Response truncated at the token limit"})
	}
	return out
}
