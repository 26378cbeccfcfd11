package drip

import "context"

// Options selects backend behavior for one request. It is passed explicitly
// with every submission rather than read from process state.
type Options struct {
	Model    string
	Thinking bool
	Mode     string // opaque to the client; empty means backend default
}

// Request is one chat submission.
type Request struct {
	ThreadID string
	Messages []Message
	Options  Options
}

// Backend answers a chat request with a stream of events.
type Backend interface {
	Chat(ctx context.Context, req Request) (Stream, error)
}
