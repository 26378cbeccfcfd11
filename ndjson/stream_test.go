package ndjson_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/fwojciec/drip"
	"github.com/fwojciec/drip/ndjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeCounter struct {
	io.Reader
	closed int
}

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

func collect(t *testing.T, s drip.Stream) []drip.Event {
	t.Helper()
	var events []drip.Event
	for {
		e, err := s.Next()
		if errors.Is(err, io.EOF) {
			return events
		}
		require.NoError(t, err)
		events = append(events, e)
	}
}

func TestStream_SkipsMalformedLines(t *testing.T) {
	t.Parallel()
	body := &closeCounter{Reader: iotest.OneByteReader(strings.NewReader(
		"{\"type\":\"content\",\"content\":\"Hello, \"}\n" +
			"garbage\n" +
			"{\"type\":\"content\",\"content\":\"world.\"}\n" +
			"{\"type\":\"status\"")),
	}
	s := ndjson.NewStream(context.Background(), body)
	defer s.Close()

	events := collect(t, s)

	assert.Equal(t, []drip.Event{
		drip.EventContent{Text: "Hello, "},
		drip.EventContent{Text: "world."},
	}, events)
	assert.Equal(t, 2, s.Malformed())
	assert.Equal(t, drip.StreamStateComplete, s.State())

	_, err := s.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStream_UnterminatedFinalLine(t *testing.T) {
	t.Parallel()
	body := io.NopCloser(strings.NewReader(`{"type":"content","content":"tail"}`))
	s := ndjson.NewStream(context.Background(), body, ndjson.WithChunkSize(5))
	defer s.Close()

	assert.Equal(t, []drip.Event{drip.EventContent{Text: "tail"}}, collect(t, s))
}

func TestStream_States(t *testing.T) {
	t.Parallel()
	body := io.NopCloser(strings.NewReader("{\"type\":\"content\",\"content\":\"a\"}\n"))
	s := ndjson.NewStream(context.Background(), body)
	assert.Equal(t, drip.StreamStateNew, s.State())

	_, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, drip.StreamStateStreaming, s.State())

	require.NoError(t, s.Close())
	assert.Equal(t, drip.StreamStateClosed, s.State())
	_, err = s.Next()
	assert.ErrorIs(t, err, drip.ErrStreamClosed)
}

func TestStream_CloseIdempotent(t *testing.T) {
	t.Parallel()
	body := &closeCounter{Reader: strings.NewReader("")}
	s := ndjson.NewStream(context.Background(), body)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, body.closed)
}

func TestStream_ReadError(t *testing.T) {
	t.Parallel()
	boom := errors.New("connection reset")
	body := io.NopCloser(io.MultiReader(
		strings.NewReader("{\"type\":\"content\",\"content\":\"partial\"}\n"),
		iotest.ErrReader(boom),
	))
	s := ndjson.NewStream(context.Background(), body)
	defer s.Close()

	e, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, drip.EventContent{Text: "partial"}, e)

	_, err = s.Next()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, drip.StreamStateError, s.State())
}

func TestStream_CancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	body := io.NopCloser(strings.NewReader("{\"type\":\"content\",\"content\":\"x\"}\n"))
	s := ndjson.NewStream(ctx, body)
	defer s.Close()

	_, err := s.Next()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, drip.StreamStateError, s.State())
}
