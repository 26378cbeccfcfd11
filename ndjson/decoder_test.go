package ndjson_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/drip/ndjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeAll(chunks ...[]byte) []string {
	d := ndjson.NewDecoder()
	var lines []string
	for _, c := range chunks {
		lines = append(lines, d.Feed(c)...)
	}
	return append(lines, d.Flush()...)
}

func TestDecoder_ChunkBoundaryIndependence(t *testing.T) {
	t.Parallel()
	input := []byte("{\"type\":\"content\",\"content\":\"héllo 🌍\"}\r\n\n{\"type\":\"status\",\"content\":\"日本\"}\n{\"type\":\"content\"}")
	want := []string{
		`{"type":"content","content":"héllo 🌍"}`,
		`{"type":"status","content":"日本"}`,
		`{"type":"content"}`,
	}
	assert.Equal(t, want, decodeAll(input))

	for i := 0; i <= len(input); i++ {
		for j := i; j <= len(input); j++ {
			got := decodeAll(input[:i], input[i:j], input[j:])
			if !assert.Equal(t, want, got, "split at %d,%d", i, j) {
				return
			}
		}
	}
}

func TestDecoder_CarriesFragmentUntilNewline(t *testing.T) {
	t.Parallel()
	d := ndjson.NewDecoder()
	assert.Empty(t, d.Feed([]byte(`{"type":`)))
	assert.Empty(t, d.Feed([]byte(`"content"}`)))
	assert.Equal(t, []string{`{"type":"content"}`}, d.Feed([]byte("\n")))
	assert.Empty(t, d.Flush())
}

func TestDecoder_StripsBOMAndReplacesInvalid(t *testing.T) {
	t.Parallel()
	got := decodeAll([]byte("\xef\xbb"), []byte("\xbfa\xffb\n"))
	assert.Equal(t, []string{"a�b"}, got)
}

func TestDecoder_TruncatedRuneAtEOF(t *testing.T) {
	t.Parallel()
	got := decodeAll([]byte("ok\nx\xe2\x82"))
	require.Len(t, got, 2)
	assert.Equal(t, "ok", got[0])
	assert.True(t, strings.HasPrefix(got[1], "x�"), got[1])
}

func TestDecoder_DropsBlankLines(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"a", "b"}, decodeAll([]byte("\n\r\n  \na\n\n\nb\n\n")))
	assert.Empty(t, decodeAll([]byte("\n\n")))
}
