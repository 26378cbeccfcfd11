// Package ndjson decodes newline-delimited JSON event streams produced by
// the agent backend.
package ndjson

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decoder turns arbitrary byte chunks of one response body into complete
// lines. A multi-byte character or a line may be split across chunks; the
// decoder carries the partial input to the next Feed. Invalid UTF-8 is
// replaced with U+FFFD and a leading byte order mark is dropped.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	t       transform.Transformer
	carry   []byte // undecoded tail of the previous chunk
	pending string // text after the last newline
}

// NewDecoder returns a Decoder for one stream.
func NewDecoder() *Decoder {
	return &Decoder{t: unicode.UTF8BOM.NewDecoder()}
}

// Feed decodes chunk and returns every line it completes, in wire order.
// Lines have a trailing "\r" trimmed; blank lines are dropped.
func (d *Decoder) Feed(chunk []byte) []string {
	text := d.decode(chunk, false)
	if !strings.Contains(text, "\n") {
		d.pending += text
		return nil
	}
	parts := strings.Split(d.pending+text, "\n")
	d.pending = parts[len(parts)-1]
	return keep(parts[:len(parts)-1])
}

// Flush decodes anything still carried and returns the unterminated final
// line, if it is not blank. The decoder is reset afterwards.
func (d *Decoder) Flush() []string {
	rest := d.pending + d.decode(nil, true)
	d.pending = ""
	d.t.Reset()
	return keep([]string{rest})
}

func keep(lines []string) []string {
	out := lines[:0]
	for _, l := range lines {
		l = strings.TrimSuffix(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, l)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (d *Decoder) decode(chunk []byte, atEOF bool) string {
	src := append(d.carry, chunk...)
	d.carry = nil
	if len(src) == 0 && !atEOF {
		return ""
	}
	// Replacement characters are at most three bytes per input byte.
	dst := make([]byte, 3*len(src)+utf8.UTFMax)
	var out strings.Builder
	for {
		nDst, nSrc, err := d.t.Transform(dst, src, atEOF)
		out.Write(dst[:nDst])
		src = src[nSrc:]
		switch {
		case err == nil:
			return out.String()
		case errors.Is(err, transform.ErrShortSrc):
			d.carry = append([]byte(nil), src...)
			return out.String()
		case errors.Is(err, transform.ErrShortDst) && (nDst > 0 || nSrc > 0):
			continue
		case errors.Is(err, transform.ErrShortDst):
			dst = make([]byte, 2*len(dst))
		default:
			// The UTF-8 decoder replaces rather than rejects, so this is
			// unreachable in practice; drop the undecodable remainder.
			return out.String()
		}
	}
}
