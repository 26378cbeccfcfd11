package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fwojciec/drip"
)

var _ drip.Observer = (*printer)(nil)

// printer streams snapshot text to out as it grows. Annotations and alerts
// go to errOut so out carries only the answer. When a snapshot rewrites
// text already printed, output pauses until the final snapshot, which is
// then printed whole.
type printer struct {
	out    io.Writer
	errOut io.Writer

	mu         sync.Mutex
	printed    string
	annotation string
	diverged   bool
}

func newPrinter(out, errOut io.Writer) *printer {
	return &printer{out: out, errOut: errOut}
}

func (p *printer) Publish(_ context.Context, s drip.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.Annotation != "" && s.Annotation != p.annotation {
		fmt.Fprintln(p.errOut, s.Annotation)
	}
	p.annotation = s.Annotation

	switch {
	case !p.diverged && strings.HasPrefix(s.Text, p.printed):
		if _, err := io.WriteString(p.out, s.Text[len(p.printed):]); err != nil {
			return err
		}
		p.printed = s.Text
	case s.Final:
		if _, err := fmt.Fprintf(p.out, "\n\n%s", s.Text); err != nil {
			return err
		}
		p.printed = s.Text
	default:
		p.diverged = true
	}
	return nil
}

func (p *printer) Alert(_ context.Context, a drip.Alert) {
	fmt.Fprintf(p.errOut, "%s error: %s\n", a.Source, a.Message)
}

// finish terminates the output with a newline.
func (p *printer) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.printed != "" && !strings.HasSuffix(p.printed, "\n") {
		fmt.Fprintln(p.out)
	}
}
