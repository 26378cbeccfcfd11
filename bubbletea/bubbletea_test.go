package bubbletea_test

import (
	"context"
	"regexp"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/drip"
	bt "github.com/fwojciec/drip/bubbletea"
	"github.com/stretchr/testify/require"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansi.ReplaceAllString(s, "")
}

// initModel creates a model and sends a WindowSizeMsg to initialize the viewport.
func initModel(t *testing.T, cfg bt.Config, thread drip.Thread) bt.Model {
	t.Helper()
	return initModelWithSize(t, cfg, thread, 80, 24)
}

// initModelWithSize creates a model with a custom terminal size.
func initModelWithSize(t *testing.T, cfg bt.Config, thread drip.Thread, width, height int) bt.Model {
	t.Helper()
	if cfg.Theme == (drip.Theme{}) {
		cfg.Theme = drip.DefaultTheme()
	}
	return updateModel(t, bt.New(cfg, thread), tea.WindowSizeMsg{Width: width, Height: height})
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

// nopSubmit is a submit function that ends the turn immediately.
func nopSubmit(context.Context, string, []drip.Message, string) error {
	return nil
}

// fakeThreads is an in-memory thread catalog.
type fakeThreads struct {
	reg     drip.Registry
	created drip.Thread
}

func (f *fakeThreads) List(context.Context) (drip.Registry, error) { return f.reg, nil }

func (f *fakeThreads) Create(context.Context) (drip.Thread, error) {
	f.reg = f.reg.Upsert(f.created.Entry())
	return f.created, nil
}
