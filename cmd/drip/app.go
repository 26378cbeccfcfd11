package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fwojciec/drip"
	"github.com/fwojciec/drip/config"
	"github.com/fwojciec/drip/deepagent"
	"github.com/fwojciec/drip/filestore"
	"github.com/fwojciec/drip/gemini"
	"github.com/fwojciec/drip/memory"
	"github.com/fwojciec/drip/notify"
	"github.com/fwojciec/drip/sqlite"
	"github.com/fwojciec/drip/threads"
)

// app holds the wired dependencies shared by all commands.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	hub     *notify.Hub
	store   drip.Store
	threads *threads.Service
	stdout  io.Writer
	stderr  io.Writer

	closers []func() error
}

// newApp opens the store and builds the thread service. The TUI logs to a
// file under dir so log lines do not corrupt the screen.
func newApp(ctx context.Context, cfg config.Config, dir string, tui bool, stdout, stderr io.Writer) (*app, error) {
	a := &app{cfg: cfg, hub: notify.NewHub(), stdout: stdout, stderr: stderr}

	logOut := stderr
	if tui {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("log dir: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(dir, "drip.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("log file: %w", err)
		}
		a.closers = append(a.closers, f.Close)
		logOut = f
	}
	log, err := newLogger(cfg, logOut)
	if err != nil {
		a.close()
		return nil, err
	}
	a.log = log

	store, err := a.openStore(ctx, cfg, dir)
	if err != nil {
		a.close()
		return nil, err
	}
	a.store = store
	a.threads = threads.New(store,
		threads.WithNotifier(a.hub),
		threads.WithLogger(log.With("component", "threads")),
		threads.WithTitleLength(cfg.TitleLength),
	)
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}

func newLogger(cfg config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == config.FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func (a *app) openStore(ctx context.Context, cfg config.Config, dir string) (drip.Store, error) {
	path := cfg.StorePath(dir)
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		s, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	case config.DriverFile:
		s, err := filestore.Open(path, filestore.WithLogger(a.log.With("component", "filestore")))
		if err != nil {
			return nil, err
		}
		// Changes made by other drip processes reach the hub too.
		if err := s.Watch(ctx, a.hub); err != nil {
			a.log.Warn("store watch disabled", "error", err)
		}
		return s, nil
	case config.DriverMemory:
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// backend builds the configured chat backend.
func (a *app) backend(ctx context.Context) (drip.Backend, error) {
	switch a.cfg.Backend {
	case config.BackendAgent:
		return a.agent(), nil
	case config.BackendGemini:
		c, err := gemini.New(ctx, a.cfg.GeminiKey, gemini.WithModel(a.cfg.Model))
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown backend %q", a.cfg.Backend)
}

func (a *app) agent() *deepagent.Client {
	return deepagent.New(
		deepagent.WithBaseURL(a.cfg.AgentURL),
		deepagent.WithLogger(a.log.With("component", "deepagent")),
	)
}

// thread returns the stored thread id, or a fresh unregistered thread when
// id is empty. A fresh thread is registered by its first publish.
func (a *app) thread(ctx context.Context, id string, newID func() string) (drip.Thread, error) {
	if id == "" {
		if newID == nil {
			return drip.Thread{}, usage("<command> id")
		}
		return drip.Thread{ID: newID(), Title: threads.DefaultTitle}, nil
	}
	t, err := a.threads.Get(ctx, id)
	if errors.Is(err, drip.ErrThreadNotFound) {
		return drip.Thread{}, fmt.Errorf("thread %s not found", id)
	}
	return t, err
}
