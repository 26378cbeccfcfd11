package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fwojciec/drip"
	bt "github.com/fwojciec/drip/bubbletea"
	"github.com/fwojciec/drip/chat"
	"github.com/fwojciec/drip/config"
	"github.com/fwojciec/drip/goldmark"
	dripjson "github.com/fwojciec/drip/json"
	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"chat":    cmdChat,
	"ask":     cmdAsk,
	"threads": cmdThreads,
	"show":    cmdShow,
	"rename":  cmdRename,
	"rm":      cmdRemove,
	"prune":   cmdPrune,
	"export":  cmdExport,
	"import":  cmdImport,
	"health":  cmdHealth,
	"config":  cmdConfig,
}

const titleWidth = 50

func (a *app) controller(backend drip.Backend, obs drip.Observer) *chat.Controller {
	return chat.New(backend,
		chat.WithObserver(a.threads, obs),
		chat.WithInterval(a.cfg.Stream.Throttle.Duration),
		chat.WithLogger(a.log.With("component", "chat")),
	)
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func cmdChat(ctx context.Context, a *app, args []string) error {
	fs := a.flags("chat")
	threadID := fs.String("thread", "", "Thread ID to resume")
	if err := fs.Parse(args); err != nil {
		return err
	}
	t, err := a.thread(ctx, *threadID, uuid.NewString)
	if err != nil {
		return err
	}
	backend, err := a.backend(ctx)
	if err != nil {
		return err
	}

	obs := bt.NewObserver(64)
	defer obs.Close()
	ctrl := a.controller(backend, obs)
	opts := a.cfg.Options()
	submit := func(ctx context.Context, id string, history []drip.Message, text string) error {
		_, err := ctrl.Submit(ctx, chat.Submission{ThreadID: id, History: history, Text: text, Options: opts})
		return err
	}

	changes, unsubscribe := a.hub.Subscribe()
	defer unsubscribe()

	m := bt.New(bt.Config{
		Submit:  submit,
		Threads: a.threads,
		Updates: obs.Messages(),
		Changes: changes,
		Theme:   drip.DefaultTheme(),
	}, t)
	if err := bt.Run(ctx, m); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}
	return nil
}

func cmdAsk(ctx context.Context, a *app, args []string) error {
	fs := a.flags("ask")
	threadID := fs.String("thread", "", "Thread ID to continue")
	if err := fs.Parse(args); err != nil {
		return err
	}
	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if text == "" {
		return usage("ask [-thread id] text")
	}
	t, err := a.thread(ctx, *threadID, uuid.NewString)
	if err != nil {
		return err
	}
	backend, err := a.backend(ctx)
	if err != nil {
		return err
	}

	p := newPrinter(a.stdout, a.stderr)
	res, err := a.controller(backend, p).Submit(ctx, chat.Submission{
		ThreadID: t.ID,
		History:  t.Messages,
		Text:     text,
		Options:  a.cfg.Options(),
	})
	p.finish()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stderr, "thread %s %s\n", t.ID, res.State)
	if res.State == drip.SessionCancelled {
		return context.Cause(ctx)
	}
	return nil
}

func cmdThreads(ctx context.Context, a *app, args []string) error {
	if len(args) != 0 {
		return usage("threads")
	}
	reg, err := a.threads.List(ctx)
	if err != nil {
		return err
	}
	reg = slices.Clone(reg)
	slices.SortStableFunc(reg, func(x, y drip.ThreadEntry) int {
		return y.UpdatedAt.Compare(x.UpdatedAt)
	})

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUPDATED\tTITLE")
	for _, e := range reg {
		title := runewidth.Truncate(e.Title, titleWidth, "…")
		if e.TitleLocked {
			title += " *"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.ID, e.UpdatedAt.Local().Format(time.DateTime), title)
	}
	return tw.Flush()
}

func cmdShow(ctx context.Context, a *app, args []string) error {
	fs := a.flags("show")
	raw := fs.Bool("raw", false, "Print markdown without styling")
	width := fs.Int("width", 80, "Render width")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usage("show [-raw] [-width n] id")
	}
	t, err := a.thread(ctx, fs.Arg(0), nil)
	if err != nil {
		return err
	}

	theme := drip.DefaultTheme()
	fmt.Fprintf(a.stdout, "%s (%s)\n", t.Title, t.ID)
	for _, m := range t.Messages {
		fmt.Fprintln(a.stdout)
		switch {
		case m.Role == drip.RoleUser:
			fmt.Fprintf(a.stdout, "> %s\n", m.Content)
		case *raw:
			fmt.Fprintln(a.stdout, m.Content)
		default:
			fmt.Fprintln(a.stdout, goldmark.Render(m.Content, *width, theme))
		}
	}
	return nil
}

func cmdRename(ctx context.Context, a *app, args []string) error {
	if len(args) < 2 {
		return usage("rename id title")
	}
	id, title := args[0], strings.Join(args[1:], " ")
	if err := a.threads.Rename(ctx, id, title); err != nil {
		return notFound(id, err)
	}
	fmt.Fprintf(a.stdout, "renamed %s\n", id)
	return nil
}

func cmdRemove(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return usage("rm id")
	}
	if err := a.threads.Delete(ctx, args[0]); err != nil {
		return notFound(args[0], err)
	}
	fmt.Fprintf(a.stdout, "deleted %s\n", args[0])
	return nil
}

func cmdPrune(ctx context.Context, a *app, args []string) error {
	if len(args) != 0 {
		return usage("prune")
	}
	pruned, err := a.threads.Prune(ctx)
	if err != nil {
		return err
	}
	for _, id := range pruned {
		fmt.Fprintf(a.stdout, "pruned %s\n", id)
	}
	return nil
}

func cmdExport(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return usage("export id path")
	}
	t, err := a.thread(ctx, args[0], nil)
	if err != nil {
		return err
	}
	if err := dripjson.Save(args[1], t); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "exported %s to %s\n", t.ID, args[1])
	return nil
}

func cmdImport(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return usage("import path")
	}
	t, err := dripjson.Load(args[0])
	if err != nil {
		return err
	}
	if err := a.threads.Import(ctx, t); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "imported %s\n", t.ID)
	return nil
}

func cmdHealth(ctx context.Context, a *app, args []string) error {
	if len(args) != 0 {
		return usage("health")
	}
	if a.cfg.Backend != config.BackendAgent {
		return fmt.Errorf("health: backend %q has no health check", a.cfg.Backend)
	}
	if err := a.agent().Health(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s ok\n", a.cfg.AgentURL)
	return nil
}

func cmdConfig(_ context.Context, a *app, args []string) error {
	if len(args) != 0 {
		return usage("config")
	}
	return a.cfg.Encode(a.stdout)
}

func notFound(id string, err error) error {
	if errors.Is(err, drip.ErrThreadNotFound) {
		return fmt.Errorf("thread %s not found", id)
	}
	return err
}
