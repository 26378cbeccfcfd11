package bubbletea_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/fwojciec/drip"
	bt "github.com/fwojciec/drip/bubbletea"
	"github.com/fwojciec/drip/chat"
	"github.com/fwojciec/drip/memory"
	"github.com/fwojciec/drip/mock"
	"github.com/fwojciec/drip/notify"
	"github.com/fwojciec/drip/threads"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	m := bt.New(bt.Config{Submit: nopSubmit, Theme: drip.DefaultTheme()}, drip.Thread{ID: "t1", Title: "greeting"})

	assert.False(t, m.Running())
	assert.NoError(t, m.Err())
	assert.Equal(t, "t1", m.ThreadID())
	assert.Equal(t, "greeting", m.Title())
	assert.Equal(t, "Initializing...", m.View())
}

func TestModel_Update(t *testing.T) {
	t.Parallel()

	t.Run("window size sets viewport dimensions", func(t *testing.T) {
		t.Parallel()

		m := initModel(t, bt.Config{Submit: nopSubmit}, drip.Thread{ID: "t1"})
		assert.Equal(t, 80, m.Viewport.Width)
		assert.Equal(t, 20, m.Viewport.Height) // 24 - 1 - 1 - 2

		m = updateModel(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
		assert.Equal(t, 120, m.Viewport.Width)
		assert.Equal(t, 36, m.Viewport.Height)
		assert.NotEmpty(t, m.View())
	})

	t.Run("stored messages render on init", func(t *testing.T) {
		t.Parallel()

		thread := drip.Thread{ID: "t1", Messages: []drip.Message{
			drip.UserMessage("hello there"),
			drip.AssistantMessage("Hi! How can I help?"),
		}}
		m := initModel(t, bt.Config{Submit: nopSubmit}, thread)
		content := stripANSI(bt.RenderContent(m))
		assert.Contains(t, content, "> hello there")
		assert.Contains(t, content, "Hi! How can I help?")
	})

	t.Run("ctrl+c when idle quits", func(t *testing.T) {
		t.Parallel()

		m := initModel(t, bt.Config{Submit: nopSubmit}, drip.Thread{ID: "t1"})
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		require.NotNil(t, cmd)
		_, isQuit := cmd().(tea.QuitMsg)
		assert.True(t, isQuit)
	})

	t.Run("enter with empty input does nothing", func(t *testing.T) {
		t.Parallel()

		m := initModel(t, bt.Config{Submit: nopSubmit}, drip.Thread{ID: "t1"})
		m.Input.SetValue("   ")
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		assert.False(t, m.Running())
		assert.Empty(t, bt.RenderContent(m))
	})

	t.Run("enter submits with thread history", func(t *testing.T) {
		t.Parallel()

		var gotID, gotText string
		var gotHistory []drip.Message
		submit := func(_ context.Context, id string, history []drip.Message, text string) error {
			gotID, gotHistory, gotText = id, history, text
			return nil
		}
		history := []drip.Message{drip.UserMessage("a"), drip.AssistantMessage("b")}
		m := initModel(t, bt.Config{Submit: submit}, drip.Thread{ID: "t1", Messages: history})
		m.Input.SetValue("next question")

		updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m = updated.(bt.Model)
		assert.True(t, m.Running())
		assert.Empty(t, m.Input.Value())
		assert.Contains(t, stripANSI(bt.RenderContent(m)), "> next question")
		assert.Contains(t, stripANSI(bt.StatusLine(m)), "Ctrl+C to cancel")

		require.NotNil(t, cmd)
		done, ok := cmd().(bt.TurnDoneMsg)
		require.True(t, ok)
		assert.NoError(t, done.Err)
		assert.Equal(t, "t1", gotID)
		assert.Equal(t, history, gotHistory)
		assert.Equal(t, "next question", gotText)

		m = updateModel(t, m, done)
		assert.False(t, m.Running())
	})

	t.Run("enter while running is ignored", func(t *testing.T) {
		t.Parallel()

		m := initModel(t, bt.Config{Submit: nopSubmit}, drip.Thread{ID: "t1"})
		m.Input.SetValue("first")
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		m.Input.SetValue("second")
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		assert.Nil(t, cmd)
	})

	t.Run("ctrl+c while running cancels the turn", func(t *testing.T) {
		t.Parallel()

		submit := func(ctx context.Context, _ string, _ []drip.Message, _ string) error {
			<-ctx.Done()
			return ctx.Err()
		}
		m := initModel(t, bt.Config{Submit: submit}, drip.Thread{ID: "t1"})
		m.Input.SetValue("long question")
		updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m = updated.(bt.Model)

		result := make(chan tea.Msg, 1)
		go func() { result <- cmd() }()

		updated, quit := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		m = updated.(bt.Model)
		assert.Nil(t, quit)

		var msg tea.Msg
		select {
		case msg = <-result:
		case <-time.After(5 * time.Second):
			t.Fatal("turn was not cancelled")
		}
		m = updateModel(t, m, msg)
		assert.False(t, m.Running())
		assert.NoError(t, m.Err(), "cancellation is not an error")
	})

	t.Run("turn error shows in status line", func(t *testing.T) {
		t.Parallel()

		m := initModel(t, bt.Config{Submit: nopSubmit}, drip.Thread{ID: "t1"})
		m = updateModel(t, m, bt.TurnDoneMsg{Err: errors.New("connection refused")})
		assert.Error(t, m.Err())
		assert.Contains(t, stripANSI(bt.StatusLine(m)), "connection refused")
	})

	t.Run("snapshots re-render one assistant block", func(t *testing.T) {
		t.Parallel()

		m := initModel(t, bt.Config{Submit: nopSubmit}, drip.Thread{ID: "t1"})
		m.Input.SetValue("hi")
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})

		m = updateModel(t, m, bt.SnapshotMsg{Snapshot: drip.Snapshot{
			ThreadID: "t1", State: drip.SessionRequesting,
			Messages: []drip.Message{drip.UserMessage("hi")},
		}})
		m = updateModel(t, m, bt.SnapshotMsg{Snapshot: drip.Snapshot{
			ThreadID: "t1", State: drip.SessionStreaming, Text: "Hello, ", Annotation: "Searching...",
		}})
		content := stripANSI(bt.RenderContent(m))
		assert.Contains(t, content, "Hello,")
		assert.Contains(t, content, "Searching...")
		assert.Contains(t, stripANSI(bt.StatusLine(m)), "Streaming")

		final := []drip.Message{drip.UserMessage("hi"), drip.AssistantMessage("Hello, world.")}
		m = updateModel(t, m, bt.SnapshotMsg{Snapshot: drip.Snapshot{
			ThreadID: "t1", State: drip.SessionCompleted, Final: true,
			Text: "Hello, world.", Annotation: "stale", Messages: final,
		}})
		content = stripANSI(bt.RenderContent(m))
		assert.Equal(t, 1, strings.Count(content, "Hello,"))
		assert.Contains(t, content, "Hello, world.")
		assert.NotContains(t, content, "Searching...")
		assert.NotContains(t, content, "stale")
		assert.Equal(t, final, m.Messages())
	})

	t.Run("snapshots of other threads are ignored", func(t *testing.T) {
		t.Parallel()

		m := initModel(t, bt.Config{Submit: nopSubmit}, drip.Thread{ID: "t1"})
		m = updateModel(t, m, bt.SnapshotMsg{Snapshot: drip.Snapshot{ThreadID: "t2", Text: "elsewhere"}})
		m = updateModel(t, m, bt.AlertMsg{Alert: drip.Alert{ThreadID: "t2", Message: "elsewhere failed"}})
		assert.Empty(t, bt.RenderContent(m))
	})

	t.Run("alert adds an error block", func(t *testing.T) {
		t.Parallel()

		m := initModel(t, bt.Config{Submit: nopSubmit}, drip.Thread{ID: "t1"})
		m = updateModel(t, m, bt.AlertMsg{Alert: drip.Alert{ThreadID: "t1", Source: drip.AlertBackend, Message: "rate limited"}})
		assert.Contains(t, stripANSI(bt.RenderContent(m)), "Error: rate limited")
	})

	t.Run("threads loaded updates title and count", func(t *testing.T) {
		t.Parallel()

		m := initModel(t, bt.Config{Submit: nopSubmit}, drip.Thread{ID: "t1", Title: "New chat"})
		reg := drip.Registry{
			{ID: "t1", Title: "write a poem"},
			{ID: "t0", Title: "older"},
		}
		m = updateModel(t, m, bt.ThreadsLoadedMsg{Registry: reg})
		assert.Equal(t, "write a poem", m.Title())
		status := stripANSI(bt.StatusLine(m))
		assert.Contains(t, status, "write a poem (2)")
		assert.Contains(t, status, "Enter to send")
	})

	t.Run("long titles are truncated to fit", func(t *testing.T) {
		t.Parallel()

		m := initModelWithSize(t, bt.Config{Submit: nopSubmit}, drip.Thread{ID: "t1", Title: strings.Repeat("词", 80)}, 80, 24)
		status := stripANSI(bt.StatusLine(m))
		assert.Contains(t, status, "…")
		assert.Contains(t, status, "Enter to send")
	})

	t.Run("ctrl+n switches to a new thread", func(t *testing.T) {
		t.Parallel()

		catalog := &fakeThreads{
			reg:     drip.Registry{{ID: "t1", Title: "old"}},
			created: drip.Thread{ID: "t2", Title: "New chat"},
		}
		thread := drip.Thread{ID: "t1", Title: "old", Messages: []drip.Message{drip.UserMessage("old question")}}
		m := initModel(t, bt.Config{Submit: nopSubmit, Threads: catalog}, thread)

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
		require.NotNil(t, cmd)
		created, ok := cmd().(bt.ThreadCreatedMsg)
		require.True(t, ok)

		updated, load := m.Update(created)
		m = updated.(bt.Model)
		assert.Equal(t, "t2", m.ThreadID())
		assert.Empty(t, bt.RenderContent(m))

		require.NotNil(t, load)
		m = updateModel(t, m, load())
		assert.Contains(t, stripANSI(bt.StatusLine(m)), "New chat (2)")
	})

	t.Run("ctrl+n while running is ignored", func(t *testing.T) {
		t.Parallel()

		catalog := &fakeThreads{created: drip.Thread{ID: "t2"}}
		m := initModel(t, bt.Config{Submit: nopSubmit, Threads: catalog}, drip.Thread{ID: "t1"})
		m.Input.SetValue("q")
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
		assert.Nil(t, cmd)
	})

	t.Run("catalog change reloads registry", func(t *testing.T) {
		t.Parallel()

		changes := make(chan struct{}, 1)
		catalog := &fakeThreads{reg: drip.Registry{{ID: "t1", Title: "renamed elsewhere"}}}
		m := initModel(t, bt.Config{Submit: nopSubmit, Threads: catalog, Changes: changes}, drip.Thread{ID: "t1", Title: "before"})

		_, cmd := m.Update(bt.ThreadsChangedMsg{})
		require.NotNil(t, cmd)
		msgs := cmd().(tea.BatchMsg)
		require.NotEmpty(t, msgs)
		loaded, ok := msgs[0]().(bt.ThreadsLoadedMsg)
		require.True(t, ok)
		m = updateModel(t, m, loaded)
		assert.Equal(t, "renamed elsewhere", m.Title())
	})
}

func TestModel_EndToEnd(t *testing.T) {
	t.Parallel()

	hub := notify.NewHub()
	changes, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	svc := threads.New(memory.New(), threads.WithNotifier(hub))
	thread, err := svc.Create(context.Background())
	require.NoError(t, err)

	obs := bt.NewObserver(16)
	defer obs.Close()

	backend := &mock.Backend{ChatFn: func(context.Context, drip.Request) (drip.Stream, error) {
		s, _ := mock.Events(
			drip.EventStatus{Text: "Thinking..."},
			drip.EventContent{Text: "Hello!"},
		)
		return s, nil
	}}
	ctrl := chat.New(backend, chat.WithObserver(svc, obs), chat.WithInterval(time.Millisecond))
	submit := func(ctx context.Context, id string, history []drip.Message, text string) error {
		_, err := ctrl.Submit(ctx, chat.Submission{ThreadID: id, History: history, Text: text})
		return err
	}

	m := bt.New(bt.Config{
		Submit:  submit,
		Threads: svc,
		Updates: obs.Messages(),
		Changes: changes,
		Theme:   drip.DefaultTheme(),
	}, thread)

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))
	tm.Type("hi")
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return bytes.Contains(out, []byte("Hello!"))
	}, teatest.WithDuration(5*time.Second))

	require.Eventually(t, func() bool {
		got, err := svc.Get(context.Background(), thread.ID)
		return err == nil && len(got.Messages) == 2 && got.Messages[1].Content == "Hello!"
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, tm.Quit())
	fm := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
	final, ok := fm.(bt.Model)
	require.True(t, ok)
	assert.Equal(t, thread.ID, final.ThreadID())

	got, err := svc.Get(context.Background(), thread.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Title)
	assert.Equal(t, []drip.Message{drip.UserMessage("hi"), drip.AssistantMessage("Hello!")}, got.Messages)
}
