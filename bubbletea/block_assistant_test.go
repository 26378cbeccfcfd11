package bubbletea_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/drip"
	bt "github.com/fwojciec/drip/bubbletea"
	"github.com/fwojciec/drip/goldmark"
	"github.com/stretchr/testify/assert"
)

func newAssistantBlock() *bt.AssistantBlock {
	theme := drip.DefaultTheme()
	return bt.NewAssistantBlock(theme, bt.NewStyles(theme))
}

func TestAssistantBlock_View(t *testing.T) {
	t.Parallel()

	t.Run("renders markdown", func(t *testing.T) {
		t.Parallel()
		block := newAssistantBlock()
		block.Set("hello **world**", "")
		view := stripANSI(block.View(80))
		assert.Contains(t, view, "hello world")
		assert.NotContains(t, view, "**")
	})

	t.Run("set replaces text", func(t *testing.T) {
		t.Parallel()
		block := newAssistantBlock()
		block.Set("hello", "")
		block.Set("hello world", "")
		assert.Equal(t, "hello world", block.Text())
		assert.Contains(t, stripANSI(block.View(80)), "hello world")
	})

	t.Run("annotation shown below text", func(t *testing.T) {
		t.Parallel()
		block := newAssistantBlock()
		block.Set("partial answer", "🔧 Running search...")
		view := stripANSI(block.View(80))
		assert.Less(t, strings.Index(view, "partial answer"), strings.Index(view, "Running search"))
	})

	t.Run("annotation alone", func(t *testing.T) {
		t.Parallel()
		block := newAssistantBlock()
		block.Set("", "Searching...")
		assert.Equal(t, "Searching...", stripANSI(block.View(80)))
	})

	t.Run("empty renders nothing", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, newAssistantBlock().View(80))
	})

	t.Run("finalized paragraph stays while trailing text streams", func(t *testing.T) {
		t.Parallel()
		block := newAssistantBlock()
		block.Set("first paragraph\n\ntrail", "")
		block.Set("first paragraph\n\ntrailing", "")
		view := stripANSI(block.View(80))
		assert.Contains(t, view, "first paragraph")
		assert.Contains(t, view, "trailing")
	})

	t.Run("rewritten prefix is re-rendered", func(t *testing.T) {
		t.Parallel()
		block := newAssistantBlock()
		block.Set("### 📋 Task Plan\n\n- [ ] research\n\nBody", "")
		block.Set("### 📋 Task Plan\n\n- [x] research\n\nBody", "")
		view := stripANSI(block.View(80))
		assert.Contains(t, view, "[x] research")
		assert.NotContains(t, view, "[ ] research")
	})

	t.Run("matches full render", func(t *testing.T) {
		t.Parallel()
		src := "# Title\n\nA paragraph.\n\n- one\n- two"
		block := newAssistantBlock()
		block.Set(src, "")
		assert.Equal(t,
			strings.TrimSpace(stripANSI(goldmark.Render(src, 60, drip.DefaultTheme()))),
			strings.TrimSpace(stripANSI(block.View(60))))
	})

	t.Run("unclosed fence renders code", func(t *testing.T) {
		t.Parallel()
		block := newAssistantBlock()
		block.Set("intro\n\n```go\nfmt.Println(1)", "")
		view := stripANSI(block.View(80))
		assert.Contains(t, view, "fmt.Println(1)")
		assert.NotContains(t, view, "```")
	})
}
