package bubbletea_test

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/drip"
	bt "github.com/fwojciec/drip/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestUserMessageBlock_View(t *testing.T) {
	t.Parallel()

	t.Run("renders text with prompt prefix", func(t *testing.T) {
		t.Parallel()
		block := bt.NewUserMessageBlock("hello world", bt.NewStyles(drip.DefaultTheme()))
		view := stripANSI(block.View(80))
		assert.True(t, strings.HasPrefix(view, "> hello world"))
	})

	t.Run("pads each line to full width", func(t *testing.T) {
		t.Parallel()
		block := bt.NewUserMessageBlock("test", bt.NewStyles(drip.DefaultTheme()))
		for _, line := range strings.Split(block.View(40), "\n") {
			assert.Equal(t, 40, lipgloss.Width(line))
		}
	})

	t.Run("wraps long text to width", func(t *testing.T) {
		t.Parallel()
		longText := "short words that keep going and going beyond the viewport width easily"
		block := bt.NewUserMessageBlock(longText, bt.NewStyles(drip.DefaultTheme()))
		view := block.View(30)
		assert.Contains(t, view, "easily")
		assert.Greater(t, len(strings.Split(view, "\n")), 1)
	})
}
