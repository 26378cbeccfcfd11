package gemini_test

import (
	"testing"

	"github.com/fwojciec/drip"
	"github.com/fwojciec/drip/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertMessages_Roles(t *testing.T) {
	t.Parallel()
	msgs := []drip.Message{
		drip.UserMessage("Hello"),
		drip.AssistantMessage("Hi there."),
		{Role: drip.RoleTool, Content: "tool output"},
	}
	got := gemini.ConvertMessages(msgs)
	require.Len(t, got, 3)
	assert.Equal(t, "user", got[0].Role)
	assert.Equal(t, "model", got[1].Role)
	assert.Equal(t, "user", got[2].Role)
	require.Len(t, got[1].Parts, 1)
	assert.Equal(t, "Hi there.", got[1].Parts[0].Text)
}

func TestConvertMessages_SkipsEmpty(t *testing.T) {
	t.Parallel()
	msgs := []drip.Message{
		drip.UserMessage("Hello"),
		drip.AssistantMessage(""),
		drip.UserMessage("Again"),
	}
	got := gemini.ConvertMessages(msgs)
	require.Len(t, got, 2)
	assert.Equal(t, "Again", got[1].Parts[0].Text)
}

func TestBuildConfig_Thinking(t *testing.T) {
	t.Parallel()
	cfg := gemini.BuildConfig(drip.Options{Thinking: true})
	require.NotNil(t, cfg.ThinkingConfig)
	assert.True(t, cfg.ThinkingConfig.IncludeThoughts)
}

func TestBuildConfig_NoThinking(t *testing.T) {
	t.Parallel()
	cfg := gemini.BuildConfig(drip.Options{Mode: "brew"})
	assert.Nil(t, cfg.ThinkingConfig)
}
