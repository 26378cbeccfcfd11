package drip_test

import (
	"testing"

	"github.com/fwojciec/drip"
	"github.com/stretchr/testify/assert"
)

func TestRequest_Validate_Valid(t *testing.T) {
	t.Parallel()
	r := drip.Request{
		ThreadID: "t1",
		Messages: []drip.Message{drip.UserMessage("hi"), drip.AssistantMessage("hello"), drip.UserMessage("again")},
		Options:  drip.Options{Model: "gpt-4o", Thinking: true, Mode: "research"},
	}
	assert.NoError(t, r.Validate())
}

func TestRequest_Validate_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		req  drip.Request
	}{
		{"missing thread id", drip.Request{Messages: []drip.Message{drip.UserMessage("hi")}}},
		{"no messages", drip.Request{ThreadID: "t1"}},
		{"unknown role", drip.Request{ThreadID: "t1", Messages: []drip.Message{{Role: "system", Content: "x"}, drip.UserMessage("hi")}}},
		{"last not user", drip.Request{ThreadID: "t1", Messages: []drip.Message{drip.UserMessage("hi"), drip.AssistantMessage("yo")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, tt.req.Validate(), drip.ErrValidation)
		})
	}
}

func TestValidateMessage(t *testing.T) {
	t.Parallel()
	assert.NoError(t, drip.ValidateMessage(drip.Message{Role: drip.RoleTool, Content: "out"}))
	assert.ErrorIs(t, drip.ValidateMessage(drip.Message{Role: "bot"}), drip.ErrValidation)
}
