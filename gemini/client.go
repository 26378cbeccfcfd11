package gemini

import (
	"context"
	"fmt"

	"github.com/fwojciec/drip"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ drip.Backend = (*Client)(nil)

// Client implements [drip.Backend] for the Google Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// Option configures a [Client].
type Option func(*Client)

// WithModel sets the model ID used when a request does not name one.
// Default is gemini-2.5-flash.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// New creates a new Gemini [Client] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	c := &Client{
		client: gc,
		model:  defaultModel,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Chat sends the conversation to Gemini and returns a [drip.Stream] of
// content and thought events. The mode option has no Gemini equivalent and
// is ignored.
func (c *Client) Chat(ctx context.Context, req drip.Request) (drip.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	model := req.Options.Model
	if model == "" {
		model = c.model
	}
	seq := c.client.Models.GenerateContentStream(ctx, model, ConvertMessages(req.Messages), BuildConfig(req.Options))
	return NewStream(ctx, seq), nil
}

// BuildConfig maps request options onto a generation config. Thoughts are
// requested only when thinking is enabled.
func BuildConfig(opts drip.Options) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if opts.Thinking {
		config.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true}
	}
	return config
}

// ConvertMessages converts drip messages to genai contents. Tool messages
// are sent as user turns since Gemini has no free-text tool role.
func ConvertMessages(msgs []drip.Message) []*genai.Content {
	result := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		if m.Content == "" {
			continue
		}
		role := "user"
		if m.Role == drip.RoleAssistant {
			role = "model"
		}
		result = append(result, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return result
}
