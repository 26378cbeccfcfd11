package deepagent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fwojciec/drip"
	"github.com/fwojciec/drip/ndjson"
)

// Interface compliance check.
var _ drip.Backend = (*Client)(nil)

// Client implements [drip.Backend] for the agent server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the server base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger passed to streams for skipped lines.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a new [Client] with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		log:        slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Chat posts the request and returns a [drip.Stream] over the response body.
func (c *Client) Chat(ctx context.Context, req drip.Request) (drip.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("deepagent: %w", err)
	}
	body, err := json.Marshal(buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("deepagent: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("deepagent: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", contentType)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("deepagent: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseHTTPError(resp)
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, fmt.Errorf("deepagent: %w", drip.ErrNoResponseBody)
	}

	return ndjson.NewStream(ctx, resp.Body, ndjson.WithLogger(c.log.With("thread", req.ThreadID))), nil
}

// Health reports whether the server answers its health check.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("deepagent: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("deepagent: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return parseHTTPError(resp)
	}
	var h apiHealth
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return fmt.Errorf("deepagent: health: %w", err)
	}
	if h.Status != "ok" {
		return fmt.Errorf("deepagent: health: status %q", h.Status)
	}
	return nil
}

func buildRequest(req drip.Request) apiRequest {
	msgs := make([]apiMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = apiMessage{Role: string(m.Role), Content: m.Content}
	}
	r := apiRequest{
		Messages: msgs,
		ThreadID: req.ThreadID,
		Model:    req.Options.Model,
		Thinking: req.Options.Thinking,
	}
	if req.Options.Mode != "" {
		mode := req.Options.Mode
		r.Mode = &mode
	}
	return r
}

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("deepagent: HTTP %d (failed to read body: %w)", resp.StatusCode, err)
	}
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Detail == nil {
		return fmt.Errorf("deepagent: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if s, ok := apiErr.Detail.(string); ok {
		return fmt.Errorf("deepagent: HTTP %d: %s", resp.StatusCode, s)
	}
	detail, _ := json.Marshal(apiErr.Detail)
	return fmt.Errorf("deepagent: HTTP %d: %s", resp.StatusCode, detail)
}
