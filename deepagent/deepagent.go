// Package deepagent implements [drip.Backend] for the agent HTTP server.
//
// The server answers POST /api/chat with a chunked body of newline-delimited
// JSON events, decoded by package ndjson.
package deepagent

const (
	defaultBaseURL = "http://localhost:8000"
	chatPath       = "/api/chat"
	healthPath     = "/health"
	contentType    = "application/x-ndjson"
)

// apiRequest is the JSON body sent to /api/chat. Mode is sent as null when
// unset so the server picks its default mode.
type apiRequest struct {
	Messages []apiMessage `json:"messages"`
	ThreadID string       `json:"thread_id"`
	Model    string       `json:"model,omitempty"`
	Thinking bool         `json:"thinking"`
	Mode     *string      `json:"mode"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// apiError is the error body shape of the server framework.
type apiError struct {
	Detail any `json:"detail"`
}

type apiHealth struct {
	Status string `json:"status"`
}
