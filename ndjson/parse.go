package ndjson

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/fwojciec/drip"
)

// wireEvent is the union of every field the backend sends on a line.
type wireEvent struct {
	Type      string          `json:"type"`
	Kind      string          `json:"kind"`
	Content   json.RawMessage `json:"content"`
	Worker    text            `json:"worker"`
	Task      text            `json:"task"`
	Priority  text            `json:"priority"`
	Reasoning text            `json:"reasoning"`
	Tool      text            `json:"tool"`
	ToolName  text            `json:"tool_name"`
	Input     text            `json:"input"`
	Status    text            `json:"status"`
}

// text accepts any JSON scalar and keeps non-string values as their compact
// JSON form. null decodes to the empty string.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	*t = text(rawText(data))
	return nil
}

func rawText(data json.RawMessage) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ""
	}
	var s string
	if data[0] == '"' && json.Unmarshal(data, &s) == nil {
		return s
	}
	var buf bytes.Buffer
	if json.Compact(&buf, data) == nil {
		return buf.String()
	}
	return string(data)
}

// ParseLine decodes one line into an event. Lines of an unrecognized kind
// yield drip.EventUnknown; anything that is not a JSON object with a
// discriminator is an error wrapping drip.ErrMalformedEvent.
func ParseLine(line string) (drip.Event, error) {
	var w wireEvent
	if err := json.Unmarshal([]byte(line), &w); err != nil {
		return nil, fmt.Errorf("ndjson: %w: %w", drip.ErrMalformedEvent, err)
	}
	kind := w.Type
	if kind == "" {
		kind = w.Kind
	}
	if kind == "" {
		return nil, fmt.Errorf("ndjson: %w: missing type", drip.ErrMalformedEvent)
	}

	content := rawText(w.Content)
	switch drip.Kind(kind) {
	case drip.KindContent:
		return drip.EventContent{Text: content}, nil
	case drip.KindThought:
		return drip.EventThought{Text: content}, nil
	case drip.KindStatus:
		return drip.EventStatus{Text: content}, nil
	case drip.KindError:
		return drip.EventError{Message: content}, nil
	case drip.KindToolStart:
		tool := string(w.ToolName)
		if tool == "" {
			tool = string(w.Tool)
		}
		return drip.EventToolStart{Tool: tool, Input: string(w.Input)}, nil
	case drip.KindToolResult:
		return drip.EventToolResult{Tool: string(w.Tool), Content: content}, nil
	case drip.KindPlan:
		items, err := parsePlan(w.Content)
		if err != nil {
			return nil, fmt.Errorf("ndjson: %w: plan: %w", drip.ErrMalformedEvent, err)
		}
		return drip.EventPlan{Items: items, Reasoning: string(w.Reasoning)}, nil
	case drip.KindPlanDelta:
		return drip.EventPlanDelta{
			Item: drip.PlanItem{
				Worker:   string(w.Worker),
				Task:     string(w.Task),
				Status:   string(w.Status),
				Priority: string(w.Priority),
			},
			Reasoning: string(w.Reasoning),
		}, nil
	case drip.KindWorkerStart:
		return drip.EventWorkerStart{Worker: string(w.Worker), Task: string(w.Task)}, nil
	case drip.KindWorkerComplete:
		return drip.EventWorkerComplete{Worker: string(w.Worker), Task: string(w.Task), Status: string(w.Status)}, nil
	default:
		return drip.EventUnknown{Name: kind}, nil
	}
}

type wireTodo struct {
	Worker   text `json:"worker"`
	Task     text `json:"task"`
	Content  text `json:"content"`
	Status   text `json:"status"`
	Priority text `json:"priority"`
}

// parsePlan accepts a list of strings or todo objects, optionally wrapped
// in {"todos": [...]} or {"tasks": [...]}, or a single string.
func parsePlan(raw json.RawMessage) ([]drip.PlanItem, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return []drip.PlanItem{{Task: s}}, nil
	case '{':
		var wrapped struct {
			Todos json.RawMessage `json:"todos"`
			Tasks json.RawMessage `json:"tasks"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, err
		}
		if wrapped.Todos != nil {
			return parsePlan(wrapped.Todos)
		}
		if wrapped.Tasks != nil {
			return parsePlan(wrapped.Tasks)
		}
		return nil, fmt.Errorf("object without todos or tasks")
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, err
	}
	items := make([]drip.PlanItem, 0, len(elems))
	for _, e := range elems {
		e = bytes.TrimSpace(e)
		if len(e) > 0 && e[0] == '{' {
			var td wireTodo
			if err := json.Unmarshal(e, &td); err != nil {
				return nil, err
			}
			task := string(td.Task)
			if task == "" {
				task = string(td.Content)
			}
			items = append(items, drip.PlanItem{
				Worker:   string(td.Worker),
				Task:     task,
				Status:   string(td.Status),
				Priority: string(td.Priority),
			})
			continue
		}
		items = append(items, drip.PlanItem{Task: rawText(e)})
	}
	return items, nil
}
