package drip

import "slices"

// Message is one entry of a thread's ordered message list.
type Message struct {
	Role    Role
	Content string
}

// UserMessage returns a user message with the given content.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage returns an assistant message with the given content.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Append returns a new slice holding msgs followed by m. The backing array of
// msgs is never written to, so callers may keep sharing it.
func Append(msgs []Message, m ...Message) []Message {
	out := make([]Message, 0, len(msgs)+len(m))
	out = append(out, msgs...)
	return append(out, m...)
}

// ReplaceLast returns a copy of msgs with the last element replaced by m. On
// an empty slice it behaves like Append.
func ReplaceLast(msgs []Message, m Message) []Message {
	if len(msgs) == 0 {
		return []Message{m}
	}
	out := slices.Clone(msgs)
	out[len(out)-1] = m
	return out
}

// FirstUser returns the content of the first user message, if any.
func FirstUser(msgs []Message) (string, bool) {
	for _, m := range msgs {
		if m.Role == RoleUser {
			return m.Content, true
		}
	}
	return "", false
}
