package bubbletea

import (
	"strings"

	"github.com/fwojciec/drip"
	"github.com/fwojciec/drip/goldmark"
)

var _ MessageBlock = (*AssistantBlock)(nil)

// AssistantBlock renders the assistant's turn with markdown formatting.
// Each snapshot replaces the whole text. Paragraphs before the last double
// newline are rendered once and cached as long as later snapshots keep them
// as a prefix; only the trailing text is re-rendered.
type AssistantBlock struct {
	content    string
	annotation string
	theme      drip.Theme
	styles     Styles

	finalizedRaw     string
	finalizedByWidth map[int]string
}

// NewAssistantBlock creates an empty assistant block.
func NewAssistantBlock(theme drip.Theme, styles Styles) *AssistantBlock {
	return &AssistantBlock{
		theme:            theme,
		styles:           styles,
		finalizedByWidth: make(map[int]string),
	}
}

// Set replaces the block's text and its transient annotation.
func (b *AssistantBlock) Set(text, annotation string) {
	b.content = text
	b.annotation = annotation
	b.promoteFinalized()
}

// Text returns the current markdown text without the annotation.
func (b *AssistantBlock) Text() string { return b.content }

func (b *AssistantBlock) View(width int) string {
	body := b.renderBody(width)
	if b.annotation == "" {
		return body
	}
	note := b.styles.Annotation.Render(b.annotation)
	if body == "" {
		return note
	}
	return body + "\n\n" + note
}

func (b *AssistantBlock) renderBody(width int) string {
	finalized := b.renderFinalized(width)
	trailing := b.trailingRaw()
	if hasUnclosedFence(trailing) {
		// Close the fence for rendering only so partial code displays.
		trailing += "\n```"
	}
	if strings.TrimSpace(trailing) == "" {
		return finalized
	}
	rendered := goldmark.Render(trailing, width, b.theme)
	if strings.TrimSpace(rendered) == "" {
		return finalized
	}
	if finalized == "" {
		return rendered
	}
	return strings.TrimRight(finalized, "\n") + "\n\n" + strings.TrimLeft(rendered, "\n")
}

// promoteFinalized finds the last "\n\n" boundary outside an unclosed
// fenced code block and caches everything before it.
func (b *AssistantBlock) promoteFinalized() {
	raw := b.content
	for end := len(raw); ; {
		idx := strings.LastIndex(raw[:end], "\n\n")
		if idx <= 0 {
			b.setFinalized("")
			return
		}
		candidate := raw[:idx]
		if !hasUnclosedFence(candidate) {
			b.setFinalized(candidate)
			return
		}
		end = idx
	}
}

func (b *AssistantBlock) setFinalized(raw string) {
	if raw != b.finalizedRaw {
		b.finalizedRaw = raw
		clear(b.finalizedByWidth)
	}
}

func (b *AssistantBlock) renderFinalized(width int) string {
	if width <= 0 || b.finalizedRaw == "" {
		return ""
	}
	if cached, ok := b.finalizedByWidth[width]; ok {
		return cached
	}
	rendered := goldmark.Render(b.finalizedRaw, width, b.theme)
	b.finalizedByWidth[width] = rendered
	return rendered
}

func (b *AssistantBlock) trailingRaw() string {
	if b.finalizedRaw == "" {
		return b.content
	}
	return strings.TrimPrefix(b.content, b.finalizedRaw+"\n\n")
}

// hasUnclosedFence reports an odd number of "```" occurrences. Triple
// backticks inside inline code spans are miscounted.
func hasUnclosedFence(s string) bool {
	return strings.Count(s, "```")%2 == 1
}
