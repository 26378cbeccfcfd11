package bubbletea

import "github.com/charmbracelet/lipgloss"

var _ MessageBlock = (*ErrorBlock)(nil)

// ErrorBlock renders an alert or a failed turn.
type ErrorBlock struct {
	msg    string
	styles Styles
}

// NewErrorBlock creates an ErrorBlock.
func NewErrorBlock(msg string, styles Styles) *ErrorBlock {
	return &ErrorBlock{msg: msg, styles: styles}
}

func (b *ErrorBlock) View(width int) string {
	content := b.styles.Error.Render("Error: " + b.msg)
	return lipgloss.NewStyle().Width(width).Render(content)
}
