package bubbletea

// MessageBlock is one rendered entry of the transcript: a user message, the
// assistant's turn or an alert. The model passes the viewport width on every
// render.
type MessageBlock interface {
	View(width int) string
}
