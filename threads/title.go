package threads

import (
	"strings"

	"github.com/rivo/uniseg"
)

// DefaultTitleLength is the number of grapheme clusters kept in a derived
// title.
const DefaultTitleLength = 40

// DefaultTitle is the title of a thread with no user message yet.
const DefaultTitle = "New chat"

// DeriveTitle returns text with runs of whitespace collapsed, truncated to
// max grapheme clusters with "..." appended when it was longer. Clusters are
// never split, so emoji and combining sequences survive truncation.
func DeriveTitle(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if max <= 0 || uniseg.GraphemeClusterCount(text) <= max {
		return text
	}
	var b strings.Builder
	g := uniseg.NewGraphemes(text)
	for n := 0; n < max && g.Next(); n++ {
		b.WriteString(g.Str())
	}
	return strings.TrimRight(b.String(), " ") + "..."
}
