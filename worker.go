package drip

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Worker is the display identity of a backend worker label.
type Worker struct {
	Label string
	Icon  string
	Name  string
}

var workers = map[string]Worker{
	"research":  {Label: "research", Icon: "🔍", Name: "Research Specialist"},
	"content":   {Label: "content", Icon: "✍️", Name: "Content Strategist"},
	"analytics": {Label: "analytics", Icon: "📊", Name: "Analytics Specialist"},
	"social":    {Label: "social", Icon: "📱", Name: "Social Media Strategist"},
	"general":   {Label: "general", Icon: "💬", Name: "General Assistant"},
}

// LookupWorker maps a worker label to its icon and name. Unrecognized labels
// get a generic icon and the label title-cased.
func LookupWorker(label string) Worker {
	key := strings.ToLower(strings.TrimSpace(label))
	if w, ok := workers[key]; ok {
		return w
	}
	name := strings.ReplaceAll(strings.TrimSpace(label), "_", " ")
	if name == "" {
		name = "Agent"
	}
	return Worker{Label: label, Icon: "🤖", Name: cases.Title(language.English).String(name)}
}
