package drip

import (
	"fmt"
	"slices"
	"strings"
)

// Section headers rendered into the turn document.
const (
	ThinkingHeader = "> 💭 **Thinking**"
	PlanHeader     = "### 📋 Task Plan"
)

type sectionKind uint8

const (
	sectionText sectionKind = iota
	sectionThought
	sectionPlan
)

type section struct {
	kind sectionKind
	text string
}

// Turn is the accumulated assistant turn of one stream session. It is a
// value: Apply never mutates the receiver, so a Turn may be shared freely
// between the controller, renderers and persistence.
type Turn struct {
	sections   []section
	thinking   bool // thinking header emitted
	annotation string
}

// Replay folds events into an empty Turn in order.
func Replay(events ...Event) Turn {
	var t Turn
	for _, e := range events {
		t = t.Apply(e)
	}
	return t
}

// Apply returns the turn that results from folding e into t.
func (t Turn) Apply(e Event) Turn {
	switch e := e.(type) {
	case EventContent:
		if e.Text == "" || LooksLikeJSON(e.Text) {
			return t
		}
		t.annotation = ""
		return t.appendTo(sectionText, e.Text)
	case EventThought:
		if e.Text == "" {
			return t
		}
		t.annotation = ""
		body := quote(e.Text)
		if n := len(t.sections); n > 0 && t.sections[n-1].kind == sectionThought {
			return t.appendTo(sectionThought, body)
		}
		if !t.thinking {
			t.thinking = true
			return t.push(sectionThought, ThinkingHeader+"\n> "+body)
		}
		return t.push(sectionThought, "> "+body)
	case EventPlanDelta:
		t.annotation = ""
		line := "- " + renderPlanItem(e.Item)
		if i := t.find(sectionPlan); i >= 0 {
			return t.replace(i, t.sections[i].text+"\n"+line)
		}
		return t.push(sectionPlan, planPreamble(e.Reasoning)+line)
	case EventPlan:
		t.annotation = ""
		var b strings.Builder
		b.WriteString(planPreamble(e.Reasoning))
		for i, item := range e.Items {
			if i > 0 {
				b.WriteByte('\n')
			}
			box := "[ ]"
			if item.Done() {
				box = "[x]"
			}
			b.WriteString("- " + box + " " + renderPlanItem(item))
		}
		block := strings.TrimRight(b.String(), "\n")
		if i := t.find(sectionPlan); i >= 0 {
			return t.replace(i, block)
		}
		return t.push(sectionPlan, block)
	case EventStatus:
		t.annotation = e.Text
	case EventToolStart:
		tool := e.Tool
		if tool == "" {
			tool = "tool"
		}
		t.annotation = fmt.Sprintf("🔧 Running %s...", tool)
	case EventWorkerStart:
		w := LookupWorker(e.Worker)
		t.annotation = fmt.Sprintf("%s %s working...", w.Icon, w.Name)
	case EventWorkerComplete:
		w := LookupWorker(e.Worker)
		if e.Failed() {
			t.annotation = fmt.Sprintf("⚠️ %s failed", w.Name)
		} else {
			t.annotation = fmt.Sprintf("✅ %s completed", w.Name)
		}
	}
	// tool_result, error and unknown kinds leave the document untouched.
	return t
}

// Text returns the durable rendered document, without the annotation.
func (t Turn) Text() string {
	parts := make([]string, len(t.sections))
	for i, s := range t.sections {
		parts[i] = s.text
	}
	return strings.Join(parts, "\n\n")
}

// Annotation returns the current ephemeral annotation, if any.
func (t Turn) Annotation() string {
	return t.annotation
}

// Display returns the document with the annotation as a trailing paragraph.
func (t Turn) Display() string {
	return withAnnotation(t.Text(), t.annotation)
}

// Empty reports whether no durable content has been folded in.
func (t Turn) Empty() bool {
	return len(t.sections) == 0
}

func withAnnotation(text, annotation string) string {
	switch {
	case annotation == "":
		return text
	case text == "":
		return annotation
	}
	return text + "\n\n" + annotation
}

func (t Turn) find(kind sectionKind) int {
	return slices.IndexFunc(t.sections, func(s section) bool { return s.kind == kind })
}

func (t Turn) push(kind sectionKind, text string) Turn {
	t.sections = append(slices.Clip(t.sections), section{kind: kind, text: text})
	return t
}

func (t Turn) replace(i int, text string) Turn {
	t.sections = slices.Clone(t.sections)
	t.sections[i].text = text
	return t
}

// appendTo extends the trailing section when it has the given kind, and
// starts a new one otherwise.
func (t Turn) appendTo(kind sectionKind, text string) Turn {
	n := len(t.sections)
	if n == 0 || t.sections[n-1].kind != kind {
		return t.push(kind, text)
	}
	return t.replace(n-1, t.sections[n-1].text+text)
}

func planPreamble(reasoning string) string {
	s := PlanHeader + "\n\n"
	if r := strings.TrimSpace(reasoning); r != "" {
		s += "> " + quote(r) + "\n\n"
	}
	return s
}

func renderPlanItem(p PlanItem) string {
	if p.Worker == "" {
		return p.Task
	}
	w := LookupWorker(p.Worker)
	return fmt.Sprintf("%s **%s**: %s", w.Icon, w.Name, p.Task)
}

func quote(s string) string {
	return strings.ReplaceAll(s, "\n", "\n> ")
}

// LooksLikeJSON reports whether s, once trimmed, is shaped like a complete
// JSON object or array of objects. It is a heuristic, not a parser: text that
// merely contains brackets never matches.
func LooksLikeJSON(s string) bool {
	s = strings.TrimSpace(s)
	return (strings.HasPrefix(s, `{"`) && strings.HasSuffix(s, "}")) ||
		(strings.HasPrefix(s, "[{") && strings.HasSuffix(s, "]"))
}
