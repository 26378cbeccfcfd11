package drip

// Kind is the wire discriminator of a stream event.
type Kind string

const (
	KindContent        Kind = "content"
	KindThought        Kind = "thought"
	KindStatus         Kind = "status"
	KindToolStart      Kind = "tool_start"
	KindToolResult     Kind = "tool_result"
	KindPlan           Kind = "plan"
	KindPlanDelta      Kind = "plan_delta"
	KindWorkerStart    Kind = "worker_start"
	KindWorkerComplete Kind = "worker_complete"
	KindError          Kind = "error"
)

// Immediate reports whether events of this kind are state-defining and
// should be published without throttling.
func (k Kind) Immediate() bool {
	switch k {
	case KindStatus, KindToolStart, KindPlan, KindPlanDelta,
		KindWorkerStart, KindWorkerComplete, KindError:
		return true
	}
	return false
}

// Throttled reports whether events of this kind are coalesced.
func (k Kind) Throttled() bool {
	return k == KindContent || k == KindThought
}

// Event is a sealed interface representing one decoded stream event.
// Transport errors come from Stream.Next's error return, not from events.
// The unexported marker method prevents external implementations.
type Event interface {
	Kind() Kind
	event()
}

// EventContent carries visible assistant text.
type EventContent struct {
	Text string
}

func (EventContent) event() {}

// Kind returns KindContent.
func (EventContent) Kind() Kind { return KindContent }

// EventThought carries reasoning text rendered inside the thinking block.
type EventThought struct {
	Text string
}

func (EventThought) event() {}

// Kind returns KindThought.
func (EventThought) Kind() Kind { return KindThought }

// EventStatus is a transient progress line.
type EventStatus struct {
	Text string
}

func (EventStatus) event() {}

// Kind returns KindStatus.
func (EventStatus) Kind() Kind { return KindStatus }

// EventToolStart signals that the backend started running a tool.
type EventToolStart struct {
	Tool  string
	Input string // compact JSON, may be empty
}

func (EventToolStart) event() {}

// Kind returns KindToolStart.
func (EventToolStart) Kind() Kind { return KindToolStart }

// EventToolResult carries a tool's output. It has no visible effect.
type EventToolResult struct {
	Tool    string
	Content string
}

func (EventToolResult) event() {}

// Kind returns KindToolResult.
func (EventToolResult) Kind() Kind { return KindToolResult }

// PlanItem is one task of a plan.
type PlanItem struct {
	Worker   string
	Task     string
	Status   string
	Priority string
}

// Done reports whether the item is marked completed.
func (p PlanItem) Done() bool {
	return p.Status == "completed" || p.Status == "done"
}

// EventPlan describes the whole plan in one shot.
type EventPlan struct {
	Items     []PlanItem
	Reasoning string
}

func (EventPlan) event() {}

// Kind returns KindPlan.
func (EventPlan) Kind() Kind { return KindPlan }

// EventPlanDelta adds one task to the plan.
type EventPlanDelta struct {
	Item      PlanItem
	Reasoning string
}

func (EventPlanDelta) event() {}

// Kind returns KindPlanDelta.
func (EventPlanDelta) Kind() Kind { return KindPlanDelta }

// EventWorkerStart signals that a worker began a task.
type EventWorkerStart struct {
	Worker string
	Task   string
}

func (EventWorkerStart) event() {}

// Kind returns KindWorkerStart.
func (EventWorkerStart) Kind() Kind { return KindWorkerStart }

// EventWorkerComplete signals that a worker finished a task.
type EventWorkerComplete struct {
	Worker string
	Task   string
	Status string
}

func (EventWorkerComplete) event() {}

// Kind returns KindWorkerComplete.
func (EventWorkerComplete) Kind() Kind { return KindWorkerComplete }

// Failed reports whether the worker reported a failure.
func (e EventWorkerComplete) Failed() bool {
	return e.Status == "failed" || e.Status == "error"
}

// EventError is a backend-reported failure for the current turn. It does not
// by itself end the stream.
type EventError struct {
	Message string
}

func (EventError) event() {}

// Kind returns KindError.
func (EventError) Kind() Kind { return KindError }

// EventUnknown is a well-formed event of a kind this client does not know.
type EventUnknown struct {
	Name string
}

func (EventUnknown) event() {}

// Kind returns the raw discriminator.
func (e EventUnknown) Kind() Kind { return Kind(e.Name) }

// Interface compliance checks.
var (
	_ Event = EventContent{}
	_ Event = EventThought{}
	_ Event = EventStatus{}
	_ Event = EventToolStart{}
	_ Event = EventToolResult{}
	_ Event = EventPlan{}
	_ Event = EventPlanDelta{}
	_ Event = EventWorkerStart{}
	_ Event = EventWorkerComplete{}
	_ Event = EventError{}
	_ Event = EventUnknown{}
)
