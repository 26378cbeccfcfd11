package drip

import (
	"slices"
	"time"
)

// Thread is a single persisted conversation. ID doubles as the correlation
// key shared with the backend.
type Thread struct {
	ID          string
	Title       string
	Messages    []Message
	UpdatedAt   time.Time
	TitleLocked bool
}

// Entry returns the registry summary of t.
func (t Thread) Entry() ThreadEntry {
	return ThreadEntry{ID: t.ID, Title: t.Title, UpdatedAt: t.UpdatedAt, TitleLocked: t.TitleLocked}
}

// ThreadEntry is the denormalized summary of a thread kept in the registry.
type ThreadEntry struct {
	ID          string
	Title       string
	UpdatedAt   time.Time
	TitleLocked bool
}

// Registry is the ordered list of thread summaries. Positions are stable:
// updating an entry never moves it.
type Registry []ThreadEntry

// Index returns the position of the entry with the given id, or -1.
func (r Registry) Index(id string) int {
	return slices.IndexFunc(r, func(e ThreadEntry) bool { return e.ID == id })
}

// Lookup returns the entry with the given id.
func (r Registry) Lookup(id string) (ThreadEntry, bool) {
	i := r.Index(id)
	if i < 0 {
		return ThreadEntry{}, false
	}
	return r[i], true
}

// Upsert returns a new registry with e replacing the entry of the same id in
// place, or prepended when no such entry exists.
func (r Registry) Upsert(e ThreadEntry) Registry {
	if i := r.Index(e.ID); i >= 0 {
		out := slices.Clone(r)
		out[i] = e
		return out
	}
	out := make(Registry, 0, len(r)+1)
	out = append(out, e)
	return append(out, r...)
}

// Remove returns a new registry without the entry of the given id.
func (r Registry) Remove(id string) Registry {
	i := r.Index(id)
	if i < 0 {
		return r
	}
	return slices.Delete(slices.Clone(r), i, i+1)
}
