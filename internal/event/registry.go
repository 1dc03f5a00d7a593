package event

import (
	"sync"

	"github.com/google/uuid"
)

// Handle is a non-owning reference to a Descriptor held by a Registry.
type Handle string

// NewHandle returns a fresh random handle.
func NewHandle() Handle {
	return Handle(uuid.NewString())
}

func (h Handle) IsZero() bool {
	return h == ""
}

// Registry resolves handles to descriptors. Drafts refer to their original
// through a handle, so dropping a draft never keeps an original alive.
type Registry struct {
	mu    sync.Mutex
	items map[Handle]Descriptor
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[Handle]Descriptor)}
}

// Add registers d under its handle.
func (r *Registry) Add(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[d.Handle()] = d
}

// Lookup resolves h.
func (r *Registry) Lookup(h Handle) (Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.items[h]
	return d, ok
}

// Remove drops h. Unknown handles are ignored.
func (r *Registry) Remove(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, h)
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Begin starts an edit session on d and returns the draft.
func (r *Registry) Begin(d Descriptor) Descriptor {
	r.Add(d)
	return d.MakeEditable(r)
}

// Commit applies draft onto its original and ends the session. It reports
// false when the original cannot be resolved or rejects the draft; the
// draft stays registered in that case.
func (r *Registry) Commit(draft Descriptor) bool {
	if draft == nil {
		return false
	}
	original, ok := r.Lookup(draft.EditedEvent())
	if !ok {
		return false
	}
	if !original.CommitEditing(draft) {
		return false
	}
	r.Remove(draft.Handle())
	return true
}

// Discard ends the session without touching the original.
func (r *Registry) Discard(draft Descriptor) {
	if draft == nil {
		return
	}
	r.Remove(draft.Handle())
}
