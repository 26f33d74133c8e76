package cty

import (
	"sync/atomic"
	"time"
)

// Holder publishes the current Table. Readers get a consistent snapshot;
// a refresh replaces the whole table at once.
type Holder struct {
	current atomic.Pointer[Table]
}

// NewHolder returns a holder serving t.
func NewHolder(t *Table) *Holder {
	h := &Holder{}
	h.current.Store(t)
	return h
}

// Table returns the current snapshot.
func (h *Holder) Table() *Table {
	return h.current.Load()
}

// Swap installs t and returns the table it replaced.
func (h *Holder) Swap(t *Table) *Table {
	return h.current.Swap(t)
}

// Resolve resolves against the current snapshot.
func (h *Holder) Resolve(call string, at time.Time) (ResolvedEntity, bool) {
	t := h.Table()
	if t == nil {
		return ResolvedEntity{}, false
	}
	return t.Resolve(call, at)
}
