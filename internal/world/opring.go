package world

// OpRing is a fixed-capacity ring of recent operation ids, used to suppress
// duplicate reward grants. Lookup is linear; the ring is small.
type OpRing struct {
	ids  []string
	next int
	full bool
}

// NewOpRing creates a ring holding up to capacity ids.
func NewOpRing(capacity int) *OpRing {
	if capacity < 1 {
		capacity = 1
	}
	return &OpRing{ids: make([]string, capacity)}
}

// Contains reports whether the id is still remembered.
func (r *OpRing) Contains(id string) bool {
	n := r.next
	if r.full {
		n = len(r.ids)
	}
	for i := 0; i < n; i++ {
		if r.ids[i] == id {
			return true
		}
	}
	return false
}

// Remember records an id, evicting the oldest once the ring is full.
func (r *OpRing) Remember(id string) {
	r.ids[r.next] = id
	r.next++
	if r.next == len(r.ids) {
		r.next = 0
		r.full = true
	}
}

// Len returns the number of remembered ids.
func (r *OpRing) Len() int {
	if r.full {
		return len(r.ids)
	}
	return r.next
}
