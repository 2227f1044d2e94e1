package ingestion

import "github.com/google/uuid"

// Deduper drops duplicate deliveries of the same upstream event id before
// they reach the sequencer. Bounded FIFO eviction; capacity should cover
// the broker's redelivery window with room to spare.
type Deduper struct {
	seen     map[uuid.UUID]struct{}
	order    []uuid.UUID
	capacity int
}

func NewDeduper(capacity int) *Deduper {
	return &Deduper{
		seen:     make(map[uuid.UUID]struct{}, capacity),
		order:    make([]uuid.UUID, 0, capacity),
		capacity: capacity,
	}
}

// Observe records an id and reports whether it was already seen.
func (d *Deduper) Observe(id uuid.UUID) bool {
	if _, dup := d.seen[id]; dup {
		return true
	}
	if len(d.order) >= d.capacity {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.seen, oldest)
	}
	d.seen[id] = struct{}{}
	d.order = append(d.order, id)
	return false
}
