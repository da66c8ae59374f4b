package engine

import (
	"container/heap"
	"time"

	"github.com/google/uuid"
)

// expiryEntry is one scheduled expiration. generation lets stale entries be
// tombstoned: whenever an order is cancelled, re-matched via Modify, filled
// as a maker, or lazily expired by the matcher, its generation counter is
// bumped, and any heap entry still carrying the old generation is skipped
// on pop.
type expiryEntry struct {
	id         uuid.UUID
	at         time.Time
	generation uint64
}

// expiryHeap is a container/heap min-heap ordered by expiration instant.
type expiryHeap []expiryEntry

func (h expiryHeap) Len() int            { return len(h) }
func (h expiryHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h expiryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *expiryHeap) Push(x any)         { *h = append(*h, x.(expiryEntry)) }
func (h *expiryHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	*h = old[:n-1]
	return entry
}

// expiryQueue is the authoritative source of scheduled expirations. It is
// not safe for concurrent use; callers hold the Engine's mutex.
type expiryQueue struct {
	h           expiryHeap
	generations map[uuid.UUID]uint64
}

func newExpiryQueue() *expiryQueue {
	return &expiryQueue{generations: make(map[uuid.UUID]uint64)}
}

// Schedule registers id to expire at "at", bumping its generation so any
// previously-scheduled entry for the same id is tombstoned.
func (q *expiryQueue) Schedule(id uuid.UUID, at time.Time) {
	q.generations[id]++
	heap.Push(&q.h, expiryEntry{id: id, at: at, generation: q.generations[id]})
}

// Cancel bumps id's generation without scheduling a new entry, tombstoning
// any pending heap entry (used on explicit Cancel, on a successful Modify's
// cancel-then-create, when a resting maker is filled, and when the matcher
// lazily sweeps an expired maker).
func (q *expiryQueue) Cancel(id uuid.UUID) {
	q.generations[id]++
}

// Due pops and returns every id whose scheduled expiration is at or before
// now, skipping tombstoned (stale-generation) entries.
func (q *expiryQueue) Due(now time.Time) []uuid.UUID {
	var due []uuid.UUID
	for len(q.h) > 0 && !q.h[0].at.After(now) {
		entry := heap.Pop(&q.h).(expiryEntry)
		if q.generations[entry.id] == entry.generation {
			due = append(due, entry.id)
		}
	}
	return due
}
