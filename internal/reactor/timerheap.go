package reactor

import "container/heap"

// timerEntry is one pending Timeout op.
type timerEntry struct {
	id       TaskID
	deadline int64 // UnixNano
	userData any
	cb       Callback
	canceled bool
	index    int // heap bookkeeping
}

// timerHeap is a min-heap on deadline, shared verbatim by every
// backend so Timeout/Cancel behave identically regardless of which
// readiness primitive drives Read/Write/Accept.
type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline < h[j].deadline }
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timerHeap) Push(x any) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// timerQueue wraps timerHeap with an id map so Cancel(id) can find an
// entry without a linear scan; a canceled entry is only marked and
// stays in the heap until ready pops and discards it.
type timerQueue struct {
	h       timerHeap
	byID    map[TaskID]*timerEntry
}

func newTimerQueue() *timerQueue {
	return &timerQueue{byID: make(map[TaskID]*timerEntry)}
}

func (q *timerQueue) add(e *timerEntry) {
	heap.Push(&q.h, e)
	q.byID[e.id] = e
}

func (q *timerQueue) cancel(id TaskID) bool {
	e, ok := q.byID[id]
	if !ok || e.canceled {
		return false
	}
	e.canceled = true
	delete(q.byID, id)
	return true
}

// ready pops and returns every entry whose deadline has passed as of
// now, skipping (and discarding) canceled entries.
func (q *timerQueue) ready(now int64) []*timerEntry {
	var out []*timerEntry
	for q.h.Len() > 0 && q.h[0].deadline <= now {
		e := heap.Pop(&q.h).(*timerEntry)
		if e.canceled {
			continue
		}
		delete(q.byID, e.id)
		out = append(out, e)
	}
	return out
}

// nextDeadline returns the soonest pending deadline and true, or
// (0, false) if the queue is empty.
func (q *timerQueue) nextDeadline() (int64, bool) {
	if q.h.Len() == 0 {
		return 0, false
	}
	return q.h[0].deadline, true
}

func (q *timerQueue) len() int { return len(q.byID) }
