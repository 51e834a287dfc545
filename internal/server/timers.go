package server

import (
	"time"

	"github.com/prise-term/prise/internal/reactor"
	"github.com/prise-term/prise/internal/script"
)

// timerTable maps the opaque script.TimerRef a script holds to the
// reactor.TaskID backing it, so CancelTimer can reach the reactor.
type timerTable struct {
	next uint64
	refs map[script.TimerRef]reactor.TaskID
}

func newTimerTable() *timerTable {
	return &timerTable{refs: make(map[script.TimerRef]reactor.TaskID)}
}

func (t *timerTable) set(r reactor.Reactor, ms int, cb func()) script.TimerRef {
	t.next++
	ref := script.TimerRef(t.next)
	task := r.Timeout(time.Duration(ms)*time.Millisecond, nil, func(c reactor.Completion) {
		delete(t.refs, ref)
		if c.Result.Err != nil {
			return // canceled
		}
		cb()
	})
	t.refs[ref] = task.ID
	return ref
}

func (t *timerTable) cancel(r reactor.Reactor, ref script.TimerRef) {
	if id, ok := t.refs[ref]; ok {
		r.Cancel(id)
		delete(t.refs, ref)
	}
}
