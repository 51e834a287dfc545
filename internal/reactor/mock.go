package reactor

import "time"

// Mock is the in-process reactor backend used by tests (and by any
// environment lacking epoll/kqueue). It performs no real I/O: Read,
// Write, Accept and Connect stay pending until the test explicitly
// resolves them with the matching Complete* method, which is how a
// test drives "the kernel reported this completion" without a real
// socket. Socket and Close complete synchronously, per the reactor
// contract for the readiness-backend family.
//
// Mock runs on a virtual clock so timer-law tests are deterministic:
// AdvanceTime moves the clock forward and makes any timer whose
// deadline has passed eligible for the next Run call.
type Mock struct {
	nextID TaskID
	nextFD int
	now    int64 // virtual nanoseconds

	pending map[TaskID]*pendingOp
	byFD    map[int][]TaskID // non-timer ops, for CancelByFD

	timers *timerQueue
	ready  []readyCompletion // completions waiting for the next Run to dispatch
	stop   bool
}

// readyCompletion pairs a Completion with the callback that must fire
// for it; kept separate from the pending map since by the time an op
// is queued here (canceled, or synchronously resolved) it has already
// been removed from pending.
type readyCompletion struct {
	completion Completion
	cb         Callback
}

type pendingOp struct {
	id       TaskID
	kind     OpKind
	fd       int
	userData any
	cb       Callback
}

func NewMock() *Mock {
	return &Mock{
		pending: make(map[TaskID]*pendingOp),
		byFD:    make(map[int][]TaskID),
		timers:  newTimerQueue(),
	}
}

func (m *Mock) allocID() TaskID {
	m.nextID++
	return m.nextID
}

func (m *Mock) track(op *pendingOp) {
	m.pending[op.id] = op
	m.byFD[op.fd] = append(m.byFD[op.fd], op.id)
}

func (m *Mock) untrack(id TaskID) {
	op, ok := m.pending[id]
	if !ok {
		return
	}
	delete(m.pending, id)
	ids := m.byFD[op.fd]
	for i, x := range ids {
		if x == id {
			m.byFD[op.fd] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
}

func (m *Mock) Socket(domain, typ, proto int, userData any, cb Callback) Task {
	m.nextFD++
	fd := m.nextFD
	id := m.allocID()
	m.deliverSync(id, userData, cb, Result{Kind: OpSocket, FD: fd})
	return Task{ID: id}
}

func (m *Mock) Connect(fd int, sockaddr any, userData any, cb Callback) Task {
	id := m.allocID()
	m.track(&pendingOp{id: id, kind: OpConnect, fd: fd, userData: userData, cb: cb})
	return Task{ID: id}
}

func (m *Mock) Accept(fd int, userData any, cb Callback) Task {
	id := m.allocID()
	m.track(&pendingOp{id: id, kind: OpAccept, fd: fd, userData: userData, cb: cb})
	return Task{ID: id}
}

func (m *Mock) Read(fd int, buf []byte, userData any, cb Callback) Task {
	id := m.allocID()
	m.track(&pendingOp{id: id, kind: OpRead, fd: fd, userData: userData, cb: cb})
	return Task{ID: id}
}

func (m *Mock) Write(fd int, buf []byte, userData any, cb Callback) Task {
	id := m.allocID()
	m.track(&pendingOp{id: id, kind: OpWrite, fd: fd, userData: userData, cb: cb})
	return Task{ID: id}
}

func (m *Mock) Close(fd int, userData any, cb Callback) Task {
	id := m.allocID()
	m.CancelByFD(fd)
	m.deliverSync(id, userData, cb, Result{Kind: OpClose, FD: fd})
	return Task{ID: id}
}

func (m *Mock) Timeout(d time.Duration, userData any, cb Callback) Task {
	id := m.allocID()
	m.timers.add(&timerEntry{
		id:       id,
		deadline: m.now + int64(d),
		userData: userData,
		cb:       cb,
	})
	return Task{ID: id}
}

func (m *Mock) Cancel(id TaskID) {
	if e, ok := m.timers.byID[id]; ok {
		cb := e.cb
		m.timers.cancel(id)
		m.ready = append(m.ready, readyCompletion{
			completion: Completion{TaskID: id, UserData: e.userData, Result: Result{Kind: OpTimeout, Err: ErrCanceled}},
			cb:         cb,
		})
		return
	}
	op, ok := m.pending[id]
	if !ok {
		return // already completed or reaped: best-effort no-op
	}
	m.untrack(id)
	m.ready = append(m.ready, readyCompletion{
		completion: Completion{TaskID: id, UserData: op.userData, Result: Result{Kind: op.kind, FD: op.fd, Err: ErrCanceled}},
		cb:         op.cb,
	})
}

func (m *Mock) CancelByFD(fd int) {
	ids := append([]TaskID(nil), m.byFD[fd]...)
	for _, id := range ids {
		op := m.pending[id]
		m.untrack(id)
		m.ready = append(m.ready, readyCompletion{
			completion: Completion{TaskID: id, UserData: op.userData, Result: Result{Kind: op.kind, FD: op.fd, Err: ErrCanceled}},
			cb:         op.cb,
		})
	}
}

// deliverSync queues a completion for the next Run call rather than
// invoking cb inline, so submit-then-Run ordering matches the real
// backends even for ops the mock can resolve immediately.
func (m *Mock) deliverSync(id TaskID, userData any, cb Callback, res Result) {
	m.ready = append(m.ready, readyCompletion{
		completion: Completion{TaskID: id, UserData: userData, Result: res},
		cb:         cb,
	})
}

// --- test-driving API: resolves a pending async op as if the kernel
// had reported it ---

func (m *Mock) CompleteRead(fd int, n int, err error) bool {
	return m.completeOldest(fd, OpRead, Result{Kind: OpRead, N: n, FD: fd, Err: err})
}

func (m *Mock) CompleteWrite(fd int, n int, err error) bool {
	return m.completeOldest(fd, OpWrite, Result{Kind: OpWrite, N: n, FD: fd, Err: err})
}

func (m *Mock) CompleteAccept(fd int, newFD int, err error) bool {
	return m.completeOldest(fd, OpAccept, Result{Kind: OpAccept, FD: newFD, Err: err})
}

func (m *Mock) CompleteConnect(fd int, err error) bool {
	return m.completeOldest(fd, OpConnect, Result{Kind: OpConnect, FD: fd, Err: err})
}

func (m *Mock) completeOldest(fd int, kind OpKind, res Result) bool {
	for _, id := range m.byFD[fd] {
		op := m.pending[id]
		if op.kind != kind {
			continue
		}
		m.untrack(id)
		m.ready = append(m.ready, readyCompletion{
			completion: Completion{TaskID: id, UserData: op.userData, Result: res},
			cb:         op.cb,
		})
		return true
	}
	return false
}

// AdvanceTime moves the virtual clock forward by d. Timers whose
// deadline has now passed become eligible on the next Run call.
func (m *Mock) AdvanceTime(d time.Duration) {
	m.now += int64(d)
}

func (m *Mock) Run(mode RunMode) error {
	for {
		dispatched := m.dispatchBatch()
		switch mode {
		case RunOnce:
			return nil
		case RunUntilDone:
			if len(m.pending) == 0 && m.timers.len() == 0 {
				return nil
			}
			if !dispatched {
				// Nothing left that can ever complete without external
				// driving (no more timers due, no queued completions):
				// avoid spinning forever.
				return nil
			}
		case RunForever:
			if m.stop {
				m.stop = false
				return nil
			}
			if !dispatched {
				return nil
			}
		}
	}
}

func (m *Mock) dispatchBatch() bool {
	dispatched := false
	for _, e := range m.timers.ready(m.now) {
		e.cb(Completion{TaskID: e.id, UserData: e.userData, Result: Result{Kind: OpTimeout}})
		dispatched = true
	}
	batch := m.ready
	m.ready = nil
	for _, rc := range batch {
		rc.cb(rc.completion)
		dispatched = true
	}
	return dispatched
}

func (m *Mock) Stop() { m.stop = true }

func (m *Mock) Shutdown() error { return nil }
