package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// pollOps is the small platform-specific surface a readiness backend
// must provide. poll.go implements the rest of the Reactor contract
// (op bookkeeping, timers, cancellation, Run) identically for every
// platform on top of it.
type pollOps interface {
	registerRead(fd int) error
	registerWrite(fd int) error
	unregister(fd int)
	// wait blocks up to timeoutMs (negative = forever) and returns the
	// fds that became readable/writable.
	wait(timeoutMs int) (readable, writable []int, err error)
	close() error
}

// opEntry is one pending Read/Write/Accept/Connect operation.
type opEntry struct {
	id       TaskID
	kind     OpKind
	fd       int
	buf      []byte
	userData any
	cb       Callback
}

// poll is the shared epoll/kqueue reactor. Socket and Close execute
// synchronously (queued to immediate, drained on the next Run), per
// spec.md's "may execute synchronously on the readiness backend."
type poll struct {
	ops    pollOps
	nextID TaskID

	readOps  map[int]*opEntry // fd -> pending read-direction op (Read/Accept/Connect-while-EAGAIN-on-connect is write though)
	writeOps map[int]*opEntry // fd -> pending write-direction op (Write/Connect)
	byID     map[TaskID]*opEntry

	timers *timerQueue
	// immediate holds completions from ops that resolved without
	// waiting on readiness (Socket, Close, Connect-that-succeeded-inline).
	immediate []readyCompletion

	stop bool
}

func newPoll(ops pollOps) *poll {
	return &poll{
		ops:      ops,
		readOps:  make(map[int]*opEntry),
		writeOps: make(map[int]*opEntry),
		byID:     make(map[TaskID]*opEntry),
		timers:   newTimerQueue(),
	}
}

func (p *poll) allocID() TaskID {
	p.nextID++
	return p.nextID
}

func (p *poll) Socket(domain, typ, proto int, userData any, cb Callback) Task {
	id := p.allocID()
	fd, err := unix.Socket(domain, typ, proto)
	if err == nil {
		_ = unix.SetNonblock(fd, true)
	}
	p.queueImmediate(id, userData, cb, Result{Kind: OpSocket, FD: fd, Err: err})
	return Task{ID: id}
}

func (p *poll) Connect(fd int, sockaddr any, userData any, cb Callback) Task {
	id := p.allocID()
	addr, ok := sockaddr.(unix.Sockaddr)
	if !ok {
		p.queueImmediate(id, userData, cb, Result{Kind: OpConnect, FD: fd, Err: ErrInvalidSockaddr})
		return Task{ID: id}
	}
	err := unix.Connect(fd, addr)
	if err == nil {
		p.queueImmediate(id, userData, cb, Result{Kind: OpConnect, FD: fd})
		return Task{ID: id}
	}
	if err != unix.EINPROGRESS {
		p.queueImmediate(id, userData, cb, Result{Kind: OpConnect, FD: fd, Err: err})
		return Task{ID: id}
	}
	entry := &opEntry{id: id, kind: OpConnect, fd: fd, userData: userData, cb: cb}
	p.writeOps[fd] = entry
	p.byID[id] = entry
	_ = p.ops.registerWrite(fd)
	return Task{ID: id}
}

func (p *poll) Accept(fd int, userData any, cb Callback) Task {
	id := p.allocID()
	entry := &opEntry{id: id, kind: OpAccept, fd: fd, userData: userData, cb: cb}
	p.readOps[fd] = entry
	p.byID[id] = entry
	_ = p.ops.registerRead(fd)
	return Task{ID: id}
}

func (p *poll) Read(fd int, buf []byte, userData any, cb Callback) Task {
	id := p.allocID()
	entry := &opEntry{id: id, kind: OpRead, fd: fd, buf: buf, userData: userData, cb: cb}
	p.readOps[fd] = entry
	p.byID[id] = entry
	_ = p.ops.registerRead(fd)
	return Task{ID: id}
}

func (p *poll) Write(fd int, buf []byte, userData any, cb Callback) Task {
	id := p.allocID()
	entry := &opEntry{id: id, kind: OpWrite, fd: fd, buf: buf, userData: userData, cb: cb}
	p.writeOps[fd] = entry
	p.byID[id] = entry
	_ = p.ops.registerWrite(fd)
	return Task{ID: id}
}

func (p *poll) Close(fd int, userData any, cb Callback) Task {
	id := p.allocID()
	p.CancelByFD(fd)
	p.ops.unregister(fd)
	err := unix.Close(fd)
	p.queueImmediate(id, userData, cb, Result{Kind: OpClose, FD: fd, Err: err})
	return Task{ID: id}
}

func (p *poll) Timeout(d time.Duration, userData any, cb Callback) Task {
	id := p.allocID()
	p.timers.add(&timerEntry{id: id, deadline: time.Now().Add(d).UnixNano(), userData: userData, cb: cb})
	return Task{ID: id}
}

func (p *poll) Cancel(id TaskID) {
	if e, ok := p.timers.byID[id]; ok {
		cb := e.cb
		p.timers.cancel(id)
		p.immediate = append(p.immediate, readyCompletion{
			completion: Completion{TaskID: id, UserData: e.userData, Result: Result{Kind: OpTimeout, Err: ErrCanceled}},
			cb:         cb,
		})
		return
	}
	entry, ok := p.byID[id]
	if !ok {
		return
	}
	p.removeEntry(entry)
	p.immediate = append(p.immediate, readyCompletion{
		completion: Completion{TaskID: id, UserData: entry.userData, Result: Result{Kind: entry.kind, FD: entry.fd, Err: ErrCanceled}},
		cb:         entry.cb,
	})
}

func (p *poll) CancelByFD(fd int) {
	if e, ok := p.readOps[fd]; ok {
		p.removeEntry(e)
		p.immediate = append(p.immediate, readyCompletion{
			completion: Completion{TaskID: e.id, UserData: e.userData, Result: Result{Kind: e.kind, FD: fd, Err: ErrCanceled}},
			cb:         e.cb,
		})
	}
	if e, ok := p.writeOps[fd]; ok {
		p.removeEntry(e)
		p.immediate = append(p.immediate, readyCompletion{
			completion: Completion{TaskID: e.id, UserData: e.userData, Result: Result{Kind: e.kind, FD: fd, Err: ErrCanceled}},
			cb:         e.cb,
		})
	}
	p.ops.unregister(fd)
}

func (p *poll) removeEntry(e *opEntry) {
	delete(p.byID, e.id)
	if p.readOps[e.fd] == e {
		delete(p.readOps, e.fd)
	}
	if p.writeOps[e.fd] == e {
		delete(p.writeOps, e.fd)
	}
}

func (p *poll) queueImmediate(id TaskID, userData any, cb Callback, res Result) {
	p.immediate = append(p.immediate, readyCompletion{
		completion: Completion{TaskID: id, UserData: userData, Result: res},
		cb:         cb,
	})
}

func (p *poll) Stop() { p.stop = true }

func (p *poll) Shutdown() error { return p.ops.close() }

func (p *poll) Run(mode RunMode) error {
	for {
		dispatched, err := p.runBatch()
		if err != nil {
			return err
		}
		switch mode {
		case RunOnce:
			return nil
		case RunUntilDone:
			if len(p.byID) == 0 && p.timers.len() == 0 && len(p.immediate) == 0 {
				return nil
			}
		case RunForever:
			if p.stop {
				p.stop = false
				return nil
			}
		}
		_ = dispatched
	}
}

func (p *poll) runBatch() (bool, error) {
	dispatched := false

	batch := p.immediate
	p.immediate = nil
	for _, rc := range batch {
		rc.cb(rc.completion)
		dispatched = true
	}

	timeoutMs := 0
	if d, ok := p.timers.nextDeadline(); ok {
		timeoutMs = msUntil(d)
	} else if len(p.byID) > 0 {
		timeoutMs = -1 // block until an I/O op is ready; no timer to bound the wait
	}

	if len(p.byID) > 0 || timeoutMs != 0 {
		readable, writable, err := p.ops.wait(timeoutMs)
		if err != nil {
			return dispatched, err
		}
		for _, fd := range readable {
			if p.handleReadable(fd) {
				dispatched = true
			}
		}
		for _, fd := range writable {
			if p.handleWritable(fd) {
				dispatched = true
			}
		}
	}

	now := time.Now().UnixNano()
	for _, e := range p.timers.ready(now) {
		e.cb(Completion{TaskID: e.id, UserData: e.userData, Result: Result{Kind: OpTimeout}})
		dispatched = true
	}

	return dispatched, nil
}

func msUntil(deadlineNano int64) int {
	d := time.Until(time.Unix(0, deadlineNano))
	if d <= 0 {
		return 0
	}
	ms := d.Milliseconds()
	if ms <= 0 {
		return 1
	}
	return int(ms)
}

func (p *poll) handleReadable(fd int) bool {
	entry, ok := p.readOps[fd]
	if !ok {
		return false
	}
	switch entry.kind {
	case OpAccept:
		newFD, _, err := unix.Accept(fd)
		if err == unix.EAGAIN {
			_ = p.ops.registerRead(fd)
			return false
		}
		if err == nil {
			_ = unix.SetNonblock(newFD, true)
		}
		p.removeEntry(entry)
		entry.cb(Completion{TaskID: entry.id, UserData: entry.userData, Result: Result{Kind: OpAccept, FD: newFD, Err: err}})
		return true
	case OpRead:
		n, err := unix.Read(fd, entry.buf)
		if err == unix.EAGAIN {
			_ = p.ops.registerRead(fd)
			return false
		}
		p.removeEntry(entry)
		entry.cb(Completion{TaskID: entry.id, UserData: entry.userData, Result: Result{Kind: OpRead, N: maxInt(n, 0), Err: err}})
		return true
	}
	return false
}

func (p *poll) handleWritable(fd int) bool {
	entry, ok := p.writeOps[fd]
	if !ok {
		return false
	}
	switch entry.kind {
	case OpConnect:
		errno, _ := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		p.removeEntry(entry)
		var err error
		if errno != 0 {
			err = unix.Errno(errno)
		}
		entry.cb(Completion{TaskID: entry.id, UserData: entry.userData, Result: Result{Kind: OpConnect, FD: fd, Err: err}})
		return true
	case OpWrite:
		n, err := unix.Write(fd, entry.buf)
		if err == unix.EAGAIN {
			_ = p.ops.registerWrite(fd)
			return false
		}
		p.removeEntry(entry)
		entry.cb(Completion{TaskID: entry.id, UserData: entry.userData, Result: Result{Kind: OpWrite, N: maxInt(n, 0), Err: err}})
		return true
	}
	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
