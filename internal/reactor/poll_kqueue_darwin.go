//go:build darwin

package reactor

import "golang.org/x/sys/unix"

// kqueueOps is the BSD/macOS readiness backend: one-shot EVFILT_READ
// / EVFILT_WRITE watches, matching the same contract as epollOps.
type kqueueOps struct {
	kq int
}

func newKqueue() (pollOps, error) {
	fd, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &kqueueOps{kq: fd}, nil
}

// NewKqueue constructs the BSD/macOS Reactor backend.
func NewKqueue() (Reactor, error) {
	ops, err := newKqueue()
	if err != nil {
		return nil, err
	}
	return newPoll(ops), nil
}

func (k *kqueueOps) changeOne(fd int, filter int16) error {
	ev := unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: filter,
		Flags:  unix.EV_ADD | unix.EV_ONESHOT,
	}
	_, err := unix.Kevent(k.kq, []unix.Kevent_t{ev}, nil, nil)
	return err
}

func (k *kqueueOps) registerRead(fd int) error  { return k.changeOne(fd, unix.EVFILT_READ) }
func (k *kqueueOps) registerWrite(fd int) error { return k.changeOne(fd, unix.EVFILT_WRITE) }

func (k *kqueueOps) unregister(fd int) {
	for _, filter := range []int16{unix.EVFILT_READ, unix.EVFILT_WRITE} {
		ev := unix.Kevent_t{Ident: uint64(fd), Filter: filter, Flags: unix.EV_DELETE}
		_, _ = unix.Kevent(k.kq, []unix.Kevent_t{ev}, nil, nil)
	}
}

func (k *kqueueOps) wait(timeoutMs int) (readable, writable []int, err error) {
	events := make([]unix.Kevent_t, 64)
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMs) * 1_000_000)
		ts = &t
	}
	n, err := unix.Kevent(k.kq, nil, events, ts)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	for i := 0; i < n; i++ {
		fd := int(events[i].Ident)
		switch events[i].Filter {
		case unix.EVFILT_READ:
			readable = append(readable, fd)
		case unix.EVFILT_WRITE:
			writable = append(writable, fd)
		}
	}
	return readable, writable, nil
}

func (k *kqueueOps) close() error {
	return unix.Close(k.kq)
}
