//go:build linux

package reactor

import "golang.org/x/sys/unix"

// epollOps is the Linux readiness backend: one-shot epoll watches per
// fd/direction, the actual read/write/accept syscall performed by the
// shared poll loop once the watch fires.
type epollOps struct {
	epfd int
	// masks tracks the currently armed event bits per fd so re-arming
	// after EAGAIN (or adding the other direction) can EPOLL_CTL_MOD
	// instead of re-adding.
	masks map[int]uint32
}

func newEpoll() (pollOps, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollOps{epfd: fd, masks: make(map[int]uint32)}, nil
}

// NewEpoll constructs the Linux Reactor backend.
func NewEpoll() (Reactor, error) {
	ops, err := newEpoll()
	if err != nil {
		return nil, err
	}
	return newPoll(ops), nil
}

func (e *epollOps) arm(fd int, bit uint32) error {
	mask, watched := e.masks[fd]
	mask |= bit | unix.EPOLLONESHOT
	event := &unix.EpollEvent{Events: mask, Fd: int32(fd)}
	var err error
	if watched {
		err = unix.EpollCtl(e.epfd, unix.EPOLL_CTL_MOD, fd, event)
		if err == unix.ENOENT {
			// fd was closed (and its number possibly reused) since it
			// was last armed; the kernel dropped it from the set.
			err = unix.EpollCtl(e.epfd, unix.EPOLL_CTL_ADD, fd, event)
		}
	} else {
		err = unix.EpollCtl(e.epfd, unix.EPOLL_CTL_ADD, fd, event)
	}
	if err != nil {
		return err
	}
	e.masks[fd] = mask
	return nil
}

func (e *epollOps) registerRead(fd int) error  { return e.arm(fd, unix.EPOLLIN) }
func (e *epollOps) registerWrite(fd int) error { return e.arm(fd, unix.EPOLLOUT) }

func (e *epollOps) unregister(fd int) {
	if _, ok := e.masks[fd]; !ok {
		return
	}
	_ = unix.EpollCtl(e.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	delete(e.masks, fd)
}

func (e *epollOps) wait(timeoutMs int) (readable, writable []int, err error) {
	events := make([]unix.EpollEvent, 64)
	n, err := unix.EpollWait(e.epfd, events, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	for i := 0; i < n; i++ {
		fd := int(events[i].Fd)
		// One-shot: the watch is disarmed by the kernel on delivery,
		// but fd stays in the epoll set, so keep it tracked with an
		// empty mask and let the next arm use EPOLL_CTL_MOD.
		e.masks[fd] = 0
		if events[i].Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			readable = append(readable, fd)
		}
		if events[i].Events&(unix.EPOLLOUT|unix.EPOLLERR) != 0 {
			writable = append(writable, fd)
		}
	}
	return readable, writable, nil
}

func (e *epollOps) close() error {
	return unix.Close(e.epfd)
}
