package session

import (
	"os"

	"golang.org/x/sys/unix"
)

// dirty signals a render is due; exit signals the reader worker has
// observed PTY EOF or a fatal read error and has already terminated.
const (
	signalDirty byte = 1
	signalExit  byte = 2
)

// dirtyPipe is the one-byte signalling channel from a session's reader
// worker to the main-thread reactor. The write end is held exclusively
// by the worker, the read end exclusively by the reactor.
type dirtyPipe struct {
	r, w *os.File
}

func newDirtyPipe() (*dirtyPipe, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	if err := unix.SetNonblock(int(r.Fd()), true); err != nil {
		r.Close()
		w.Close()
		return nil, err
	}
	if err := unix.SetNonblock(int(w.Fd()), true); err != nil {
		r.Close()
		w.Close()
		return nil, err
	}
	return &dirtyPipe{r: r, w: w}, nil
}

func (p *dirtyPipe) readFD() int { return int(p.r.Fd()) }

// signal writes one byte to the pipe. EAGAIN means a signal is already
// pending and is silently ignored, per the reader-worker contract.
func (p *dirtyPipe) signal(b byte) {
	_, err := p.w.Write([]byte{b})
	if err != nil && err != unix.EAGAIN {
		// best-effort; the pipe is tiny and a lost signal only delays
		// a render, it is never silently dropped data.
	}
}

func (p *dirtyPipe) close() {
	p.r.Close()
	p.w.Close()
}
