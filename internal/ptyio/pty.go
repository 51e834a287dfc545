// Package ptyio is the PtyHandle collaborator spec.md §1 treats as
// external: PTY creation and child-process plumbing. Grounded on the
// teacher's session.go, which spawns with creack/pty.
package ptyio

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// Options mirrors spec.md §4.3's spawn params.
type Options struct {
	Argv []string
	Cwd  string
	Env  []string
	Cols uint16
	Rows uint16
}

// Handle is the abstract PtyHandle: open, write, read, resize, close.
type Handle interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	Resize(cols, rows uint16) error
	Close() error
	Pid() int
	// FD is the master fd, exposed so the reactor can issue
	// write/resize-triggered writes from the main thread while the
	// reader worker holds blocking reads on the same fd.
	FD() int
	// Wait blocks until the child exits and returns its exit code.
	Wait() (exitCode int, err error)
}

type handle struct {
	cmd *exec.Cmd
	f   *os.File
}

// Open starts argv[0] under a new PTY sized cols×rows, per spec.md
// §4.6's spawn contract.
func Open(opts Options) (Handle, error) {
	if len(opts.Argv) == 0 {
		return nil, fmt.Errorf("ptyio: argv must not be empty")
	}
	cmd := exec.Command(opts.Argv[0], opts.Argv[1:]...)
	cmd.Dir = opts.Cwd
	cmd.Env = opts.Env

	f, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: opts.Cols, Rows: opts.Rows})
	if err != nil {
		return nil, fmt.Errorf("ptyio: start: %w", err)
	}
	// The reactor issues writes to this fd from the single reactor
	// thread only after epoll/kqueue reports it writable (see
	// internal/reactor/poll.go's handleWritable), which assumes a
	// non-blocking fd end to end, the same as the listen socket in
	// internal/server and the dirty pipe in internal/session.
	if err := unix.SetNonblock(int(f.Fd()), true); err != nil {
		f.Close()
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("ptyio: setnonblock: %w", err)
	}
	return &handle{cmd: cmd, f: f}, nil
}

func (h *handle) Write(p []byte) (int, error) { return h.f.Write(p) }
func (h *handle) Read(p []byte) (int, error)  { return h.f.Read(p) }

func (h *handle) Resize(cols, rows uint16) error {
	return pty.Setsize(h.f, &pty.Winsize{Cols: cols, Rows: rows})
}

func (h *handle) Close() error {
	return h.f.Close()
}

func (h *handle) FD() int { return int(h.f.Fd()) }

func (h *handle) Pid() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

func (h *handle) Wait() (int, error) {
	state, err := h.cmd.Process.Wait()
	if err != nil {
		return -1, err
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal()), nil
	}
	return state.ExitCode(), nil
}
