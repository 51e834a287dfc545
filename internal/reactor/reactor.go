// Package reactor implements the single-threaded async reactor: a
// uniform submit-and-callback interface over OS readiness primitives
// (epoll on Linux, kqueue on BSD/macOS), plus an in-process mock used
// by tests and any platform without a native backend.
//
// Every operation returns a Task synchronously; its callback fires
// exactly once, from Run, with a Completion describing the outcome.
// The reactor itself never spawns goroutines or touches a mutex: it
// is designed to run on exactly one OS thread, per the server's
// concurrency model.
package reactor

import (
	"errors"
	"time"
)

// OpKind identifies which reactor operation a Completion answers.
type OpKind int

const (
	OpSocket OpKind = iota
	OpConnect
	OpAccept
	OpRead
	OpWrite
	OpClose
	OpTimeout
)

func (k OpKind) String() string {
	switch k {
	case OpSocket:
		return "socket"
	case OpConnect:
		return "connect"
	case OpAccept:
		return "accept"
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpClose:
		return "close"
	case OpTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ErrCanceled is the error kind delivered to a Completion for an op
// that was canceled before it completed.
var ErrCanceled = errors.New("reactor: operation canceled")

// ErrUnsupported is returned by backend constructors that have no
// viable implementation on the current platform (see iouring.go).
var ErrUnsupported = errors.New("reactor: backend unsupported on this platform")

// ErrInvalidSockaddr is returned by Connect when sockaddr is not a
// golang.org/x/sys/unix.Sockaddr.
var ErrInvalidSockaddr = errors.New("reactor: sockaddr must be a unix.Sockaddr")

// TaskID identifies a single submitted operation. IDs are unique for
// the lifetime of a Reactor and are not reused.
type TaskID uint64

// Task is returned synchronously by every submit call.
type Task struct {
	ID TaskID
}

// Result carries the outcome of one completed operation. Exactly one
// of the payload fields is meaningful, selected by Kind; Err is set
// on failure (including ErrCanceled) and nil on success.
type Result struct {
	Kind OpKind
	N    int // bytes transferred, for Read/Write
	FD   int // new fd, for Socket/Accept; the connecting socket's own fd for Connect
	Err  error
}

// Completion is delivered to a callback exactly once.
type Completion struct {
	TaskID   TaskID
	UserData any
	Result   Result
}

// Callback receives the single Completion for the op it was
// registered with.
type Callback func(Completion)

// RunMode selects how long Run keeps servicing completions.
type RunMode int

const (
	// RunOnce polls and returns after one batch of completions, even
	// if that batch is empty.
	RunOnce RunMode = iota
	// RunUntilDone loops until there are no pending operations.
	RunUntilDone
	// RunForever loops until Stop is called.
	RunForever
)

// Reactor is the uniform interface every backend implements. All
// methods must be called from the single thread that also calls Run;
// the reactor itself performs no internal locking.
type Reactor interface {
	Socket(domain, typ, proto int, userData any, cb Callback) Task
	Connect(fd int, sockaddr any, userData any, cb Callback) Task
	Accept(fd int, userData any, cb Callback) Task
	Read(fd int, buf []byte, userData any, cb Callback) Task
	Write(fd int, buf []byte, userData any, cb Callback) Task
	Close(fd int, userData any, cb Callback) Task
	Timeout(d time.Duration, userData any, cb Callback) Task

	// Cancel is best-effort: a no-op if id already completed or was
	// reaped, otherwise the op completes with Err = ErrCanceled.
	Cancel(id TaskID)

	// CancelByFD cancels every pending op targeting fd, of any kind
	// except Timeout (timers are exempt, per the reactor contract).
	CancelByFD(fd int)

	// Run services completions according to mode. It returns when the
	// mode's stopping condition is reached, or when Stop is called.
	Run(mode RunMode) error

	// Stop asks a RunForever loop to return after its current batch.
	Stop()

	// Shutdown releases backend resources (epoll/kqueue fd, etc). The
	// reactor must not be used afterward.
	Shutdown() error
}
