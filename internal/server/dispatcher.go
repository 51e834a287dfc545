// Package server wires the RPC and session layers together: a
// Dispatcher implements rpc.Handler against a live session.Manager,
// and also implements script.Runtime so a script.Host can drive the
// same Manager. Grounded on the teacher's daemon.go handleClient
// switch, adapted from a blocking per-connection goroutine to the
// reactor-driven, single-threaded dispatch spec.md §4.3 requires.
package server

import (
	"fmt"
	"log/slog"

	"github.com/prise-term/prise/internal/reactor"
	"github.com/prise-term/prise/internal/rpc"
	"github.com/prise-term/prise/internal/script"
	"github.com/prise-term/prise/internal/session"
	"github.com/prise-term/prise/internal/wire"
)

// Dispatcher implements rpc.Handler for every connected client and
// script.Runtime for the script bridge, both against one
// session.Manager.
type Dispatcher struct {
	mgr  *session.Manager
	r    reactor.Reactor
	host script.Host
	log  *slog.Logger

	clientOf map[*rpc.Session]uint64
	quit     func()

	timers *timerTable
}

func NewDispatcher(mgr *session.Manager, r reactor.Reactor, log *slog.Logger, quit func()) *Dispatcher {
	return &Dispatcher{
		mgr:      mgr,
		r:        r,
		log:      log,
		clientOf: make(map[*rpc.Session]uint64),
		quit:     quit,
		timers:   newTimerTable(),
	}
}

// SetHost wires the script.Host driven by this dispatcher's events;
// called once at startup after the host is constructed with this
// Dispatcher as its Runtime (host.go's two-way dependency is resolved
// by constructing the Dispatcher first with a nil host and patching it
// in, since the Host needs a Runtime reference at construction).
func (d *Dispatcher) SetHost(h script.Host) { d.host = h }

// OnAccept adopts a newly-accepted rpc.Session as a session.Client.
func (d *Dispatcher) OnAccept(rs *rpc.Session) {
	id := d.mgr.RegisterClient(rs)
	d.clientOf[rs] = id
}

// OnClose tears a client down on socket close or fatal protocol error.
func (d *Dispatcher) OnClose(rs *rpc.Session, err error) {
	id, ok := d.clientOf[rs]
	if !ok {
		return
	}
	delete(d.clientOf, rs)
	d.mgr.RemoveClient(id)
}

func (d *Dispatcher) HandleRequest(s *rpc.Session, id uint32, method string, params []wire.Value) {
	result, errVal := d.call(s, method, params)
	s.SendResponse(id, errVal, result)
}

// HandleNotification dispatches fire-and-forget calls identically to
// requests but discards any result, per spec.md §6's key-passthrough
// example sending "key" as a notification.
func (d *Dispatcher) HandleNotification(s *rpc.Session, method string, params []wire.Value) {
	d.call(s, method, params)
}

func (d *Dispatcher) call(s *rpc.Session, method string, params []wire.Value) (result, errVal wire.Value) {
	clientID := d.clientOf[s]
	switch method {
	case "attach":
		return d.handleAttach(clientID, params)
	case "detach":
		return d.handleDetach(clientID, params)
	case "spawn":
		return d.handleSpawn(params)
	case "write":
		return d.handleWrite(params)
	case "key":
		return d.handleKey(params)
	case "resize":
		return d.handleResize(params)
	case "list_sessions":
		return d.handleListSessions()
	case "quit":
		// Defer the actual shutdown past this call: s.SendResponse
		// (called by HandleRequest right after call() returns) must
		// enqueue and flush the Response before the process exits, per
		// spec.md §4.3's "always produce exactly one Response" contract.
		// A zero-delay Timeout runs on a later reactor iteration, after
		// the current synchronous dispatch has returned control to
		// HandleRequest.
		d.r.Timeout(0, nil, func(reactor.Completion) { d.quit() })
		return wire.Nil(), wire.Nil()
	default:
		return wire.Nil(), methodError("unknown method %q", method)
	}
}

func methodError(format string, args ...any) wire.Value {
	return wire.Str(fmt.Sprintf(format, args...))
}
