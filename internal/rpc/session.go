package rpc

import (
	"log/slog"

	"github.com/prise-term/prise/internal/reactor"
	"github.com/prise-term/prise/internal/wire"
)

const readChunk = 64 * 1024

// Handler dispatches decoded requests and notifications for one
// Session. Implementations run entirely on the reactor's thread;
// HandleRequest must return synchronously, per spec.md §4.3's "always
// produce exactly one Response within a bounded time."
type Handler interface {
	HandleRequest(s *Session, id uint32, method string, params []wire.Value)
	HandleNotification(s *Session, method string, params []wire.Value)
}

// Session is one client connection's framing and dispatch state:
// spec.md §3's RpcSession. The reactor is always armed with exactly
// one outstanding Read on fd while the session is open.
type Session struct {
	r       reactor.Reactor
	fd      int
	handler Handler
	log     *slog.Logger
	onClose func(s *Session, err error)

	inbound  []byte
	outbound []byte
	writing  bool

	nextReqID uint32
	pending   map[uint32]func(result, errVal wire.Value)

	// Session applies no outbound cap of its own: it only reports the
	// buffered size via OutboundLen, and the session manager's render
	// path skips redraw notifications for a client whose outbound
	// buffer exceeds session.ClientOutboundCap.
	closed bool
}

func NewSession(r reactor.Reactor, fd int, handler Handler, log *slog.Logger, onClose func(*Session, error)) *Session {
	return &Session{
		r:       r,
		fd:      fd,
		handler: handler,
		log:     log,
		onClose: onClose,
		pending: make(map[uint32]func(result, errVal wire.Value)),
	}
}

func (s *Session) FD() int { return s.fd }

func (s *Session) OutboundLen() int { return len(s.outbound) }

// Start arms the session's first Read.
func (s *Session) Start() {
	s.armRead()
}

func (s *Session) armRead() {
	buf := make([]byte, readChunk)
	s.r.Read(s.fd, buf, s, func(c reactor.Completion) { s.onReadComplete(buf, c) })
}

func (s *Session) onReadComplete(buf []byte, c reactor.Completion) {
	if s.closed {
		return
	}
	if c.Result.Err != nil {
		s.fail(c.Result.Err)
		return
	}
	if c.Result.N == 0 {
		s.fail(nil) // EOF
		return
	}
	s.inbound = append(s.inbound, buf[:c.Result.N]...)
	for {
		v, n, err := wire.DecodeFrame(s.inbound)
		if err == wire.ErrNeedMore {
			break
		}
		if err != nil {
			s.failProtocol(err)
			return
		}
		s.inbound = s.inbound[n:]
		if err := s.dispatch(v); err != nil {
			s.failProtocol(err)
			return
		}
	}
	s.armRead()
}

func (s *Session) dispatch(v wire.Value) error {
	msg, err := Decode(v)
	if err != nil {
		return err
	}
	switch m := msg.(type) {
	case Request:
		s.handler.HandleRequest(s, m.ID, m.Method, m.Params)
	case Notification:
		s.handler.HandleNotification(s, m.Method, m.Params)
	case Response:
		cb, ok := s.pending[m.ID]
		if !ok {
			s.log.Warn("rpc: response for unknown request id, dropping", "id", m.ID)
			return nil
		}
		delete(s.pending, m.ID)
		cb(m.Result, m.Error)
	}
	return nil
}

// SendResponse replies to a Request. Exactly one of errVal/result
// should be non-nil; pass wire.Nil() for the other.
func (s *Session) SendResponse(id uint32, errVal, result wire.Value) {
	s.enqueue(EncodeResponse(id, errVal, result))
}

// SendNotification queues a server-to-client notification.
func (s *Session) SendNotification(method string, params []wire.Value) {
	s.enqueue(EncodeNotification(method, params))
}

// SendRequest issues a server-initiated request (rare; spec.md §4.3
// allows it for completeness even though the server typically only
// receives requests). cb fires when the matching Response arrives.
func (s *Session) SendRequest(method string, params []wire.Value, cb func(result, errVal wire.Value)) uint32 {
	id := s.nextReqID
	s.nextReqID++
	for s.pending[id] != nil { // wrap-around collision guard, practically never hit
		id = s.nextReqID
		s.nextReqID++
	}
	s.pending[id] = cb
	s.enqueue(EncodeRequest(id, method, params))
	return id
}

func (s *Session) enqueue(frame []byte) {
	if s.closed {
		return
	}
	s.outbound = append(s.outbound, frame...)
	if !s.writing {
		s.flush()
	}
}

func (s *Session) flush() {
	if len(s.outbound) == 0 {
		s.writing = false
		return
	}
	s.writing = true
	buf := s.outbound
	s.r.Write(s.fd, buf, s, func(c reactor.Completion) { s.onWriteComplete(len(buf), c) })
}

func (s *Session) onWriteComplete(sent int, c reactor.Completion) {
	if s.closed {
		return
	}
	if c.Result.Err != nil {
		s.fail(c.Result.Err)
		return
	}
	s.outbound = s.outbound[c.Result.N:]
	s.flush()
}

// Close tears down the session: cancels pending reactor ops on fd and
// invokes onClose exactly once.
func (s *Session) Close() {
	s.fail(nil)
}

func (s *Session) fail(err error) {
	if s.closed {
		return
	}
	s.closed = true
	s.r.CancelByFD(s.fd)
	if s.onClose != nil {
		s.onClose(s, err)
	}
}

func (s *Session) failProtocol(err error) {
	s.log.Warn("rpc: closing client on protocol violation", "fd", s.fd, "err", err)
	s.fail(&ErrProtocol{Reason: err.Error()})
}
