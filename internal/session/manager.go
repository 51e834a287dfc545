package session

import (
	"fmt"
	"log/slog"

	"github.com/prise-term/prise/internal/ptyio"
	"github.com/prise-term/prise/internal/reactor"
	"github.com/prise-term/prise/internal/rpc"
	"github.com/prise-term/prise/internal/vt"
	"github.com/prise-term/prise/internal/wire"
)

// ClientOutboundCap is the back-pressure threshold from spec.md §5: once
// a client's outbound buffer exceeds this, stale redraw notifications
// for its attached sessions are dropped rather than queued. Overridable
// at startup from config.Config.ClientOutboundCapBytes.
var ClientOutboundCap = 16 << 20 // 16 MiB

// Info is the listable summary of one session, spec.md §4.3's
// list_sessions result element.
type Info struct {
	ID    uint64
	Title string
	Cols  uint16
	Rows  uint16
}

// Manager owns every live PtySession and Client, per spec.md §4.6. All
// of its methods run on the single main thread that also drives the
// reactor; it performs no internal locking of its own maps.
type Manager struct {
	r   reactor.Reactor
	log *slog.Logger

	sessions map[uint64]*PtySession
	clients  map[uint64]*Client

	nextSessionID uint64
	nextClientID  uint64

	scrollbackBytes int
}

func NewManager(r reactor.Reactor, log *slog.Logger, scrollbackBytes int) *Manager {
	return &Manager{
		r:               r,
		log:             log,
		sessions:        make(map[uint64]*PtySession),
		clients:         make(map[uint64]*Client),
		scrollbackBytes: scrollbackBytes,
	}
}

// RegisterClient adopts an accepted rpc.Session as a Client and returns
// its id.
func (m *Manager) RegisterClient(rs *rpc.Session) uint64 {
	m.nextClientID++
	id := m.nextClientID
	m.clients[id] = newClient(id, rs)
	return id
}

// RemoveClient tears down a client: detaches it from every session and
// drops it from the client table. Called on socket close or fatal RPC
// error (spec.md §3's Client lifecycle).
func (m *Manager) RemoveClient(clientID uint64) {
	c, ok := m.clients[clientID]
	if !ok {
		return
	}
	for sid := range c.attached {
		if s, ok := m.sessions[sid]; ok {
			delete(s.clients, clientID)
		}
	}
	delete(m.clients, clientID)
}

// Spawn creates a new PtySession: spec.md §4.6's spawn. The reader
// worker starts immediately; its first output triggers the first
// dirty-pipe signal.
func (m *Manager) Spawn(opts Options) (uint64, error) {
	pty, err := ptyio.Open(ptyio.Options{
		Argv: opts.Argv,
		Cwd:  opts.Cwd,
		Env:  opts.Env,
		Cols: opts.Cols,
		Rows: opts.Rows,
	})
	if err != nil {
		return 0, fmt.Errorf("session: spawn: %w", err)
	}
	pipe, err := newDirtyPipe()
	if err != nil {
		pty.Close()
		return 0, fmt.Errorf("session: spawn: dirty pipe: %w", err)
	}

	m.nextSessionID++
	id := m.nextSessionID

	s := &PtySession{
		ID:      id,
		pty:     pty,
		term:    vt.New(int(opts.Cols), int(opts.Rows)),
		pipe:    pipe,
		back:    NewScrollback(m.scrollbackBytes),
		cols:    opts.Cols,
		rows:    opts.Rows,
		clients: make(map[uint64]struct{}),
	}
	s.state = StateRunning
	m.sessions[id] = s

	go s.runReader()
	m.armDirtyRead(s)

	return id, nil
}

// Destroy tears a session down: spec.md §4.6's destroy. Every attached
// client is sent pty_exited, the render timer is cancelled, every
// pending reactor op on the dirty pipe's fd is cancelled, and the PTY
// and pipe fds are closed. The reader worker is not joined synchronously
// here — it has already exited by the time a StateExited session
// reaches Destroy (see scheduler.go's handling of signalExit) — but
// Destroy is also safe to call on a still-RUNNING session (e.g. an
// explicit quit), in which case the child is signalled and the worker
// will observe EOF/error on its own and exit without a further signal
// reaching a now-closed pipe.
func (m *Manager) Destroy(id uint64, exitCode int) {
	s, ok := m.sessions[id]
	if !ok {
		return
	}
	delete(m.sessions, id)

	for cid := range s.clients {
		if c, ok := m.clients[cid]; ok {
			delete(c.attached, id)
			c.rpc.SendNotification("pty_exited", []wire.Value{
				wire.Uint(id), wire.Int(int64(exitCode)),
			})
		}
	}

	if s.renderTimer != nil {
		m.r.Cancel(*s.renderTimer)
		s.renderTimer = nil
	}
	m.r.CancelByFD(s.pipe.readFD())
	s.pipe.close()
	s.pty.Close()
}

// Attach subscribes a client to a session's redraw notifications and
// returns the session's current scrollback for replay, per SPEC_FULL's
// supplement to spec.md §4.3's attach.
func (m *Manager) Attach(clientID, sessionID uint64) ([]byte, error) {
	c, ok := m.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("session: unknown client %d", clientID)
	}
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session: unknown session %d", sessionID)
	}
	c.attached[sessionID] = struct{}{}
	s.clients[clientID] = struct{}{}
	return s.back.Contents(), nil
}

func (m *Manager) Detach(clientID, sessionID uint64) {
	if c, ok := m.clients[clientID]; ok {
		delete(c.attached, sessionID)
	}
	if s, ok := m.sessions[sessionID]; ok {
		delete(s.clients, clientID)
	}
}

func (m *Manager) Write(sessionID uint64, data []byte) error {
	s, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session: unknown session %d", sessionID)
	}
	return m.writeToPTY(s, data)
}

func (m *Manager) writeToPTY(s *PtySession, data []byte) error {
	m.r.Write(s.pty.FD(), data, s, func(c reactor.Completion) {
		if c.Result.Err != nil {
			m.log.Warn("session: pty write failed", "session", s.ID, "err", c.Result.Err)
		}
	})
	return nil
}

// SendKey encodes a structured key event and writes it to the
// session's PTY, per spec.md §4.3's key RPC method.
func (m *Manager) SendKey(sessionID uint64, key KeyEvent) error {
	s, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session: unknown session %d", sessionID)
	}
	if b := EncodeKey(key); len(b) > 0 {
		return m.writeToPTY(s, b)
	}
	return nil
}

func (m *Manager) Resize(sessionID uint64, cols, rows uint16) error {
	s, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session: unknown session %d", sessionID)
	}
	s.mu.Lock()
	s.cols, s.rows = cols, rows
	s.mu.Unlock()
	s.term.Resize(int(cols), int(rows))
	return s.pty.Resize(cols, rows)
}

// Title returns a session's current title, or "" if the id is unknown.
func (m *Manager) Title(sessionID uint64) string {
	s, ok := m.sessions[sessionID]
	if !ok {
		return ""
	}
	title, _, _, _ := s.snapshotInfo()
	return title
}

// Scrollback returns a session's current scrollback contents, or nil
// if the id is unknown.
func (m *Manager) Scrollback(sessionID uint64) []byte {
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	return s.back.Contents()
}

func (m *Manager) ListSessions() []Info {
	out := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		title, cols, rows, _ := s.snapshotInfo()
		out = append(out, Info{ID: s.ID, Title: title, Cols: cols, Rows: rows})
	}
	return out
}

// Broadcast queues a notification on every client attached to session,
// subject to the back-pressure drop policy (see scheduler.go).
func (m *Manager) Broadcast(sessionID uint64, method string, params []wire.Value) {
	s, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	for cid := range s.clients {
		c, ok := m.clients[cid]
		if !ok {
			continue
		}
		c.rpc.SendNotification(method, params)
	}
}
