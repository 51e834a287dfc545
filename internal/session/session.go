// Package session implements the middle of the system: the live set of
// PTY sessions and attached clients, the per-session reader worker, and
// the frame scheduler that turns dirty-pipe signals into rate-limited
// redraw notifications.
package session

import (
	"sync"
	"time"

	"github.com/prise-term/prise/internal/ptyio"
	"github.com/prise-term/prise/internal/reactor"
	"github.com/prise-term/prise/internal/rpc"
	"github.com/prise-term/prise/internal/vt"
)

// MinFrameInterval is the frame clamp: no session renders more often
// than this (125 Hz ceiling by default). Overridable at startup from
// config.Config.MinFrameIntervalMS before any session is created.
var MinFrameInterval = 8 * time.Millisecond

// State is a PtySession's lifecycle stage.
type State int

const (
	StateRunning State = iota
	StateExited
)

// Options mirrors the RPC spawn method's params.
type Options struct {
	Argv []string
	Cwd  string
	Env  []string
	Cols uint16
	Rows uint16
}

// PtySession is one PTY the server owns: spec.md §3's PtySession.
type PtySession struct {
	ID    uint64
	Title string

	pty   ptyio.Handle
	term  vt.Terminal
	pipe  *dirtyPipe
	back  *Scrollback
	state State

	cols, rows uint16

	clients map[uint64]struct{}

	lastRender  time.Time
	renderTimer *reactor.TaskID

	mu sync.Mutex // guards cols/rows/state; snapshotInfo reads them and the title under it
}

func (s *PtySession) snapshotInfo() (title string, cols, rows uint16, running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title(), s.cols, s.rows, s.state == StateRunning
}

func (s *PtySession) title() string {
	if s.term != nil {
		if t := s.term.Title(); t != "" {
			return t
		}
	}
	return s.Title
}

// Client is one accepted connection: spec.md §3's Client.
type Client struct {
	ID       uint64
	rpc      *rpc.Session
	attached map[uint64]struct{}
}

func newClient(id uint64, s *rpc.Session) *Client {
	return &Client{ID: id, rpc: s, attached: make(map[uint64]struct{})}
}
