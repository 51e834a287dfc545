package session

import (
	"time"

	"github.com/prise-term/prise/internal/reactor"
	"github.com/prise-term/prise/internal/vt"
	"github.com/prise-term/prise/internal/wire"
)

const drainChunk = 4096

// armDirtyRead arms the next read of a session's dirty pipe, per
// spec.md §4.5's "re-arm the dirty-pipe read" step.
func (m *Manager) armDirtyRead(s *PtySession) {
	buf := make([]byte, drainChunk)
	m.r.Read(s.pipe.readFD(), buf, s, func(c reactor.Completion) {
		m.onDirtyReadable(s, buf, c)
	})
}

func (m *Manager) onDirtyReadable(s *PtySession, buf []byte, c reactor.Completion) {
	if c.Result.Err != nil {
		if c.Result.Err == reactor.ErrCanceled {
			return // session already being destroyed
		}
		m.log.Warn("session: dirty pipe read failed", "session", s.ID, "err", c.Result.Err)
		return
	}

	exited := false
	for i := 0; i < c.Result.N; i++ {
		if buf[i] == signalExit {
			exited = true
		}
	}

	if exited {
		s.mu.Lock()
		s.state = StateExited
		s.mu.Unlock()
		exitCode, _ := s.pty.Wait()
		m.Destroy(s.ID, exitCode)
		return
	}

	m.scheduleRender(s)
	m.armDirtyRead(s)
}

// RequestFrame forces an immediate render of session, subject to the
// same clamp as a dirty-pipe-triggered one. Used by the script bridge's
// request_frame(pty_ref), per spec.md §4.7.
func (m *Manager) RequestFrame(sessionID uint64) {
	if s, ok := m.sessions[sessionID]; ok {
		m.scheduleRender(s)
	}
}

// scheduleRender implements spec.md §4.5's clamp: render immediately if
// at least MinFrameInterval has passed since the last render, otherwise
// arm (or leave armed) a single timer for the remaining interval.
func (m *Manager) scheduleRender(s *PtySession) {
	now := time.Now()
	elapsed := now.Sub(s.lastRender)
	if elapsed >= MinFrameInterval {
		m.render(s, now)
		return
	}
	if s.renderTimer != nil {
		return // a timer is already pending; it will pick up this signal too
	}
	remaining := MinFrameInterval - elapsed
	task := m.r.Timeout(remaining, s, func(c reactor.Completion) {
		s.renderTimer = nil
		if c.Result.Err != nil {
			return // canceled by Destroy
		}
		m.render(s, time.Now())
	})
	s.renderTimer = &task.ID
}

// render snapshots the terminal and broadcasts a full-frame redraw to
// every attached client, dropping the frame for clients whose outbound
// buffer already exceeds the back-pressure cap (spec.md §5's drop
// policy, resolved in SPEC_FULL.md as queue-depth-based: a client that
// is behind gets the next frame once it has drained, not this stale
// one).
func (m *Manager) render(s *PtySession, now time.Time) {
	s.lastRender = now
	frame := s.term.Snapshot()
	payload := encodeFrame(frame)

	for cid := range s.clients {
		c, ok := m.clients[cid]
		if !ok {
			continue
		}
		if c.rpc.OutboundLen() > ClientOutboundCap {
			continue
		}
		c.rpc.SendNotification("redraw", []wire.Value{wire.Uint(s.ID), payload})
	}
}

func encodeFrame(f vt.Frame) wire.Value {
	rows := make([]wire.Value, len(f.Cells))
	for r, row := range f.Cells {
		cells := make([]wire.Value, len(row))
		for c, cell := range row {
			cells[c] = wire.Map([]wire.MapEntry{
				{Key: wire.Str("ch"), Val: wire.Str(cell.Ch)},
				{Key: wire.Str("fg"), Val: wire.Uint(uint64(cell.Fg))},
				{Key: wire.Str("bg"), Val: wire.Uint(uint64(cell.Bg))},
				{Key: wire.Str("attrs"), Val: wire.Uint(uint64(cell.Attrs))},
			})
		}
		rows[r] = wire.Arr(cells)
	}
	cursor := wire.Map([]wire.MapEntry{
		{Key: wire.Str("row"), Val: wire.Int(int64(f.Cursor.Row))},
		{Key: wire.Str("col"), Val: wire.Int(int64(f.Cursor.Col))},
		{Key: wire.Str("visible"), Val: wire.Bool(f.Cursor.Visible)},
	})
	return wire.Map([]wire.MapEntry{
		{Key: wire.Str("kind"), Val: wire.Str("full")},
		{Key: wire.Str("cols"), Val: wire.Int(int64(f.Cols))},
		{Key: wire.Str("rows"), Val: wire.Int(int64(f.Rows))},
		{Key: wire.Str("cells"), Val: wire.Arr(rows)},
		{Key: wire.Str("cursor"), Val: cursor},
	})
}
