package session

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prise-term/prise/internal/reactor"
	"github.com/prise-term/prise/internal/vt"
)

// fakeHandle is a no-op ptyio.Handle for driving the scheduler without
// spawning a real child process.
type fakeHandle struct{}

func (fakeHandle) Write(p []byte) (int, error)    { return len(p), nil }
func (fakeHandle) Read(p []byte) (int, error)     { return 0, io.EOF }
func (fakeHandle) Resize(cols, rows uint16) error { return nil }
func (fakeHandle) Close() error                   { return nil }
func (fakeHandle) Pid() int                       { return 1 }
func (fakeHandle) FD() int                         { return -1 }
func (fakeHandle) Wait() (int, error)             { return 0, nil }

func newTestSession(t *testing.T) (*Manager, *PtySession) {
	t.Helper()
	pipe, err := newDirtyPipe()
	require.NoError(t, err)
	t.Cleanup(pipe.close)

	s := &PtySession{
		ID:      1,
		pty:     fakeHandle{},
		term:    vt.New(80, 24),
		pipe:    pipe,
		back:    NewScrollback(1024),
		cols:    80,
		rows:    24,
		clients: make(map[uint64]struct{}),
		state:   StateRunning,
	}
	m := NewManager(reactor.NewMock(), slog.New(slog.NewTextHandler(io.Discard, nil)), 1024)
	m.sessions[s.ID] = s
	return m, s
}

func TestScheduleRenderFirstSignalRendersImmediately(t *testing.T) {
	m, s := newTestSession(t)
	s.lastRender = time.Time{}

	m.scheduleRender(s)
	require.False(t, s.lastRender.IsZero())
}

func TestScheduleRenderClampsBurst(t *testing.T) {
	m, s := newTestSession(t)
	mock := m.r.(*reactor.Mock)

	m.scheduleRender(s) // renders immediately, lastRender = now
	first := s.lastRender
	require.False(t, first.IsZero())

	// A second signal arriving well within MinFrameInterval must not
	// render again yet; it schedules exactly one timer.
	m.scheduleRender(s)
	require.Equal(t, first, s.lastRender)
	require.NotNil(t, s.renderTimer)

	// A third signal while the timer is still pending must not queue a
	// second timer.
	m.scheduleRender(s)
	require.NotNil(t, s.renderTimer)

	mock.AdvanceTime(MinFrameInterval)
	require.NoError(t, mock.Run(reactor.RunUntilDone))
	require.True(t, s.lastRender.After(first))
	require.Nil(t, s.renderTimer)
}

func TestDestroyCancelsPendingRenderTimer(t *testing.T) {
	m, s := newTestSession(t)
	mock := m.r.(*reactor.Mock)

	s.lastRender = time.Now()
	m.scheduleRender(s) // too soon after lastRender: schedules a timer
	require.NotNil(t, s.renderTimer)

	m.Destroy(s.ID, 0)
	require.NoError(t, mock.Run(reactor.RunUntilDone))
	// the timer callback runs but must observe cancellation and must
	// not call render — verified indirectly: no pending op remains and
	// no panic occurs touching a torn-down session.
	require.NotContains(t, m.sessions, s.ID)
}

func TestOnDirtyReadableExitSignalDestroysSession(t *testing.T) {
	m, s := newTestSession(t)

	buf := []byte{signalExit}
	m.onDirtyReadable(s, buf, reactor.Completion{Result: reactor.Result{N: 1}})
	require.NotContains(t, m.sessions, s.ID)
}

func TestOnDirtyReadableDirtySignalSchedulesRender(t *testing.T) {
	m, s := newTestSession(t)
	s.lastRender = time.Time{}

	buf := []byte{signalDirty}
	m.onDirtyReadable(s, buf, reactor.Completion{Result: reactor.Result{N: 1}})
	require.False(t, s.lastRender.IsZero())
}
