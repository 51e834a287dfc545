package server

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prise-term/prise/internal/reactor"
	"github.com/prise-term/prise/internal/rpc"
	"github.com/prise-term/prise/internal/script"
	"github.com/prise-term/prise/internal/session"
	"github.com/prise-term/prise/internal/wire"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *rpc.Session, *reactor.Mock) {
	t.Helper()
	mock := reactor.NewMock()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr := session.NewManager(mock, log, 1024)

	quit := false
	d := NewDispatcher(mgr, mock, log, func() { quit = true })
	_ = quit
	d.SetHost(script.NoopHost{})

	rs := rpc.NewSession(mock, 99, d, log, nil)
	d.OnAccept(rs)
	return d, rs, mock
}

func TestHandleSpawnInvalidParamsReturnsMethodError(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	_, errVal := d.call(nil, "spawn", []wire.Value{wire.Nil()})
	require.False(t, errVal.IsNil())
}

func TestHandleListSessionsEmpty(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	result, errVal := d.call(nil, "list_sessions", nil)
	require.True(t, errVal.IsNil())
	require.Equal(t, wire.KindArray, result.Kind())
	require.Empty(t, result.Arr())
}

func TestHandleAttachUnknownSessionIsMethodError(t *testing.T) {
	d, rs, _ := newTestDispatcher(t)
	_, errVal := d.call(rs, "attach", []wire.Value{wire.Uint(42)})
	require.False(t, errVal.IsNil())
}

func TestHandleWriteUnknownSessionIsMethodError(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	_, errVal := d.call(nil, "write", []wire.Value{wire.Uint(1), wire.Bin([]byte("hi"))})
	require.False(t, errVal.IsNil())
}

func TestHandleUnknownMethod(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	_, errVal := d.call(nil, "bogus", nil)
	require.False(t, errVal.IsNil())
}

func TestHandleQuitInvokesCallback(t *testing.T) {
	mock := reactor.NewMock()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr := session.NewManager(mock, log, 1024)

	called := false
	d := NewDispatcher(mgr, mock, log, func() { called = true })
	d.SetHost(script.NoopHost{})

	_, errVal := d.call(nil, "quit", nil)
	require.True(t, errVal.IsNil())
	require.NoError(t, mock.Run(reactor.RunUntilDone))
	require.True(t, called)
}

func TestHandleRequestQuitSendsResponseBeforeExiting(t *testing.T) {
	mock := reactor.NewMock()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr := session.NewManager(mock, log, 1024)

	called := false
	d := NewDispatcher(mgr, mock, log, func() { called = true })
	d.SetHost(script.NoopHost{})

	rs := rpc.NewSession(mock, 99, d, log, nil)
	d.OnAccept(rs)

	d.HandleRequest(rs, 1, "quit", nil)

	require.Greater(t, rs.OutboundLen(), 0, "Response must be enqueued before quit runs")
	require.False(t, called, "quit must not fire synchronously inside the request handler")

	require.NoError(t, mock.Run(reactor.RunUntilDone))
	require.True(t, called, "quit must eventually fire once the reactor services the deferred timeout")
}

func TestOnCloseRemovesClient(t *testing.T) {
	d, rs, _ := newTestDispatcher(t)
	require.Len(t, d.clientOf, 1)
	d.OnClose(rs, nil)
	require.Empty(t, d.clientOf)
}
