package script

import (
	"io"
	"log/slog"
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/stretchr/testify/require"
)

type fakeRuntime struct {
	spawned      []SpawnOptions
	sentKeys     []KeyEvent
	written      [][]byte
	framedPtyID  uint64
	quitCalled   bool
	timeoutMS    int
	timeoutFn    func()
	canceledRefs []TimerRef
	infoLogs     []string
}

func (f *fakeRuntime) Spawn(opts SpawnOptions) (uint64, error) {
	f.spawned = append(f.spawned, opts)
	return 1, nil
}
func (f *fakeRuntime) SendKey(id uint64, key KeyEvent) error {
	f.sentKeys = append(f.sentKeys, key)
	return nil
}
func (f *fakeRuntime) Write(id uint64, data []byte) error {
	f.written = append(f.written, data)
	return nil
}
func (f *fakeRuntime) Title(id uint64) string       { return "test-title" }
func (f *fakeRuntime) Scrollback(id uint64) []byte  { return []byte("scroll") }
func (f *fakeRuntime) RequestFrame(id uint64)       { f.framedPtyID = id }
func (f *fakeRuntime) SetTimeout(ms int, cb func()) TimerRef {
	f.timeoutMS, f.timeoutFn = ms, cb
	return TimerRef(42)
}
func (f *fakeRuntime) CancelTimer(ref TimerRef) { f.canceledRefs = append(f.canceledRefs, ref) }
func (f *fakeRuntime) Quit()                    { f.quitCalled = true }
func (f *fakeRuntime) LogInfo(msg string)       { f.infoLogs = append(f.infoLogs, msg) }
func (f *fakeRuntime) LogWarn(string)           {}
func (f *fakeRuntime) LogErr(string)            {}

func newTestHost(t *testing.T, script string) (*LuaHost, *fakeRuntime) {
	t.Helper()
	rt := &fakeRuntime{}
	h := &LuaHost{L: lua.NewState(), rt: rt, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	h.installAPI()
	require.NoError(t, h.L.DoString(script))
	t.Cleanup(h.Close)
	return h, rt
}

func TestLuaSpawnAndMethodsReachRuntime(t *testing.T) {
	h, rt := newTestHost(t, `
		local pty = prise.spawn({argv = {"/bin/echo", "hi"}, cols = 80, rows = 24})
		pty:write("hello")
		pty:send_key({key = "a", ctrl = true})
		request_frame(pty)
	`)
	require.Len(t, rt.spawned, 1)
	require.Equal(t, []string{"/bin/echo", "hi"}, rt.spawned[0].Argv)
	require.EqualValues(t, 80, rt.spawned[0].Cols)
	require.Len(t, rt.written, 1)
	require.Equal(t, []byte("hello"), rt.written[0])
	require.Len(t, rt.sentKeys, 1)
	require.True(t, rt.sentKeys[0].Ctrl)
	require.EqualValues(t, 1, rt.framedPtyID)
	_ = h
}

func TestLuaQuit(t *testing.T) {
	_, rt := newTestHost(t, `quit()`)
	require.True(t, rt.quitCalled)
}

func TestLuaLogInfo(t *testing.T) {
	_, rt := newTestHost(t, `log.info("hello from script")`)
	require.Equal(t, []string{"hello from script"}, rt.infoLogs)
}

func TestDispatchKeyPressCallsHandler(t *testing.T) {
	h, rt := newTestHost(t, `
		seen = nil
		function on_key_press(key)
			seen = key.key
			pty_id = nil
		end
	`)
	h.Dispatch(KeyPress{KeyEvent{Key: "Enter"}})
	got := h.L.GetGlobal("seen")
	require.Equal(t, "Enter", got.String())
	_ = rt
}

func TestDispatchPtyExitedCallsHandler(t *testing.T) {
	h, _ := newTestHost(t, `
		exited_id = nil
		function on_pty_exited(id)
			exited_id = id
		end
	`)
	h.Dispatch(PtyExited{PtyID: 7})
	require.Equal(t, "7", h.L.GetGlobal("exited_id").String())
}

func TestDispatchWithoutHandlerIsNoop(t *testing.T) {
	h, _ := newTestHost(t, `-- no handlers defined`)
	require.NotPanics(t, func() { h.Dispatch(Winsize{Cols: 80, Rows: 24}) })
}
