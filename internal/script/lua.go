package script

import (
	"fmt"
	"log/slog"

	lua "github.com/yuin/gopher-lua"
)

// LuaHost is the Host backed by a gopher-lua interpreter. It embeds a
// single *lua.LState per server instance: scripts only ever run on the
// main thread (spec.md §4.7), so no executor/queue indirection is
// needed to serialize access to the state, unlike a host embedded in a
// multi-goroutine program.
type LuaHost struct {
	L   *lua.LState
	rt  Runtime
	log *slog.Logger
}

// NewLuaHost loads scriptPath and installs the host API as Lua
// globals before running the file to completion once (top-level script
// code typically just defines the on_* handler functions).
func NewLuaHost(scriptPath string, rt Runtime, log *slog.Logger) (*LuaHost, error) {
	L := lua.NewState()
	h := &LuaHost{L: L, rt: rt, log: log}
	h.installAPI()
	if err := L.DoFile(scriptPath); err != nil {
		L.Close()
		return nil, fmt.Errorf("script: load %s: %w", scriptPath, err)
	}
	return h, nil
}

func (h *LuaHost) Close() {
	h.L.Close()
}

// installAPI registers the small host API of spec.md §4.7 as Lua
// globals: prise.spawn, request_frame, set_timeout, quit, and log.
func (h *LuaHost) installAPI() {
	priseMod := h.L.NewTable()
	h.L.SetFuncs(priseMod, map[string]lua.LGFunction{
		"spawn": h.luaSpawn,
	})
	h.L.SetGlobal("prise", priseMod)

	h.L.SetGlobal("request_frame", h.L.NewFunction(h.luaRequestFrame))
	h.L.SetGlobal("set_timeout", h.L.NewFunction(h.luaSetTimeout))
	h.L.SetGlobal("quit", h.L.NewFunction(func(L *lua.LState) int {
		h.rt.Quit()
		return 0
	}))

	logMod := h.L.NewTable()
	h.L.SetFuncs(logMod, map[string]lua.LGFunction{
		"info": func(L *lua.LState) int { h.rt.LogInfo(L.CheckString(1)); return 0 },
		"warn": func(L *lua.LState) int { h.rt.LogWarn(L.CheckString(1)); return 0 },
		"err":  func(L *lua.LState) int { h.rt.LogErr(L.CheckString(1)); return 0 },
	})
	h.L.SetGlobal("log", logMod)
}

func (h *LuaHost) luaSpawn(L *lua.LState) int {
	opts := L.CheckTable(1)
	var so SpawnOptions
	opts.ForEach(func(k, v lua.LValue) {
		switch k.String() {
		case "argv":
			if t, ok := v.(*lua.LTable); ok {
				so.Argv = stringsFromTable(t)
			}
		case "cwd":
			so.Cwd = v.String()
		case "env":
			if t, ok := v.(*lua.LTable); ok {
				so.Env = stringsFromTable(t)
			}
		case "cols":
			if n, ok := v.(lua.LNumber); ok {
				so.Cols = uint16(n)
			}
		case "rows":
			if n, ok := v.(lua.LNumber); ok {
				so.Rows = uint16(n)
			}
		}
	})

	id, err := h.rt.Spawn(so)
	if err != nil {
		L.RaiseError("prise.spawn: %s", err.Error())
		return 0
	}
	L.Push(h.newPtyRef(id))
	return 1
}

func (h *LuaHost) luaRequestFrame(L *lua.LState) int {
	ref := L.CheckTable(1)
	id := idFromPtyRef(ref)
	h.rt.RequestFrame(id)
	return 0
}

func (h *LuaHost) luaSetTimeout(L *lua.LState) int {
	ms := L.CheckInt(1)
	fn := L.CheckFunction(2)
	ref := h.rt.SetTimeout(ms, func() {
		if err := h.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}); err != nil {
			h.log.Warn("script: timer callback error", "err", err)
		}
	})
	L.Push(h.newTimerRef(ref))
	return 1
}

// newPtyRef builds the opaque table a script holds for a PTY: an id
// field plus method-shaped closures that resolve back to ptyID on
// every call, per spec.md §9's handle design.
func (h *LuaHost) newPtyRef(id uint64) *lua.LTable {
	t := h.L.NewTable()
	t.RawSetString("__ptyid", lua.LNumber(id))
	t.RawSetString("id", h.L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(id))
		return 1
	}))
	t.RawSetString("send_key", h.L.NewFunction(func(L *lua.LState) int {
		key := keyEventFromTable(L.CheckTable(2))
		if err := h.rt.SendKey(id, key); err != nil {
			h.rt.LogWarn("script: send_key: " + err.Error())
		}
		return 0
	}))
	t.RawSetString("write", h.L.NewFunction(func(L *lua.LState) int {
		if err := h.rt.Write(id, []byte(L.CheckString(2))); err != nil {
			h.rt.LogWarn("script: write: " + err.Error())
		}
		return 0
	}))
	t.RawSetString("title", h.L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(h.rt.Title(id)))
		return 1
	}))
	t.RawSetString("scrollback", h.L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(h.rt.Scrollback(id)))
		return 1
	}))
	return t
}

func idFromPtyRef(t *lua.LTable) uint64 {
	if n, ok := t.RawGetString("__ptyid").(lua.LNumber); ok {
		return uint64(n)
	}
	return 0
}

func (h *LuaHost) newTimerRef(ref TimerRef) *lua.LTable {
	t := h.L.NewTable()
	t.RawSetString("cancel", h.L.NewFunction(func(L *lua.LState) int {
		h.rt.CancelTimer(ref)
		return 0
	}))
	return t
}

func keyEventFromTable(t *lua.LTable) KeyEvent {
	var ke KeyEvent
	if s, ok := t.RawGetString("key").(lua.LString); ok {
		ke.Key = string(s)
	}
	ke.Ctrl = boolField(t, "ctrl")
	ke.Shift = boolField(t, "shift")
	ke.Alt = boolField(t, "alt")
	ke.Meta = boolField(t, "meta")
	return ke
}

func boolField(t *lua.LTable, key string) bool {
	b, ok := t.RawGetString(key).(lua.LBool)
	return ok && bool(b)
}

func stringsFromTable(t *lua.LTable) []string {
	n := t.Len()
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, t.RawGetInt(i).String())
	}
	return out
}

// Dispatch invokes the script's on_* handler for event, if defined.
// Scripts that don't define a handler simply never see that event.
func (h *LuaHost) Dispatch(event Event) {
	switch e := event.(type) {
	case PtyAttach:
		h.call("on_pty_attach", h.newPtyRef(e.PtyID))
	case PtyExited:
		h.call("on_pty_exited", lua.LNumber(e.PtyID))
	case KeyPress:
		tbl := h.L.NewTable()
		tbl.RawSetString("key", lua.LString(e.Key))
		tbl.RawSetString("ctrl", lua.LBool(e.Ctrl))
		tbl.RawSetString("shift", lua.LBool(e.Shift))
		tbl.RawSetString("alt", lua.LBool(e.Alt))
		tbl.RawSetString("meta", lua.LBool(e.Meta))
		h.call("on_key_press", tbl)
	case Winsize:
		h.call("on_winsize", lua.LNumber(e.Cols), lua.LNumber(e.Rows))
	}
}

func (h *LuaHost) call(name string, args ...lua.LValue) {
	fn, ok := h.L.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return
	}
	if err := h.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...); err != nil {
		h.log.Warn("script: handler error", "handler", name, "err", err)
	}
}
