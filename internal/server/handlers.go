package server

import (
	"github.com/prise-term/prise/internal/script"
	"github.com/prise-term/prise/internal/session"
	"github.com/prise-term/prise/internal/wire"
)

func (d *Dispatcher) handleAttach(clientID uint64, params []wire.Value) (wire.Value, wire.Value) {
	if len(params) < 1 {
		return wire.Nil(), methodError("attach: expected 1 param")
	}
	sessionID, ok := params[0].Uint64()
	if !ok {
		return wire.Nil(), methodError("attach: session_id must be an unsigned integer")
	}
	scrollback, err := d.mgr.Attach(clientID, sessionID)
	if err != nil {
		return wire.Nil(), methodError("attach: %s", err)
	}
	d.host.Dispatch(script.PtyAttach{PtyID: sessionID})
	return wire.Map([]wire.MapEntry{
		{Key: wire.Str("scrollback"), Val: wire.Bin(scrollback)},
	}), wire.Nil()
}

func (d *Dispatcher) handleDetach(clientID uint64, params []wire.Value) (wire.Value, wire.Value) {
	if len(params) < 1 {
		return wire.Nil(), methodError("detach: expected 1 param")
	}
	sessionID, ok := params[0].Uint64()
	if !ok {
		return wire.Nil(), methodError("detach: session_id must be an unsigned integer")
	}
	d.mgr.Detach(clientID, sessionID)
	return wire.Nil(), wire.Nil()
}

type spawnParams struct {
	Argv []string `msgpack:"argv"`
	Cwd  string   `msgpack:"cwd,optional"`
	Env  []string `msgpack:"env,optional"`
	Cols uint16   `msgpack:"cols"`
	Rows uint16   `msgpack:"rows"`
}

func (d *Dispatcher) handleSpawn(params []wire.Value) (wire.Value, wire.Value) {
	var p spawnParams
	if err := decodeParam(params, 0, &p); err != nil {
		return wire.Nil(), methodError("spawn: %s", err)
	}
	id, err := d.mgr.Spawn(session.Options{
		Argv: p.Argv, Cwd: p.Cwd, Env: p.Env, Cols: p.Cols, Rows: p.Rows,
	})
	if err != nil {
		return wire.Nil(), methodError("spawn: %s", err)
	}
	return wire.Uint(id), wire.Nil()
}

func (d *Dispatcher) handleWrite(params []wire.Value) (wire.Value, wire.Value) {
	if len(params) < 2 {
		return wire.Nil(), methodError("write: expected 2 params")
	}
	id, ok := params[0].Uint64()
	if !ok {
		return wire.Nil(), methodError("write: session_id must be an unsigned integer")
	}
	data := params[1].Bin()
	if params[1].Kind() == wire.KindString {
		data = []byte(params[1].Str())
	}
	if err := d.mgr.Write(id, data); err != nil {
		return wire.Nil(), methodError("write: %s", err)
	}
	return wire.Nil(), wire.Nil()
}

type keyEventParam struct {
	Key   string `msgpack:"key"`
	Ctrl  bool   `msgpack:"ctrlKey,optional"`
	Shift bool   `msgpack:"shiftKey,optional"`
	Alt   bool   `msgpack:"altKey,optional"`
	Meta  bool   `msgpack:"metaKey,optional"`
}

func (d *Dispatcher) handleKey(params []wire.Value) (wire.Value, wire.Value) {
	if len(params) < 2 {
		return wire.Nil(), methodError("key: expected 2 params")
	}
	id, ok := params[0].Uint64()
	if !ok {
		return wire.Nil(), methodError("key: session_id must be an unsigned integer")
	}
	var ke keyEventParam
	if err := wire.DecodeStruct(params[1], &ke); err != nil {
		return wire.Nil(), methodError("key: %s", err)
	}
	err := d.mgr.SendKey(id, session.KeyEvent{
		Key: ke.Key, Ctrl: ke.Ctrl, Shift: ke.Shift, Alt: ke.Alt, Meta: ke.Meta,
	})
	if err != nil {
		return wire.Nil(), methodError("key: %s", err)
	}
	return wire.Nil(), wire.Nil()
}

func (d *Dispatcher) handleResize(params []wire.Value) (wire.Value, wire.Value) {
	if len(params) < 3 {
		return wire.Nil(), methodError("resize: expected 3 params")
	}
	id, ok := params[0].Uint64()
	if !ok {
		return wire.Nil(), methodError("resize: session_id must be an unsigned integer")
	}
	cols, ok := params[1].Uint64()
	if !ok {
		return wire.Nil(), methodError("resize: cols must be an unsigned integer")
	}
	rows, ok := params[2].Uint64()
	if !ok {
		return wire.Nil(), methodError("resize: rows must be an unsigned integer")
	}
	if err := d.mgr.Resize(id, uint16(cols), uint16(rows)); err != nil {
		return wire.Nil(), methodError("resize: %s", err)
	}
	return wire.Nil(), wire.Nil()
}

func (d *Dispatcher) handleListSessions() (wire.Value, wire.Value) {
	infos := d.mgr.ListSessions()
	out := make([]wire.Value, len(infos))
	for i, info := range infos {
		out[i] = wire.Map([]wire.MapEntry{
			{Key: wire.Str("id"), Val: wire.Uint(info.ID)},
			{Key: wire.Str("title"), Val: wire.Str(info.Title)},
			{Key: wire.Str("cols"), Val: wire.Uint(uint64(info.Cols))},
			{Key: wire.Str("rows"), Val: wire.Uint(uint64(info.Rows))},
		})
	}
	return wire.Arr(out), wire.Nil()
}

// decodeParam decodes params[idx] into out, per spec.md §4.3's params
// being an array whose elements are themselves maps/arrays for
// structured arguments (spawn's options, key's key_event).
func decodeParam(params []wire.Value, idx int, out any) error {
	if idx >= len(params) {
		return wire.ErrInvalidFormat
	}
	return wire.DecodeStruct(params[idx], out)
}
