package server

import (
	"github.com/prise-term/prise/internal/script"
	"github.com/prise-term/prise/internal/session"
)

// Spawn, SendKey, Write, Title, Scrollback, RequestFrame, SetTimeout,
// CancelTimer, Quit, LogInfo, LogWarn, and LogErr together implement
// script.Runtime against the live session.Manager, per spec.md §4.7.

func (d *Dispatcher) Spawn(opts script.SpawnOptions) (uint64, error) {
	return d.mgr.Spawn(session.Options{
		Argv: opts.Argv, Cwd: opts.Cwd, Env: opts.Env, Cols: opts.Cols, Rows: opts.Rows,
	})
}

func (d *Dispatcher) SendKey(id uint64, key script.KeyEvent) error {
	return d.mgr.SendKey(id, session.KeyEvent{
		Key: key.Key, Ctrl: key.Ctrl, Shift: key.Shift, Alt: key.Alt, Meta: key.Meta,
	})
}

func (d *Dispatcher) Write(id uint64, data []byte) error {
	return d.mgr.Write(id, data)
}

func (d *Dispatcher) Title(id uint64) string {
	return d.mgr.Title(id)
}

func (d *Dispatcher) Scrollback(id uint64) []byte {
	return d.mgr.Scrollback(id)
}

func (d *Dispatcher) RequestFrame(id uint64) {
	d.mgr.RequestFrame(id)
}

func (d *Dispatcher) SetTimeout(ms int, cb func()) script.TimerRef {
	return d.timers.set(d.r, ms, cb)
}

func (d *Dispatcher) CancelTimer(ref script.TimerRef) {
	d.timers.cancel(d.r, ref)
}

func (d *Dispatcher) Quit() {
	d.quit()
}

func (d *Dispatcher) LogInfo(msg string) { d.log.Info("script", "msg", msg) }
func (d *Dispatcher) LogWarn(msg string) { d.log.Warn("script", "msg", msg) }
func (d *Dispatcher) LogErr(msg string)  { d.log.Error("script", "msg", msg) }
