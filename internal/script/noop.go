package script

// NoopHost is the Host used when no script_path is configured: every
// event is dropped, so the server drives no layout/routing policy and
// spawn/write/etc. must be requested directly by clients over RPC.
type NoopHost struct{}

func (NoopHost) Dispatch(Event) {}
func (NoopHost) Close()         {}
