package reactor

// NewIOUring would construct the Linux completion-based backend
// spec.md §4.2 calls out alongside the readiness backends. No pack
// example or reachable dependency binds io_uring without cgo, so it
// is left unimplemented rather than faked: callers get ErrUnsupported
// and should fall back to NewEpoll, which satisfies the same Reactor
// contract from the readiness side (spec.md explicitly allows hiding
// this choice behind the interface). See DESIGN.md.
func NewIOUring() (Reactor, error) {
	return nil, ErrUnsupported
}
