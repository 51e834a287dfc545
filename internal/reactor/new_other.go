//go:build !linux && !darwin

package reactor

// newPlatform falls back to Mock on platforms with neither epoll nor
// kqueue. Mock performs no real I/O (see mock.go), so on these
// platforms no accept, read or write ever completes.
func newPlatform() (Reactor, error) { return NewMock(), nil }
