package reactor

// New constructs the best available real backend for the running
// platform: epoll on Linux, kqueue on BSD/macOS. Platforms with
// neither fall back to Mock, which performs no real I/O: its Accept,
// Read and Write stay pending unless a test resolves them, so a server
// built on it accepts no clients.
func New() (Reactor, error) {
	return newPlatform()
}
