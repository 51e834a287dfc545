//go:build linux

package reactor

func newPlatform() (Reactor, error) { return NewEpoll() }
