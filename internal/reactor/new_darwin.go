//go:build darwin

package reactor

func newPlatform() (Reactor, error) { return NewKqueue() }
