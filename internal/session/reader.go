package session

const readerChunk = 64 * 1024

// runReader is the PTY reader worker: spec.md §4.4. It owns the only
// blocking read on the PTY master, feeds bytes to the terminal, writes
// any VT reply stream straight back to the master, and signals the
// main thread over the dirty pipe. It returns once the PTY is closed
// out from under it or hits EOF/a fatal read error.
func (s *PtySession) runReader() {
	buf := make([]byte, readerChunk)
	for {
		n, err := s.pty.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			s.back.Write(chunk)
			reply := s.term.Feed(chunk)
			if len(reply) > 0 {
				_, _ = s.pty.Write(reply)
			}
			s.pipe.signal(signalDirty)
		}
		if err != nil {
			s.pipe.signal(signalExit)
			return
		}
	}
}
