package server

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/prise-term/prise/internal/config"
	"github.com/prise-term/prise/internal/reactor"
	"github.com/prise-term/prise/internal/rpc"
	"github.com/prise-term/prise/internal/script"
	"github.com/prise-term/prise/internal/session"
)

// Server owns the reactor loop, the listening socket, the session
// manager, and the script host: spec.md §1's top-level composition,
// grounded on the teacher's runDaemon but restructured around the
// single-threaded reactor instead of a goroutine-per-connection model.
type Server struct {
	cfg  *config.Config
	log  *slog.Logger
	r    reactor.Reactor
	mgr  *session.Manager
	disp *Dispatcher
	host script.Host

	listenFD int

	// shutdownR/shutdownW are a self-pipe carrying SIGTERM/SIGINT from
	// the signal.Notify goroutine onto the reactor thread, the same way
	// internal/session's dirtyPipe carries a reader worker's signal to
	// the reactor: session.Manager's maps are main-thread-only (per its
	// own doc comment), so the signal goroutine must never call
	// shutdown() itself — it only writes one byte and lets the reactor
	// do the actual teardown.
	shutdownR, shutdownW *os.File
}

// New constructs a Server from cfg but does not yet listen or run.
func New(cfg *config.Config, log *slog.Logger) (*Server, error) {
	r, err := reactor.New()
	if err != nil {
		return nil, fmt.Errorf("server: reactor: %w", err)
	}

	session.MinFrameInterval = time.Duration(cfg.MinFrameIntervalMS) * time.Millisecond
	session.ClientOutboundCap = cfg.ClientOutboundCapBytes

	mgr := session.NewManager(r, log, cfg.ScrollbackBytes)

	s := &Server{cfg: cfg, log: log, r: r, mgr: mgr}
	s.disp = NewDispatcher(mgr, r, log, s.shutdown)

	if cfg.ScriptPath != "" {
		host, err := script.NewLuaHost(cfg.ScriptPath, s.disp, log)
		if err != nil {
			return nil, fmt.Errorf("server: script: %w", err)
		}
		s.host = host
	} else {
		s.host = script.NoopHost{}
	}
	s.disp.SetHost(s.host)

	return s, nil
}

// listen binds and listens on cfg.SocketPath, unlinking any stale path
// first, per spec.md §6.
func (s *Server) listen() error {
	_ = os.Remove(s.cfg.SocketPath)

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return fmt.Errorf("server: socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: s.cfg.SocketPath}); err != nil {
		unix.Close(fd)
		return fmt.Errorf("server: bind %s: %w", s.cfg.SocketPath, err)
	}
	if err := os.Chmod(s.cfg.SocketPath, 0600); err != nil {
		unix.Close(fd)
		return fmt.Errorf("server: chmod %s: %w", s.cfg.SocketPath, err)
	}
	if err := unix.Listen(fd, 128); err != nil {
		unix.Close(fd)
		return fmt.Errorf("server: listen %s: %w", s.cfg.SocketPath, err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return fmt.Errorf("server: setnonblock: %w", err)
	}
	s.listenFD = fd
	return nil
}

// Run listens and services the reactor loop until shutdown, per
// spec.md §9's resolved server-lifetime Open Question: "forever" —
// prise serve runs until quit() or SIGTERM/SIGINT.
func (s *Server) Run() error {
	if err := s.listen(); err != nil {
		return err
	}
	s.log.Info("server: listening", "socket", s.cfg.SocketPath)

	s.armAccept()

	if err := s.armShutdownPipe(); err != nil {
		return fmt.Errorf("server: shutdown pipe: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		s.log.Info("server: received signal", "signal", sig.String())
		_, _ = s.shutdownW.Write([]byte{1})
	}()

	return s.r.Run(reactor.RunForever)
}

// armShutdownPipe opens the self-pipe used to hand SIGTERM/SIGINT off
// to the reactor thread and arms its first read, mirroring
// internal/session's dirtyPipe wiring in scheduler.go's armDirtyRead.
func (s *Server) armShutdownPipe() error {
	r, w, err := os.Pipe()
	if err != nil {
		return err
	}
	if err := unix.SetNonblock(int(r.Fd()), true); err != nil {
		r.Close()
		w.Close()
		return err
	}
	if err := unix.SetNonblock(int(w.Fd()), true); err != nil {
		r.Close()
		w.Close()
		return err
	}
	s.shutdownR, s.shutdownW = r, w

	buf := make([]byte, 1)
	s.r.Read(int(s.shutdownR.Fd()), buf, nil, func(c reactor.Completion) {
		s.onShutdownSignal(c)
	})
	return nil
}

func (s *Server) onShutdownSignal(c reactor.Completion) {
	if c.Result.Err != nil {
		return // pipe closed during shutdown; nothing left to do
	}
	s.log.Info("server: shutting down")
	s.shutdown()
}

func (s *Server) armAccept() {
	s.r.Accept(s.listenFD, nil, s.onAccept)
}

func (s *Server) onAccept(c reactor.Completion) {
	if c.Result.Err != nil {
		if c.Result.Err != reactor.ErrCanceled {
			s.log.Warn("server: accept failed", "err", c.Result.Err)
			s.armAccept()
		}
		return
	}

	fd := c.Result.FD
	_ = unix.SetNonblock(fd, true)

	rs := rpc.NewSession(s.r, fd, s.disp, s.log, func(sess *rpc.Session, err error) {
		s.disp.OnClose(sess, err)
	})
	s.disp.OnAccept(rs)
	rs.Start()

	s.armAccept()
}

// shutdown tears down every session and exits the process, mirroring
// the teacher's signal handler in daemon.go (cleanup, then exit
// directly rather than unwinding the reactor loop in-band).
func (s *Server) shutdown() {
	for _, info := range s.mgr.ListSessions() {
		s.mgr.Destroy(info.ID, 0)
	}
	s.host.Close()
	_ = unix.Close(s.listenFD)
	if s.shutdownR != nil {
		s.shutdownR.Close()
		s.shutdownW.Close()
	}
	_ = os.Remove(s.cfg.SocketPath)
	s.log.Info("server: stopped")
	os.Exit(0)
}
