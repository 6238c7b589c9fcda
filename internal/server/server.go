package server

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wbkim0504/pms-emul/internal/observability"
	"github.com/wbkim0504/pms-emul/internal/registry"
)

var ErrQuit = errors.New("server: quit requested")

// Server accepts peer connections and runs one handler per admitted peer.
type Server struct {
	cfg      Config
	registry *registry.Registry
	selector *SelectorCell
	logger   zerolog.Logger
	exit     func(code int)
	started  time.Time

	traceMu sync.Mutex
	trace   io.Writer

	handlers sync.WaitGroup
	draining atomic.Bool
	quit     chan struct{}
	quitOnce sync.Once

	routerOnce sync.Once
	router     *gin.Engine
}

type Option func(*Server)

// WithTrace sets the sink for human-readable decode dumps and status
// listings. Defaults to stdout.
func WithTrace(w io.Writer) Option {
	return func(s *Server) {
		s.trace = w
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithExit replaces os.Exit for QuitExit.
func WithExit(fn func(code int)) Option {
	return func(s *Server) {
		s.exit = fn
	}
}

func New(cfg Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Server{
		cfg:      cfg,
		selector: NewSelectorCell(),
		logger:   log.Logger,
		exit:     os.Exit,
		trace:    os.Stdout,
		quit:     make(chan struct{}),
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registry = registry.New(registry.Config{
		Capacity:     cfg.MaxClients,
		FirstID:      cfg.FirstID,
		WriteTimeout: cfg.WriteTimeout,
		OnWriteError: s.onWriteError,
	})
	observability.RegisterMetrics()
	return s, nil
}

func (s *Server) Config() Config {
	return s.cfg
}

func (s *Server) Registry() *registry.Registry {
	return s.registry
}

// Selector returns the process-wide selector. Under ScopeConnection each
// handler owns its own cell and this one is never consumed.
func (s *Server) Selector() *SelectorCell {
	return s.selector
}

// ListenAndServe listens on cfg.Addr (and cfg.HTTPAddr when set) and serves
// until ctx ends or a quit command arrives.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpErr := make(chan error, 1)
	if s.cfg.HTTPAddr != "" {
		go func() {
			httpErr <- s.serveHTTP(ctx, s.cfg.HTTPAddr)
		}()
	}

	err = s.Serve(ctx, ln)
	cancel()
	if s.cfg.HTTPAddr != "" {
		if herr := <-httpErr; herr != nil && err == nil {
			err = herr
		}
	}
	return err
}

// Serve runs the accept loop on ln. On return every handler has finished and
// ln is closed. It returns ErrQuit when a peer sent "quit" in QuitDrain mode.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.quit:
		}
		_ = ln.Close()
	}()
	if s.cfg.StatusInterval > 0 {
		go s.RunStatusReporter(ctx)
	}

	s.logger.Info().
		Str("addr", ln.Addr().String()).
		Int("max_clients", s.cfg.MaxClients).
		Str("selector_scope", string(s.cfg.SelectorScope)).
		Str("quit_mode", string(s.cfg.QuitMode)).
		Msg("server started")

	err := s.acceptLoop(ctx, ln)

	s.drain()
	s.handlers.Wait()
	s.logger.Info().Msg("server stopped")

	if s.quitRequested() {
		return ErrQuit
	}
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	attempt := 0
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || s.quitRequested() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			attempt++
			delay := NextBackoffDelay(s.cfg.AcceptBackoff, attempt, rng)
			s.logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("accept failed")
			if !sleepContext(ctx, delay) {
				return nil
			}
			continue
		}
		attempt = 0
		s.admit(conn)
		if !sleepContext(ctx, s.cfg.AcceptPause) {
			return nil
		}
	}
}

// admit runs the Connecting phase synchronously so ids follow accept order,
// then hands the connection to its own goroutine.
func (s *Server) admit(conn net.Conn) {
	h := newHandler(s, conn)
	if err := h.connect(); err != nil {
		return
	}
	s.handlers.Add(1)
	go func() {
		defer s.handlers.Done()
		h.run()
	}()
}

// drain sends every remaining peer's leave notice while all transports are
// still open, then closes them. A notice already claimed by a handler that
// is leaving on its own is not sent again.
func (s *Server) drain() {
	s.draining.Store(true)
	for _, e := range s.registry.Snapshot() {
		p, ok := s.registry.Lookup(e.ID)
		if !ok || !p.ClaimLeave() {
			continue
		}
		_ = s.registry.BroadcastExcept(p.ID, LeaveNotice(p.Name))
	}
	s.registry.CloseAll()
}

// Quit asks the server to shut down as if a peer had sent "quit".
func (s *Server) Quit() {
	if s.cfg.QuitMode == QuitExit {
		s.logger.Warn().Msg("quit received, exiting immediately")
		s.exit(0)
		return
	}
	s.quitOnce.Do(func() {
		s.logger.Warn().Msg("quit received, draining connections")
		close(s.quit)
	})
}

func (s *Server) quitRequested() bool {
	select {
	case <-s.quit:
		return true
	default:
		return false
	}
}

func (s *Server) writeTrace(fn func(w io.Writer) error) {
	s.traceMu.Lock()
	defer s.traceMu.Unlock()
	if err := fn(s.trace); err != nil {
		s.logger.Warn().Err(err).Msg("trace write failed")
	}
}

func (s *Server) onWriteError(p *registry.Peer, err error) {
	observability.RecordBroadcastFailure()
	s.logger.Warn().
		Int("conn_id", p.ID).
		Str("remote", p.RemoteAddr).
		Err(err).
		Msg("broadcast_failed")
}
