package httpserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/yndnr/aci-go/internal/infra/tlsroots"
)

// Config configures the listener.
type Config struct {
	Addr string

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set. The
	// pair is reloaded when the files change.
	TLSCertFile string
	TLSKeyFile  string

	ReadHeaderTimeout time.Duration
}

// Server is the HTTP server.
type Server struct {
	cfg        Config
	httpServer *http.Server
	logger     *slog.Logger

	mu         sync.Mutex
	addr       net.Addr
	stopReload context.CancelFunc
}

// New creates a server for handler.
func New(cfg Config, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	return &Server{
		cfg: cfg,
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		logger: logger.With("component", "http"),
	}
}

// TLS reports whether the server terminates TLS.
func (s *Server) TLS() bool {
	return s.cfg.TLSCertFile != "" && s.cfg.TLSKeyFile != ""
}

// Listen binds the configured address. It is split from Serve so the
// caller learns a bind failure before starting background work.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	var stop context.CancelFunc
	if s.TLS() {
		reloader, err := tlsroots.NewCertReloader(s.cfg.TLSCertFile, s.cfg.TLSKeyFile,
			tlsroots.WithLogger(s.logger))
		if err != nil {
			ln.Close()
			return nil, err
		}
		ln = tls.NewListener(ln, reloader.ServerConfig())

		var ctx context.Context
		ctx, stop = context.WithCancel(context.Background())
		go func() {
			if err := reloader.Run(ctx); err != nil {
				s.logger.Warn("certificate reload disabled", "error", err)
			}
		}()
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.stopReload = stop
	s.mu.Unlock()
	return ln, nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Serve accepts connections on ln until Shutdown. It returns nil after a
// graceful shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("http server listening", "addr", ln.Addr().String(), "tls", s.TLS())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe is Listen followed by Serve.
func (s *Server) ListenAndServe() error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Shutdown stops accepting connections and waits for active requests.
// Hijacked websocket connections are not tracked here; close them
// through the websocket server first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.stopReload != nil {
		s.stopReload()
		s.stopReload = nil
	}
	s.mu.Unlock()
	return s.httpServer.Shutdown(ctx)
}
