package wsserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/yndnr/aci-go/internal/core/domain"
	"github.com/yndnr/aci-go/pkg/cmap"
)

// Store is the storage engine as seen by the dispatcher.
// storage.Engine implements it.
type Store interface {
	Get(ctx context.Context, db, key string, id domain.Identity) (any, error)
	Set(ctx context.Context, db, key string, value any, id domain.Identity) (any, error)
	GetIndex(ctx context.Context, db, key string, indices []int, id domain.Identity) (map[int]any, error)
	SetIndex(ctx context.Context, db, key string, indices []int, values []any, id domain.Identity) error
	AppendIndex(ctx context.Context, db, key string, values []any, id domain.Identity) error
	Len(ctx context.Context, db, key string, id domain.Identity) (int, error)
	Recent(ctx context.Context, db, key string, n int, id domain.Identity) ([]any, error)
	CreateDatabase(ctx context.Context, name string) error
	WriteToDisk(ctx context.Context, name string) error
	ReadFromDisk(ctx context.Context, name string) error
	ListKeys(ctx context.Context, name string) ([]string, error)
}

// Authenticator resolves credentials to identities.
// service.AuthService implements it.
type Authenticator interface {
	Static(ctx context.Context, id, token string) (domain.Identity, error)
	Federated(ctx context.Context, rawToken string) (domain.Identity, error)
}

// Metrics receives dispatcher measurements. metric.Registry implements it.
type Metrics interface {
	RecordRequest(command, result string, seconds float64)
	SessionOpened()
	SessionClosed()
	RecordAuthentication(kind string)
	RecordEvent(delivered bool)
}

// Config holds the WebSocket server configuration.
type Config struct {
	// IdleTimeout closes a session that sends nothing for this long.
	// Zero disables it.
	IdleTimeout time.Duration

	// WriteTimeout bounds each frame write (default: 5s).
	WriteTimeout time.Duration

	// MaxMessageBytes bounds a single inbound frame (default: 16 MiB).
	MaxMessageBytes int64

	// RateLimit is the sustained commands per second per session.
	// Zero disables limiting.
	RateLimit float64
	RateBurst int

	// OriginPatterns lists accepted browser origins. Empty accepts
	// same-origin requests only.
	OriginPatterns []string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		WriteTimeout:    5 * time.Second,
		MaxMessageBytes: 16 << 20,
		RateBurst:       100,
	}
}

// Server accepts WebSocket sessions and dispatches their commands.
type Server struct {
	cfg      *Config
	store    Store
	auth     Authenticator
	metrics  Metrics
	logger   *slog.Logger
	sessions *cmap.Map[*Session]

	closing atomic.Bool
	wg      sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates a Server.
func New(cfg *Config, store Store, auth Authenticator, opts ...Option) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Server{
		cfg:      cfg,
		store:    store,
		auth:     auth,
		metrics:  nopMetrics{},
		logger:   slog.Default(),
		sessions: cmap.New[*Session](),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "wsserver")
	return s
}

// ServeHTTP upgrades the request and runs the session until it ends.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.closing.Load() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.OriginPatterns,
	})
	if err != nil {
		s.logger.Debug("websocket accept failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	if s.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(s.cfg.MaxMessageBytes)
	}

	// The request context ends when the handler returns; the session
	// context additionally ends on Shutdown.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := newSession(conn, r.RemoteAddr, s.cfg, cancel)
	s.wg.Add(1)
	defer s.wg.Done()

	s.sessions.Set(sess.ID(), sess)
	s.metrics.SessionOpened()
	s.logger.Debug("session opened", "session_id", sess.ID(), "remote", sess.remote)
	defer func() {
		s.sessions.Delete(sess.ID())
		s.metrics.SessionClosed()
		s.logger.Debug("session closed", "session_id", sess.ID(), "identity", sess.Identity().String())
	}()

	err = s.serve(ctx, sess)
	switch {
	case s.closing.Load():
		sess.close(websocket.StatusGoingAway, "server shutting down")
	case websocket.CloseStatus(err) != -1:
		// Peer closed.
	case err == nil, errors.Is(err, context.Canceled):
		sess.close(websocket.StatusNormalClosure, "")
	default:
		s.logger.Debug("session ended", "session_id", sess.ID(), "error", err)
		sess.close(websocket.StatusPolicyViolation, "")
	}
}

// Sessions returns the number of open sessions.
func (s *Server) Sessions() int {
	return s.sessions.Count()
}

// Closing reports whether Shutdown has started.
func (s *Server) Closing() bool {
	return s.closing.Load()
}

// Clients returns the records of all authenticated sessions.
func (s *Server) Clients() []ClientRecord {
	var out []ClientRecord
	s.sessions.Range(func(_ string, sess *Session) bool {
		if rec := sess.Record(); rec != nil {
			out = append(out, *rec)
		}
		return true
	})
	return out
}

// Shutdown stops accepting sessions, closes the open ones and waits for
// their loops to exit or ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closing.Store(true)
	s.sessions.Range(func(_ string, sess *Session) bool {
		sess.cancel()
		return true
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordRequest(string, string, float64) {}
func (nopMetrics) SessionOpened()                        {}
func (nopMetrics) SessionClosed()                        {}
func (nopMetrics) RecordAuthentication(string)           {}
func (nopMetrics) RecordEvent(bool)                      {}
