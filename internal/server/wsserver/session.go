package wsserver

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/yndnr/aci-go/internal/core/domain"
	"github.com/yndnr/aci-go/internal/protocol"
)

// ClientRecord describes an authenticated session. It lives as long as
// the connection; authenticating again replaces it.
type ClientRecord struct {
	ID              string              `json:"id"`
	IdentityKind    domain.IdentityKind `json:"identity_kind"`
	SessionHandle   string              `json:"session_handle"`
	Principal       string              `json:"principal"`
	AuthenticatedAt time.Time           `json:"authenticated_at"`
}

// Identity returns the identity the record binds.
func (r *ClientRecord) Identity() domain.Identity {
	return domain.Identity{Kind: r.IdentityKind, Principal: r.Principal}
}

// Session is one client connection.
type Session struct {
	id           string
	conn         *websocket.Conn
	remote       string
	idleTimeout  time.Duration
	writeTimeout time.Duration
	limiter      *rate.Limiter
	cancel       context.CancelFunc

	record    atomic.Pointer[ClientRecord]
	closeOnce sync.Once
}

func newSession(conn *websocket.Conn, remote string, cfg *Config, cancel context.CancelFunc) *Session {
	s := &Session{
		id:           uuid.NewString(),
		conn:         conn,
		remote:       remote,
		idleTimeout:  cfg.IdleTimeout,
		writeTimeout: cfg.WriteTimeout,
		cancel:       cancel,
	}
	if s.writeTimeout <= 0 {
		s.writeTimeout = 5 * time.Second
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return s
}

// ID returns the session handle.
func (s *Session) ID() string {
	return s.id
}

// Identity returns the bound identity, or domain.NotAuthed.
func (s *Session) Identity() domain.Identity {
	if rec := s.record.Load(); rec != nil {
		return rec.Identity()
	}
	return domain.NotAuthed
}

// Record returns the client record, or nil before authentication.
func (s *Session) Record() *ClientRecord {
	return s.record.Load()
}

func (s *Session) bind(id domain.Identity) *ClientRecord {
	rec := &ClientRecord{
		ID:              uuid.NewString(),
		IdentityKind:    id.Kind,
		SessionHandle:   s.id,
		Principal:       id.Principal,
		AuthenticatedAt: time.Now(),
	}
	s.record.Store(rec)
	return rec
}

func (s *Session) allow() bool {
	return s.limiter == nil || s.limiter.Allow()
}

func (s *Session) read(ctx context.Context) (*protocol.Request, error) {
	if s.idleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.idleTimeout)
		defer cancel()
	}
	var req protocol.Request
	if err := wsjson.Read(ctx, s.conn, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// write sends one message. Writes from the session loop and from event
// fan-out may run concurrently; the connection serializes frames.
func (s *Session) write(ctx context.Context, resp *protocol.Response) error {
	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, s.conn, resp)
}

func (s *Session) close(code websocket.StatusCode, reason string) {
	s.closeOnce.Do(func() {
		_ = s.conn.Close(code, reason)
	})
}
