package client

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/oklog/ulid/v2"

	"github.com/yndnr/aci-go/internal/core/domain"
	"github.com/yndnr/aci-go/internal/protocol"
)

// Defaults for Options.
const (
	DefaultHoldLimit   = 1024
	DefaultEventBuffer = 256
	DefaultTimeout     = 30 * time.Second
)

type options struct {
	requestIDs  bool
	holdLimit   int
	eventBuffer int
	timeout     time.Duration
	dial        *websocket.DialOptions
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*options)

// WithoutRequestIDs disables request ids. Responses are then matched by
// kind, key and database alone, so two concurrent requests with the same
// signature may receive each other's responses.
func WithoutRequestIDs() Option {
	return func(o *options) { o.requestIDs = false }
}

// WithHoldLimit bounds the number of unclaimed responses kept.
func WithHoldLimit(n int) Option {
	return func(o *options) { o.holdLimit = n }
}

// WithEventBuffer sets the number of events queued for subscriptions.
func WithEventBuffer(n int) Option {
	return func(o *options) { o.eventBuffer = n }
}

// WithTimeout bounds each request whose context has no deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithDialOptions passes options to the WebSocket handshake.
func WithDialOptions(d *websocket.DialOptions) Option {
	return func(o *options) { o.dial = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Client is a connection to an ACI server. It is safe for concurrent use.
type Client struct {
	conn   *websocket.Conn
	opts   options
	logger *slog.Logger

	corr *correlator
	subs *subscriptions

	idMu    sync.Mutex
	entropy io.Reader

	done      chan struct{}
	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
}

// Dial connects to url (ws:// or wss://) and starts the receive loop.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	o := options{
		requestIDs:  true,
		holdLimit:   DefaultHoldLimit,
		eventBuffer: DefaultEventBuffer,
		timeout:     DefaultTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	conn, _, err := websocket.Dial(ctx, url, o.dial)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", url, err)
	}
	conn.SetReadLimit(-1)

	c := &Client{
		conn:    conn,
		opts:    o,
		logger:  o.logger.With("component", "client"),
		corr:    newCorrelator(o.holdLimit),
		entropy: ulid.Monotonic(rand.Reader, 0),
		done:    make(chan struct{}),
	}
	c.subs = newSubscriptions(o.eventBuffer, c.logger)
	go c.receive()
	return c, nil
}

// receive decodes inbound messages until the connection fails.
func (c *Client) receive() {
	defer func() {
		c.corr.close()
		c.subs.close()
		close(c.done)
	}()
	ctx := context.Background()
	for {
		var msg protocol.Response
		if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
			c.setErr(err)
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, net.ErrClosed) {
				c.logger.Debug("receive loop ended", "error", err)
			}
			return
		}
		if msg.Kind == protocol.KindEvent {
			c.subs.publish(Event{ID: msg.EventID, Origin: msg.Origin, Payload: msg.Payload})
			continue
		}
		m := msg
		c.corr.deliver(&m)
	}
}

func (c *Client) setErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

// Err returns the error that ended the connection, or nil while open.
func (c *Client) Err() error {
	select {
	case <-c.done:
	default:
		return nil
	}
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Done is closed when the connection has ended.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close closes the connection. Pending requests fail with ErrDisconnected.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close(websocket.StatusNormalClosure, "")
		<-c.done
	})
	return err
}

func (c *Client) newRequestID() string {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	return ulid.MustNew(ulid.Now(), c.entropy).String()
}

// send writes req without waiting for an answer.
func (c *Client) send(ctx context.Context, req *protocol.Request) error {
	select {
	case <-c.done:
		return ErrDisconnected
	default:
	}
	if err := wsjson.Write(ctx, c.conn, req); err != nil {
		select {
		case <-c.done:
			return ErrDisconnected
		default:
		}
		return fmt.Errorf("client: send %s: %w", req.Cmd, err)
	}
	return nil
}

// roundTrip sends req and waits for its response. A response carrying an
// error is returned as that error, together with the response.
func (c *Client) roundTrip(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	kind, ok := req.Expects()
	if !ok {
		return nil, c.send(ctx, req)
	}
	if _, has := ctx.Deadline(); !has && c.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.timeout)
		defer cancel()
	}
	if c.opts.requestIDs {
		req.RequestID = c.newRequestID()
	}
	sig := SignatureFor(req, kind)
	if err := c.send(ctx, req); err != nil {
		return nil, err
	}
	resp, err := c.corr.Wait(ctx, sig)
	if err != nil {
		return nil, err
	}
	return resp, resp.Err()
}

// confirm sends an unanswered command and reports its failure. The server
// answers such a command only when it fails, so a list_keys on the same
// connection serves as a barrier: once it is answered, any error reply for
// req has arrived. Without request ids req is sent and not confirmed.
func (c *Client) confirm(ctx context.Context, req *protocol.Request) error {
	if !c.opts.requestIDs {
		return c.send(ctx, req)
	}
	if _, has := ctx.Deadline(); !has && c.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.timeout)
		defer cancel()
	}
	req.RequestID = c.newRequestID()
	if err := c.send(ctx, req); err != nil {
		return err
	}
	barrier := &protocol.Request{Cmd: protocol.CmdListKeys, DB: req.DB}
	if resp, err := c.roundTrip(ctx, barrier); resp == nil && err != nil {
		return err
	}
	if resp := c.corr.take(req.RequestID); resp != nil {
		return resp.Err()
	}
	return nil
}

// CreateDatabase creates an empty database on the server.
func (c *Client) CreateDatabase(ctx context.Context, name string) error {
	return c.confirm(ctx, &protocol.Request{Cmd: protocol.CmdCreateDB, DB: name})
}

// WriteAllToDisk persists every loaded database.
func (c *Client) WriteAllToDisk(ctx context.Context) error {
	return c.confirm(ctx, &protocol.Request{Cmd: protocol.CmdWriteToDisk})
}

// Authenticate binds the connection to a static id/token pair.
func (c *Client) Authenticate(ctx context.Context, id, token string) (domain.Identity, error) {
	return c.auth(ctx, &protocol.Request{Cmd: protocol.CmdStaticAuth, ID: id, Token: token})
}

// AuthenticateFederated binds the connection to an identity-provider
// token.
func (c *Client) AuthenticateFederated(ctx context.Context, idToken string) (domain.Identity, error) {
	return c.auth(ctx, &protocol.Request{Cmd: protocol.CmdFederatedAuth, IDToken: idToken})
}

func (c *Client) auth(ctx context.Context, req *protocol.Request) (domain.Identity, error) {
	resp, err := c.roundTrip(ctx, req)
	if err != nil {
		return domain.NotAuthed, err
	}
	var rec struct {
		IdentityKind domain.IdentityKind `json:"identity_kind"`
		Principal    string              `json:"principal"`
	}
	if len(resp.Value) > 0 {
		if err := json.Unmarshal(resp.Value, &rec); err != nil {
			return domain.NotAuthed, fmt.Errorf("client: decode auth response: %w", err)
		}
	}
	return domain.Identity{Kind: rec.IdentityKind, Principal: rec.Principal}, nil
}

// SendEvent pushes payload to every session bound to destination.
func (c *Client) SendEvent(ctx context.Context, destination, eventID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("client: encode event payload: %w", err)
	}
	return c.send(ctx, &protocol.Request{
		Cmd:         protocol.CmdEvent,
		Destination: destination,
		EventID:     eventID,
		Payload:     data,
	})
}

// Subscribe registers fn for events with eventID. Every matching
// subscription fires. The returned function cancels the subscription.
func (c *Client) Subscribe(eventID string, fn func(Event)) (cancel func()) {
	return c.subs.add(&Subscription{EventID: eventID, Callback: fn})
}

// Database returns a handle on the named database. No request is sent.
func (c *Client) Database(name string) *Database {
	return &Database{c: c, name: name}
}
