package connection

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/yndnr/aci-go/internal/client"
	"github.com/yndnr/aci-go/internal/core/domain"
)

// Options configures a websocket connection.
type Options struct {
	Server string

	// ID and Token select static authentication. IDToken selects
	// federated authentication when ID is empty. With neither the
	// connection stays anonymous.
	ID      string
	Token   string
	IDToken string

	// CAFile adds a PEM CA bundle to the roots trusted for wss://.
	CAFile string

	Timeout time.Duration
	Logger  *slog.Logger
}

// WebSocketURL normalizes a server address to a ws:// or wss:// URL.
// A bare host:port gets ws:// and path "/".
func WebSocketURL(server string) (string, error) {
	if server == "" {
		return "", fmt.Errorf("server address is empty")
	}
	if !strings.Contains(server, "://") {
		server = "ws://" + server
	}
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("parse server address: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server address %q has no host", server)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// HTTPURL returns the http:// or https:// origin of a server address.
func HTTPURL(server string) (string, error) {
	ws, err := WebSocketURL(server)
	if err != nil {
		return "", err
	}
	u, _ := url.Parse(ws)
	if u.Scheme == "wss" {
		u.Scheme = "https"
	} else {
		u.Scheme = "http"
	}
	u.Path, u.RawQuery = "", ""
	return u.String(), nil
}

// Open dials the server without authenticating.
func Open(ctx context.Context, opts Options) (*client.Client, error) {
	target, err := WebSocketURL(opts.Server)
	if err != nil {
		return nil, err
	}
	var copts []client.Option
	if opts.Timeout > 0 {
		copts = append(copts, client.WithTimeout(opts.Timeout))
	}
	if opts.Logger != nil {
		copts = append(copts, client.WithLogger(opts.Logger))
	}
	if opts.CAFile != "" {
		hc, err := newHTTPClient([]string{opts.CAFile})
		if err != nil {
			return nil, err
		}
		copts = append(copts, client.WithDialOptions(&websocket.DialOptions{HTTPClient: hc}))
	}
	return client.Dial(ctx, target, copts...)
}

// Authenticate binds c according to opts and returns the identity.
func Authenticate(ctx context.Context, c *client.Client, opts Options) (domain.Identity, error) {
	switch {
	case opts.ID != "":
		return c.Authenticate(ctx, opts.ID, opts.Token)
	case opts.IDToken != "":
		return c.AuthenticateFederated(ctx, opts.IDToken)
	default:
		return domain.NotAuthed, nil
	}
}

// Dial opens and authenticates a connection. The connection is closed
// when authentication fails.
func Dial(ctx context.Context, opts Options) (*client.Client, error) {
	c, err := Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	if _, err := Authenticate(ctx, c, opts); err != nil {
		c.Close()
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	return c, nil
}
