package client

import (
	"context"
	"errors"
	"sync"

	"github.com/yndnr/aci-go/internal/protocol"
)

// ErrDisconnected is returned to every waiter once the connection closes.
var ErrDisconnected = errors.New("client: disconnected")

// Signature identifies the response a caller waits for.
type Signature struct {
	Kind      protocol.Kind
	Key       string
	Database  string
	RequestID string
}

// SignatureFor returns the signature of the response to req.
func SignatureFor(req *protocol.Request, kind protocol.Kind) Signature {
	sig := Signature{Kind: kind, RequestID: req.RequestID}
	if kind.DatabaseScoped() {
		sig.Database = req.DB
	}
	if kind.KeyScoped() {
		sig.Key = req.Key
	}
	return sig
}

// Matches reports whether resp answers a request with this signature.
// Request ids are compared only when both sides carry one.
func (s Signature) Matches(resp *protocol.Response) bool {
	if resp.Kind != s.Kind {
		return false
	}
	if s.Kind.DatabaseScoped() && resp.DB != s.Database {
		return false
	}
	if s.Kind.KeyScoped() && resp.Key != s.Key {
		return false
	}
	if s.RequestID != "" && resp.RequestID != "" && resp.RequestID != s.RequestID {
		return false
	}
	return true
}

// correlator holds responses in arrival order until a waiter claims them.
type correlator struct {
	mu     sync.Mutex
	held   []*protocol.Response
	notify chan struct{}
	closed bool
	limit  int
	// dropped counts responses evicted because nobody claimed them.
	dropped int
}

func newCorrelator(limit int) *correlator {
	return &correlator{notify: make(chan struct{}), limit: limit}
}

// deliver appends resp and wakes all waiters.
func (c *correlator) deliver(resp *protocol.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.held = append(c.held, resp)
	if c.limit > 0 && len(c.held) > c.limit {
		n := len(c.held) - c.limit
		c.held = append(c.held[:0], c.held[n:]...)
		c.dropped += n
	}
	close(c.notify)
	c.notify = make(chan struct{})
}

// Wait blocks until a held response matches sig, ctx ends or the
// connection closes. The earliest matching response is consumed.
func (c *correlator) Wait(ctx context.Context, sig Signature) (*protocol.Response, error) {
	for {
		c.mu.Lock()
		for i, resp := range c.held {
			if sig.Matches(resp) {
				c.held = append(c.held[:i], c.held[i+1:]...)
				c.mu.Unlock()
				return resp, nil
			}
		}
		if c.closed {
			c.mu.Unlock()
			return nil, ErrDisconnected
		}
		ch := c.notify
		c.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// take removes and returns the held error reply for requestID, if any.
func (c *correlator) take(requestID string) *protocol.Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, resp := range c.held {
		if resp.Kind == protocol.KindError && resp.RequestID == requestID {
			c.held = append(c.held[:i], c.held[i+1:]...)
			return resp
		}
	}
	return nil
}

// close wakes every waiter with ErrDisconnected. Responses already held
// can still be claimed.
func (c *correlator) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.notify)
}

func (c *correlator) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.held)
}
