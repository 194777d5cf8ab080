package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/yndnr/aci-go/internal/infra/buildinfo"
)

// HTTPClient calls the plain HTTP endpoints of a server.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for the server address. Websocket
// addresses map to their HTTP origin. caFiles extend the trusted roots
// for https.
func NewHTTPClient(server string, timeout time.Duration, caFiles ...string) (*HTTPClient, error) {
	base, err := HTTPURL(server)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	hc, err := newHTTPClient(caFiles)
	if err != nil {
		return nil, err
	}
	hc.Timeout = timeout
	return &HTTPClient{baseURL: base, client: hc}, nil
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "aci-cli/"+buildinfo.Version)
	return c.client.Do(req)
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// ParseResponse decodes the data field of a response envelope into
// target. Error envelopes become errors carrying the code.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	var env struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return fmt.Errorf("request failed with status %d", resp.StatusCode)
		}
		return fmt.Errorf("parse response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("[%s] %s", env.Code, env.Message)
	}
	if target != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, target); err != nil {
			return fmt.Errorf("parse response data: %w", err)
		}
	}
	return nil
}
