package httpserver

import (
	"bufio"
	"crypto/rand"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/aci-go/internal/core/domain"
	"github.com/yndnr/aci-go/internal/telemetry/logger"
)

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so that the first one listed runs first.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func newRequestID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), entropy).String()
}

// RequestID propagates X-Request-ID, generating one when absent, and
// stores it in the request context for logger.L.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" || len(id) > 128 {
				id = newRequestID()
			}
			w.Header().Set(HeaderRequestID, id)
			next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
		})
	}
}

// AccessLog logs one line per completed request.
func AccessLog(log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			attrs := []any{
				"request_id", logger.RequestIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"client_ip", clientIP(r),
			}
			switch {
			case wrapped.statusCode >= 500:
				log.Error("request completed with error", attrs...)
			case wrapped.statusCode >= 400:
				log.Warn("request completed with client error", attrs...)
			default:
				log.Debug("request completed", attrs...)
			}
		})
	}
}

// Recover turns a handler panic into a 500 response.
func Recover(log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					log.Error("panic recovered",
						"request_id", logger.RequestIDFromContext(r.Context()),
						"error", err,
						"path", r.URL.Path,
					)
					writeError(w, http.StatusInternalServerError, domain.ErrInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// NetworkACLConfig configures NetworkACL.
type NetworkACLConfig struct {
	// AllowList holds IPs and CIDRs. Empty allows loopback only.
	AllowList []string
	Logger    *slog.Logger
}

// NetworkACL rejects requests whose peer address is outside the allow
// list. Forwarding headers are not consulted.
func NetworkACL(cfg *NetworkACLConfig) Middleware {
	var networks []*net.IPNet
	var singleIPs []net.IP
	for _, entry := range cfg.AllowList {
		if strings.Contains(entry, "/") {
			_, ipNet, err := net.ParseCIDR(entry)
			if err != nil {
				if cfg.Logger != nil {
					cfg.Logger.Warn("invalid CIDR in allowlist", "entry", entry, "error", err)
				}
				continue
			}
			networks = append(networks, ipNet)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			if cfg.Logger != nil {
				cfg.Logger.Warn("invalid IP in allowlist", "entry", entry)
			}
			continue
		}
		singleIPs = append(singleIPs, ip)
	}
	loopbackOnly := len(cfg.AllowList) == 0

	allowed := func(ip net.IP) bool {
		if loopbackOnly {
			return ip.IsLoopback()
		}
		for _, a := range singleIPs {
			if a.Equal(ip) {
				return true
			}
		}
		for _, n := range networks {
			if n.Contains(ip) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := clientIP(r)
			if ip := net.ParseIP(addr); ip != nil && allowed(ip) {
				next.ServeHTTP(w, r)
				return
			}
			if cfg.Logger != nil {
				cfg.Logger.Warn("request denied by network ACL", "client_ip", addr, "path", r.URL.Path)
			}
			writeError(w, http.StatusForbidden, domain.ErrAccessDenied.WithDetails("address not in allow list"))
		})
	}
}

// responseWriter captures the status code. Unwrap and Hijack keep the
// websocket upgrade working through the wrapper.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("httpserver: response writer does not support hijacking")
	}
	w.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func writeError(w http.ResponseWriter, status int, err *domain.DomainError) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", err.Code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    err.Code,
		"message": err.Error(),
	})
}

// clientIP returns the peer host of r.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
