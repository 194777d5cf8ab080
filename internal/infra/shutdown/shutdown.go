package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

type hook struct {
	name string
	fn   func(context.Context) error
}

// Handler runs registered hooks in reverse registration order within a
// shared timeout.
type Handler struct {
	timeout time.Duration
	logger  *slog.Logger

	mu    sync.Mutex
	hooks []hook
	once  sync.Once
	done  chan struct{}
	err   error
}

// NewHandler creates a shutdown handler.
func NewHandler(timeout time.Duration, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		timeout: timeout,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// OnShutdown registers a named hook. Later hooks run first, so a server
// registered after the storage it uses stops before that storage.
func (h *Handler) OnShutdown(name string, fn func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook{name: name, fn: fn})
}

// Wait blocks until SIGINT, SIGTERM or the end of ctx, then runs the
// hooks and returns their joined errors.
func (h *Handler) Wait(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()
	h.logger.Info("shutdown requested", "cause", context.Cause(sigCtx))
	return h.Shutdown()
}

// Shutdown runs the hooks once. Later calls return the first result.
func (h *Handler) Shutdown() error {
	h.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()

		h.mu.Lock()
		hooks := append([]hook(nil), h.hooks...)
		h.mu.Unlock()

		var errs []error
		for i := len(hooks) - 1; i >= 0; i-- {
			start := time.Now()
			if err := hooks[i].fn(ctx); err != nil {
				h.logger.Error("shutdown hook failed", "hook", hooks[i].name, "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", hooks[i].name, err))
				continue
			}
			h.logger.Debug("shutdown hook done", "hook", hooks[i].name, "elapsed", time.Since(start))
		}
		h.err = errors.Join(errs...)
		close(h.done)
	})
	return h.err
}

// Done is closed once the hooks have run.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}
