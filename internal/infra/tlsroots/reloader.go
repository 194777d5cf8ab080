package tlsroots

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// CertReloader serves a key pair and reloads it when the files change.
// A failed reload keeps the previous pair.
type CertReloader struct {
	certFile string
	keyFile  string
	debounce time.Duration
	logger   *slog.Logger

	mu   sync.RWMutex
	cert *tls.Certificate
}

// ReloaderOption configures a CertReloader.
type ReloaderOption func(*CertReloader)

// WithLogger sets the reloader logger.
func WithLogger(logger *slog.Logger) ReloaderOption {
	return func(r *CertReloader) {
		r.logger = logger
	}
}

// WithDebounce sets how long to wait for a burst of file events to settle.
func WithDebounce(d time.Duration) ReloaderOption {
	return func(r *CertReloader) {
		r.debounce = d
	}
}

// NewCertReloader loads the key pair once and returns the reloader.
func NewCertReloader(certFile, keyFile string, opts ...ReloaderOption) (*CertReloader, error) {
	r := &CertReloader{
		certFile: certFile,
		keyFile:  keyFile,
		debounce: 200 * time.Millisecond,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload reads the key pair from disk.
func (r *CertReloader) Reload() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("tlsroots: load key pair: %w", err)
	}
	r.mu.Lock()
	r.cert = &cert
	r.mu.Unlock()
	return nil
}

// GetCertificate implements tls.Config.GetCertificate.
func (r *CertReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert, nil
}

// ServerConfig returns a server TLS config backed by the reloader.
func (r *CertReloader) ServerConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: r.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}
}

// Run watches the directories of both files until ctx is done. The
// directories are watched rather than the files so atomic renames
// (kubernetes secrets, editors) are seen.
func (r *CertReloader) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsroots: create watcher: %w", err)
	}
	defer w.Close()

	dirs := map[string]bool{filepath.Dir(r.certFile): true, filepath.Dir(r.keyFile): true}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("tlsroots: watch %s: %w", dir, err)
		}
	}
	names := map[string]bool{filepath.Base(r.certFile): true, filepath.Base(r.keyFile): true}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !names[filepath.Base(ev.Name)] || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(r.debounce)
			} else {
				timer.Reset(r.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			if err := r.Reload(); err != nil {
				r.logger.Error("certificate reload failed", "cert_file", r.certFile, "error", err)
				continue
			}
			r.logger.Info("certificate reloaded", "cert_file", r.certFile)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("certificate watcher error", "error", err)
		}
	}
}
