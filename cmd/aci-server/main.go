package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/yndnr/aci-go/internal/core/service"
	"github.com/yndnr/aci-go/internal/infra/buildinfo"
	"github.com/yndnr/aci-go/internal/infra/confloader"
	"github.com/yndnr/aci-go/internal/infra/shutdown"
	"github.com/yndnr/aci-go/internal/server/config"
	"github.com/yndnr/aci-go/internal/server/httpserver"
	"github.com/yndnr/aci-go/internal/server/wsserver"
	"github.com/yndnr/aci-go/internal/storage"
	"github.com/yndnr/aci-go/internal/storage/disk"
	"github.com/yndnr/aci-go/internal/telemetry/logger"
	"github.com/yndnr/aci-go/internal/telemetry/metric"
	"github.com/yndnr/aci-go/pkg/crypto/adaptive"
	"github.com/yndnr/aci-go/pkg/idtoken"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		listenAddr  = flag.String("listen", "", "Listen address (overrides config)")
		rootDir     = flag.String("root", "", "Storage root (overrides config)")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("aci-server " + buildinfo.String())
		return nil
	}

	overrides := map[string]any{}
	if *listenAddr != "" {
		overrides["server.listen_addr"] = *listenAddr
	}
	if *rootDir != "" {
		overrides["storage.root_dir"] = *rootDir
	}
	loader := confloader.NewLoader(
		confloader.WithConfigFile(*configFile),
		confloader.WithOverrides(overrides),
	)
	cfg, err := loadConfig(loader)
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	slog.SetDefault(log)
	log.Info("starting aci-server",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"config", *configFile)

	metrics := metric.NewRegistry()

	engine, err := initStorage(cfg, metrics, log)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	ctx := context.Background()
	bs, err := engine.LoadBootstrap(ctx)
	switch {
	case err != nil:
		log.Warn("config database unavailable, starting with no databases", "error", err)
	default:
		if bs.ListenAddr != "" && *listenAddr == "" {
			cfg.Server.ListenAddr = bs.ListenAddr
		}
		log.Info("bootstrap loaded",
			"root", engine.Root(),
			"listen_addr", cfg.Server.ListenAddr,
			"databases", bs.Loaded)
	}

	if err := metrics.Register(metric.NewCollector(engine)); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	auth, err := initAuth(cfg, engine, log)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	ws := wsserver.New(&wsserver.Config{
		IdleTimeout:     cfg.Server.IdleTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		MaxMessageBytes: cfg.Server.MaxMessageBytes,
		RateLimit:       cfg.Server.RateLimit,
		RateBurst:       cfg.Server.RateBurst,
		OriginPatterns:  cfg.Server.OriginPatterns,
	}, engine, auth, wsserver.WithLogger(log), wsserver.WithMetrics(metrics))

	routes := &httpserver.RouterConfig{
		WebSocket:      ws,
		WSPath:         cfg.Server.WSPath,
		Databases:      engine,
		Sessions:       ws,
		AdminAllowList: cfg.Server.AdminAllowList,
		Logger:         log,
	}
	if cfg.Metrics.Enabled {
		routes.Metrics = metrics.Handler()
		routes.MetricsPath = cfg.Metrics.Path
	}
	httpServer := httpserver.New(httpserver.Config{
		Addr:        cfg.Server.ListenAddr,
		TLSCertFile: cfg.Server.TLSCertFile,
		TLSKeyFile:  cfg.Server.TLSKeyFile,
	}, httpserver.NewRouter(routes), log)

	ln, err := httpServer.Listen()
	if err != nil {
		return err
	}

	shutdownHandler := shutdown.NewHandler(cfg.Server.ShutdownTimeout, log)
	registerShutdown(shutdownHandler, httpServer, ws)

	if *configFile != "" {
		watcher, err := watchConfig(loader, *configFile, log)
		if err != nil {
			log.Warn("config watcher disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config-watcher", func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening",
			"addr", ln.Addr().String(),
			"ws_path", cfg.Server.WSPath,
			"tls", httpServer.TLS())
		serveErr <- httpServer.Serve(ln)
	}()

	waitCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	go func() {
		if err := <-serveErr; err != nil {
			log.Error("http server failed", "error", err)
			cancel(err)
		}
	}()

	if err := shutdownHandler.Wait(waitCtx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	if cause := context.Cause(waitCtx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	log.Info("server stopped gracefully")
	return nil
}

// registerShutdown closes sessions first, then the listener. Databases are
// not flushed: sets are already written through, and anything else reaches
// disk only through an explicit write_to_disk.
func registerShutdown(h *shutdown.Handler, httpServer *httpserver.Server, ws *wsserver.Server) {
	h.OnShutdown("http", httpServer.Shutdown)
	h.OnShutdown("websocket", ws.Shutdown)
}

// loadConfig loads and validates the process configuration.
func loadConfig(loader *confloader.Loader) (*config.ServerConfig, error) {
	cfg := config.Default()
	if err := loader.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func initStorage(cfg *config.ServerConfig, metrics *metric.Registry, log *slog.Logger) (*storage.Engine, error) {
	cipher, err := disk.LoadCipher(cfg.Storage.RootDir, cfg.Security.EncryptionKey, adaptive.CipherType(cfg.Security.Cipher))
	if err != nil {
		return nil, fmt.Errorf("load cipher: %w", err)
	}
	if cipher != nil {
		log.Info("at-rest encryption enabled", "cipher", cipher.Type())
	}

	storageCfg := storage.DefaultConfig(cfg.Storage.RootDir)
	storageCfg.Cipher = cipher
	storageCfg.ShardCount = cfg.Storage.ShardCount
	storageCfg.Observer = metrics
	storageCfg.Logger = log
	return storage.New(storageCfg)
}

func initAuth(cfg *config.ServerConfig, engine *storage.Engine, log *slog.Logger) (*service.AuthService, error) {
	fed := cfg.Auth.Federated
	var verifier service.FederatedVerifier
	if fed.PublicKey != "" {
		pub, err := idtoken.ParsePublicKey(fed.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("auth.federated.public_key: %w", err)
		}
		verifier = idtoken.NewVerifier(pub)
		log.Info("federated auth enabled", "issuers", fed.Issuers, "allowed_orgs", fed.AllowedOrgs)
	}
	return service.NewAuthService(engine, verifier, &service.AuthConfig{
		Issuers:              fed.Issuers,
		AllowedOrganizations: fed.AllowedOrgs,
		Logger:               log,
	}), nil
}

// watchConfig reloads the file on change and applies log.level. Other
// settings need a restart.
func watchConfig(loader *confloader.Loader, path string, log *slog.Logger) (*confloader.Watcher, error) {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(path); err != nil {
		watcher.Stop()
		return nil, err
	}
	watcher.OnChange(func(string) {
		cfg, err := loadConfig(loader)
		if err != nil {
			log.Warn("config reload rejected", "error", err)
			return
		}
		logger.SetLevel(cfg.Log.Level)
		log.Info("config reloaded", "log_level", cfg.Log.Level)
	})
	watcher.StartAsync()
	return watcher, nil
}
