// Package wevote assembles the We Vote server: configuration, storage, the
// domain services, the batch worker and the HTTP surface.
//
//	app, err := wevote.New(wevote.WithVersion(version))
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// internal/* never imports this package.
package wevote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wevote/wevoteserver/internal/auth"
	"github.com/wevote/wevoteserver/internal/authz"
	"github.com/wevote/wevoteserver/internal/batch"
	"github.com/wevote/wevoteserver/internal/civic"
	"github.com/wevote/wevoteserver/internal/config"
	"github.com/wevote/wevoteserver/internal/mcp"
	"github.com/wevote/wevoteserver/internal/ratelimit"
	"github.com/wevote/wevoteserver/internal/server"
	"github.com/wevote/wevoteserver/internal/service/pollinglocations"
	"github.com/wevote/wevoteserver/internal/service/positions"
	"github.com/wevote/wevoteserver/internal/service/representatives"
	"github.com/wevote/wevoteserver/internal/service/voterguides"
	"github.com/wevote/wevoteserver/internal/storage"
	"github.com/wevote/wevoteserver/internal/telemetry"
	"github.com/wevote/wevoteserver/migrations"
)

// App is the server lifecycle. Construct with New, run with Run.
type App struct {
	cfg          config.Config
	db           *storage.DB
	srv          *server.Server
	worker       *batch.Worker // nil when WEVOTE_BATCH_ENABLED is false
	keyCache     *authz.KeyCache
	limiter      *ratelimit.MemoryLimiter // nil when rate limiting is off
	otelShutdown telemetry.Shutdown
	logger       *slog.Logger
	version      string
}

// New loads configuration, connects to Postgres, applies migrations and wires
// every subsystem. It starts no goroutines and accepts no connections; call Run.
func New(opts ...Option) (*App, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	// Load .env if present; production won't have one.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.databaseURL != "" {
		cfg.DatabaseURL = o.databaseURL
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel(cfg.LogLevel),
		}))
	}
	logger.Info("wevote starting", "version", version, "port", cfg.Port)

	bg := context.Background()
	otelShutdown, err := telemetry.Init(bg, telemetry.Settings{
		Endpoint:    cfg.OTELEndpoint,
		ServiceName: cfg.ServiceName,
		Version:     version,
		Insecure:    cfg.OTELInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	db, err := storage.New(bg, cfg.DatabaseURL, cfg.WeVoteIDPrefix, logger)
	if err != nil {
		_ = otelShutdown(bg)
		return nil, fmt.Errorf("storage: %w", err)
	}
	fail := func(err error) (*App, error) {
		db.Close()
		_ = otelShutdown(bg)
		return nil, err
	}

	if cfg.SkipEmbeddedMigrations {
		logger.Info("embedded migrations skipped by config")
	} else if err := db.RunMigrations(bg, migrations.FS); err != nil {
		return fail(fmt.Errorf("migrations: %w", err))
	}

	jwtMgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTExpiration)
	if err != nil {
		return fail(fmt.Errorf("auth: %w", err))
	}

	scanClient := o.scanClient
	if scanClient == nil {
		scanClient = &http.Client{Timeout: cfg.ScanTimeout}
	}

	positionSvc := positions.New(db, logger)
	voterGuideSvc := voterguides.New(db, positionSvc, scanClient, logger)
	pollingLocationSvc := pollinglocations.New(db, logger)
	civicClient := civic.NewClient(civic.Config{
		APIKey:  cfg.GoogleCivicAPIKey,
		BaseURL: cfg.RepresentativesByAddressURL,
		Timeout: cfg.CivicTimeout,
		RPS:     cfg.CivicRPS,
	})
	representativeSvc := representatives.New(db, civicClient, representatives.Config{
		BatchSize:              cfg.RepresentativesBatch,
		Lease:                  cfg.BatchLease,
		FailedLocationCooldown: cfg.FailedLocationCooldown,
		RefreshInterval:        cfg.RepresentativesRefresh,
	}, logger)

	var worker *batch.Worker
	if cfg.BatchEnabled {
		worker = batch.NewWorker(representativeSvc, logger, cfg.BatchPollInterval)
		logger.Info("batch worker: enabled", "poll_interval", cfg.BatchPollInterval)
	}

	keyCache := authz.NewKeyCache(cfg.APIKeyCacheTTL)
	keyVerifier := authz.NewKeyVerifier(db, keyCache, cfg.BootstrapAPIKey, logger)

	// A typed nil *MemoryLimiter must not reach the server as a non-nil interface.
	var limiter ratelimit.Limiter
	var memLimiter *ratelimit.MemoryLimiter
	if cfg.RateLimitEnabled {
		memLimiter = ratelimit.NewMemoryLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		limiter = memLimiter
	}

	mcpSrv := mcp.New(mcp.Deps{
		Positions:        positionSvc,
		VoterGuides:      voterGuideSvc,
		PollingLocations: pollingLocationSvc,
		Representatives:  representativeSvc,
		Logger:           logger,
		Version:          version,
	})

	srv := server.New(server.ServerConfig{
		Store:               db,
		JWTMgr:              jwtMgr,
		Positions:           positionSvc,
		VoterGuides:         voterGuideSvc,
		PollingLocations:    pollingLocationSvc,
		Representatives:     representativeSvc,
		Logger:              logger,
		KeyVerifier:         keyVerifier,
		Limiter:             limiter,
		MCPServer:           mcpSrv.MCPServer(),
		RequireAPIKey:       cfg.RequireAPIKey,
		TrustProxy:          cfg.TrustProxy,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	return &App{
		cfg:          cfg,
		db:           db,
		srv:          srv,
		worker:       worker,
		keyCache:     keyCache,
		limiter:      memLimiter,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      version,
	}, nil
}

// Run starts the batch worker and the HTTP server, then blocks until ctx is
// cancelled or the server fails. Run calls Shutdown before it returns.
func (a *App) Run(ctx context.Context) error {
	if a.worker != nil {
		a.worker.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		a.logger.Error("http server failed", "error", runErr)
	}

	if err := a.Shutdown(context.Background()); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// Shutdown stops accepting requests and drains those in flight, then lets the
// batch worker finish its current run, then closes the pool and exporters.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("wevote shutting down")

	var errs []error
	httpCtx, httpCancel := contextWithOptionalTimeout(ctx, a.cfg.ShutdownHTTPTimeout)
	if err := a.srv.Shutdown(httpCtx); err != nil {
		a.logger.Error("http shutdown error", "error", err)
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	httpCancel()

	if a.worker != nil {
		workerCtx, workerCancel := contextWithOptionalTimeout(ctx, a.cfg.ShutdownWorkerTimeout)
		a.worker.Drain(workerCtx)
		if workerCtx.Err() != nil {
			a.logger.Warn("batch worker did not stop before the shutdown timeout; its batch process lease will expire",
				"configured_timeout", a.cfg.ShutdownWorkerTimeout,
			)
		}
		workerCancel()
	}

	a.keyCache.Close()
	if a.limiter != nil {
		_ = a.limiter.Close()
	}
	if err := a.otelShutdown(context.Background()); err != nil {
		a.logger.Warn("telemetry shutdown error", "error", err)
	}
	a.db.Close()

	a.logger.Info("wevote stopped")
	return errors.Join(errs...)
}

// Handler returns the root HTTP handler, for embedding behind another server.
func (a *App) Handler() http.Handler {
	return a.srv.Handler()
}

func contextWithOptionalTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
