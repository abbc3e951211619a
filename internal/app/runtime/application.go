// Package runtime assembles the configured server process: config, logging,
// storage, services and the HTTP listener.
package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"github.com/frogworks/storefront/internal/app"
	"github.com/frogworks/storefront/internal/app/httpapi"
	"github.com/frogworks/storefront/internal/app/metrics"
	"github.com/frogworks/storefront/internal/app/storage"
	"github.com/frogworks/storefront/internal/app/storage/memory"
	"github.com/frogworks/storefront/internal/app/storage/postgres"
	"github.com/frogworks/storefront/internal/config"
	"github.com/frogworks/storefront/internal/email"
	"github.com/frogworks/storefront/internal/filestore"
	"github.com/frogworks/storefront/pkg/logger"
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	core       *app.Application
	httpServer *http.Server
	limiter    *httpapi.RateLimiter
	db         *sql.DB
}

// NewApplication constructs a fully wired server process from configuration.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewApplicationWithConfig(cfg)
}

// NewApplicationWithConfig wires an application around an already loaded
// configuration.
func NewApplicationWithConfig(cfg *config.Config) (*Application, error) {
	log := logger.New(cfg.Logging)

	store, db, err := buildStore(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("configure store: %w", err)
	}

	files, err := filestore.New(cfg.Files.Root)
	if err != nil {
		return nil, fmt.Errorf("configure file store: %w", err)
	}

	var sender email.Sender
	if cfg.SMTP.Host != "" {
		sender = email.NewSMTP(cfg.SMTP)
	} else {
		log.Warn("smtp not configured; verification codes will only be logged")
	}

	core, err := app.New(app.Options{
		Store:          store,
		Mail:           sender,
		Files:          files,
		SessionMaxIdle: cfg.SessionMaxIdle(),
	}, log)
	if err != nil {
		return nil, fmt.Errorf("build application: %w", err)
	}

	limiter := httpapi.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", limiter.Handler(metrics.InstrumentHandler(httpapi.NewHandler(core, log))))

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Application{
		cfg:        cfg,
		log:        log,
		core:       core,
		httpServer: httpSrv,
		limiter:    limiter,
		db:         db,
	}, nil
}

// Run starts background services and the HTTP server, then blocks until the
// context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.core.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server, background services and the
// database connection.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := a.core.Stop(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("error stopping services")
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}

	return nil
}

func buildStore(cfg *config.Config, log *logger.Logger) (storage.Store, *sql.DB, error) {
	if cfg.Database.DSN == "" {
		log.Warn("database dsn not configured; using in-memory store")
		return memory.New(), nil, nil
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}

	return postgres.New(db), db, nil
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
