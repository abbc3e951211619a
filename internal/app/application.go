// Package app wires the domain services to a store, mail sender and file
// store, and manages their lifecycle through the system manager.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/frogworks/storefront/internal/app/services/accounts"
	activitysvc "github.com/frogworks/storefront/internal/app/services/activity"
	"github.com/frogworks/storefront/internal/app/services/auth"
	catalogsvc "github.com/frogworks/storefront/internal/app/services/catalog"
	clouddatasvc "github.com/frogworks/storefront/internal/app/services/clouddata"
	commercesvc "github.com/frogworks/storefront/internal/app/services/commerce"
	photosvc "github.com/frogworks/storefront/internal/app/services/photos"
	socialsvc "github.com/frogworks/storefront/internal/app/services/social"
	"github.com/frogworks/storefront/internal/app/storage"
	"github.com/frogworks/storefront/internal/app/storage/memory"
	"github.com/frogworks/storefront/internal/app/system"
	"github.com/frogworks/storefront/internal/email"
	"github.com/frogworks/storefront/internal/filestore"
	"github.com/frogworks/storefront/pkg/logger"
)

// Options configures the application. Zero values fall back to in-memory
// storage, log-only mail delivery and a files directory under data/.
type Options struct {
	Store storage.Store
	Mail  email.Sender
	Files *filestore.Store

	// SessionMaxIdle closes sessions idle longer than this. Zero keeps the
	// one hour default; negative disables the reaper.
	SessionMaxIdle time.Duration
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Accounts  *accounts.Service
	Auth      *auth.Service
	Catalog   *catalogsvc.Service
	Commerce  *commercesvc.Service
	Social    *socialsvc.Service
	CloudData *clouddatasvc.Service
	Photos    *photosvc.Service
	Activity  *activitysvc.Service
}

// New builds a fully initialised application.
func New(opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if opts.Store == nil {
		opts.Store = memory.New()
	}
	if opts.Files == nil {
		files, err := filestore.New("data/files")
		if err != nil {
			return nil, fmt.Errorf("init file store: %w", err)
		}
		opts.Files = files
	}
	if opts.Mail == nil {
		log.Warn("no mail sender configured; verification codes are logged only")
	}

	manager := system.NewManager()

	accountService := accounts.New(opts.Store, opts.Mail, log)
	authService := auth.New(opts.Store, opts.Mail, log)
	catalogService := catalogsvc.New(opts.Store, log)
	commerceService := commercesvc.New(opts.Store, catalogService, log)
	socialService := socialsvc.New(opts.Store, log)
	cloudDataService := clouddatasvc.New(opts.Store, commerceService, log)
	photoService := photosvc.New(opts.Store, opts.Files, log)
	activityService := activitysvc.New(opts.Store, log)

	for _, name := range []string{"accounts", "auth", "catalog", "commerce"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	if opts.SessionMaxIdle >= 0 {
		reaper := auth.NewReaper(opts.Store, opts.SessionMaxIdle, 0, log)
		if err := manager.Register(reaper); err != nil {
			return nil, fmt.Errorf("register %s: %w", reaper.Name(), err)
		}
	} else {
		log.Warn("session reaper disabled; idle sessions stay open")
	}

	return &Application{
		manager:   manager,
		log:       log,
		Accounts:  accountService,
		Auth:      authService,
		Catalog:   catalogService,
		Commerce:  commerceService,
		Social:    socialService,
		CloudData: cloudDataService,
		Photos:    photoService,
		Activity:  activityService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
