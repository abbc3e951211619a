// Package catalog manages store listings: applications, their versions,
// sales and in-app purchase definitions.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/frogworks/storefront/internal/app/domain/catalog"
	"github.com/frogworks/storefront/internal/app/domain/money"
	"github.com/frogworks/storefront/internal/app/storage"
	"github.com/frogworks/storefront/pkg/logger"
)

// ErrSaleOverlap reports that a new sale's date range intersects an existing
// sale for the same application.
var ErrSaleOverlap = errors.New("sale dates overlap an existing sale")

// Store is the persistence surface the catalog service needs.
type Store interface {
	storage.CatalogStore
	storage.TxRunner
}

// Service manages the application catalog.
type Service struct {
	store Store
	log   *logger.Logger
}

// New constructs a catalog service.
func New(store Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("catalog")
	}
	return &Service{store: store, log: log}
}

// CreateApplicationParams describes a new listing.
type CreateApplicationParams struct {
	Name               string
	PackageName        string
	Type               string
	Description        string
	ReleaseDate        time.Time
	EarlyAccess        bool
	SupportedPlatforms []string
	Genres             []string
	Tags               []string
	BasePrice          money.Amount
	Owners             []string
}

// CreateApplication registers a new listing. The package name must be unique
// across the catalog.
func (s *Service) CreateApplication(ctx context.Context, p CreateApplicationParams) (catalog.Application, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.PackageName = strings.TrimSpace(p.PackageName)
	p.Type = strings.TrimSpace(p.Type)

	if p.Name == "" {
		return catalog.Application{}, fmt.Errorf("name is required")
	}
	if p.PackageName == "" {
		return catalog.Application{}, fmt.Errorf("package_name is required")
	}
	if p.Type == "" {
		p.Type = "game"
	}
	if p.BasePrice.IsNegative() {
		return catalog.Application{}, fmt.Errorf("price cannot be negative")
	}
	if len(p.Owners) == 0 {
		return catalog.Application{}, fmt.Errorf("at least one owner is required")
	}
	if p.ReleaseDate.IsZero() {
		p.ReleaseDate = time.Now().UTC()
	}

	app := catalog.Application{
		Name:               p.Name,
		PackageName:        p.PackageName,
		Type:               p.Type,
		Description:        p.Description,
		ReleaseDate:        catalog.DateOnly(p.ReleaseDate),
		EarlyAccess:        p.EarlyAccess,
		SupportedPlatforms: p.SupportedPlatforms,
		Genres:             p.Genres,
		Tags:               p.Tags,
		BasePrice:          p.BasePrice,
		Owners:             p.Owners,
	}
	app, err := s.store.CreateApplication(ctx, app)
	if err != nil {
		return catalog.Application{}, err
	}
	s.log.WithField("application_id", app.ID).
		WithField("package", app.PackageName).
		Info("application created")
	return app, nil
}

// GetApplication retrieves a listing by id.
func (s *Service) GetApplication(ctx context.Context, id string) (catalog.Application, error) {
	return s.store.GetApplication(ctx, id)
}

// GetApplicationByPackage retrieves a listing by its package name.
func (s *Service) GetApplicationByPackage(ctx context.Context, packageName string) (catalog.Application, error) {
	return s.store.GetApplicationByPackage(ctx, strings.TrimSpace(packageName))
}

// ListApplications returns every listing.
func (s *Service) ListApplications(ctx context.Context) ([]catalog.Application, error) {
	return s.store.ListApplications(ctx)
}

// AddVersion records a new downloadable build for an application.
func (s *Service) AddVersion(ctx context.Context, applicationID, name, platform, filename, executable string, releaseDate time.Time) (catalog.Version, error) {
	name = strings.TrimSpace(name)
	platform = strings.TrimSpace(platform)
	if name == "" {
		return catalog.Version{}, fmt.Errorf("version name is required")
	}
	if platform == "" {
		return catalog.Version{}, fmt.Errorf("platform is required")
	}
	if _, err := s.store.GetApplication(ctx, applicationID); err != nil {
		return catalog.Version{}, err
	}
	if _, err := s.store.GetVersionByName(ctx, applicationID, name, platform); err == nil {
		return catalog.Version{}, fmt.Errorf("version %s already exists for platform %s", name, platform)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return catalog.Version{}, err
	}
	if releaseDate.IsZero() {
		releaseDate = time.Now().UTC()
	}

	v := catalog.Version{
		ApplicationID: applicationID,
		Name:          name,
		Platform:      platform,
		ReleaseDate:   releaseDate.UTC(),
		Filename:      filename,
		Executable:    executable,
	}
	v, err := s.store.CreateVersion(ctx, v)
	if err != nil {
		return catalog.Version{}, err
	}
	s.log.WithField("application_id", applicationID).
		WithField("version", name).
		WithField("platform", platform).
		Info("version added")
	return v, nil
}

// SetLatestVersion marks the named version as the application's current one.
func (s *Service) SetLatestVersion(ctx context.Context, applicationID, name string) (catalog.Application, error) {
	app, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return catalog.Application{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return catalog.Application{}, fmt.Errorf("version name is required")
	}
	app.LatestVersion = name
	return s.store.UpdateApplication(ctx, app)
}

// Versions lists an application's builds, optionally restricted to a platform.
func (s *Service) Versions(ctx context.Context, applicationID, platform string) ([]catalog.Version, error) {
	if platform = strings.TrimSpace(platform); platform != "" {
		return s.store.ListVersionsForPlatform(ctx, applicationID, platform)
	}
	return s.store.ListVersions(ctx, applicationID)
}

// GetVersionByName resolves one build by its version name and platform.
func (s *Service) GetVersionByName(ctx context.Context, applicationID, name, platform string) (catalog.Version, error) {
	return s.store.GetVersionByName(ctx, applicationID, strings.TrimSpace(name), strings.TrimSpace(platform))
}

// CreateSale schedules a discount window. At most one sale may cover any
// given day, so the overlap check and the insert run in one transaction.
func (s *Service) CreateSale(ctx context.Context, applicationID, title, description string, price money.Amount, start, end time.Time) (catalog.Sale, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return catalog.Sale{}, fmt.Errorf("title is required")
	}
	if price.IsNegative() {
		return catalog.Sale{}, fmt.Errorf("price cannot be negative")
	}
	start = catalog.DateOnly(start)
	end = catalog.DateOnly(end)
	if end.Before(start) {
		return catalog.Sale{}, fmt.Errorf("end date precedes start date")
	}

	var sale catalog.Sale
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		if _, err := tx.GetApplication(ctx, applicationID); err != nil {
			return err
		}
		existing, err := tx.ListSales(ctx, applicationID)
		if err != nil {
			return err
		}
		for _, other := range existing {
			if other.Overlaps(start, end) {
				return fmt.Errorf("sale %s: %w", other.ID, ErrSaleOverlap)
			}
		}
		sale, err = tx.CreateSale(ctx, catalog.Sale{
			ApplicationID: applicationID,
			Title:         title,
			Description:   description,
			Price:         price,
			StartDate:     start,
			EndDate:       end,
		})
		return err
	})
	if err != nil {
		return catalog.Sale{}, err
	}
	s.log.WithField("application_id", applicationID).
		WithField("sale_id", sale.ID).
		WithField("price", money.Format(price)).
		Info("sale scheduled")
	return sale, nil
}

// DeleteSale removes a scheduled or running sale.
func (s *Service) DeleteSale(ctx context.Context, id string) error {
	return s.store.DeleteSale(ctx, id)
}

// ListSales returns every sale scheduled for an application.
func (s *Service) ListSales(ctx context.Context, applicationID string) ([]catalog.Sale, error) {
	return s.store.ListSales(ctx, applicationID)
}

// ActiveSale returns the sale covering the given instant, if any.
func (s *Service) ActiveSale(ctx context.Context, applicationID string, at time.Time) (catalog.Sale, bool, error) {
	sales, err := s.store.ListSales(ctx, applicationID)
	if err != nil {
		return catalog.Sale{}, false, err
	}
	day := catalog.DateOnly(at)
	for _, sale := range sales {
		if sale.Covers(day) {
			return sale, true, nil
		}
	}
	return catalog.Sale{}, false, nil
}

// EffectivePrice resolves the price charged at the given instant: the sale
// price when a sale covers that day, the base price otherwise.
func (s *Service) EffectivePrice(ctx context.Context, applicationID string, at time.Time) (money.Amount, error) {
	app, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return money.Zero(), err
	}
	sale, ok, err := s.ActiveSale(ctx, applicationID, at)
	if err != nil {
		return money.Zero(), err
	}
	if ok {
		return sale.Price, nil
	}
	return app.BasePrice, nil
}

// CreateIAP registers an in-app purchase definition for an application.
func (s *Service) CreateIAP(ctx context.Context, applicationID, title, description string, price money.Amount, data map[string]any) (catalog.IAP, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return catalog.IAP{}, fmt.Errorf("title is required")
	}
	if price.IsNegative() {
		return catalog.IAP{}, fmt.Errorf("price cannot be negative")
	}
	if _, err := s.store.GetApplication(ctx, applicationID); err != nil {
		return catalog.IAP{}, err
	}

	iap, err := s.store.CreateIAP(ctx, catalog.IAP{
		ApplicationID: applicationID,
		Title:         title,
		Description:   description,
		Price:         price,
		Data:          data,
	})
	if err != nil {
		return catalog.IAP{}, err
	}
	s.log.WithField("application_id", applicationID).
		WithField("iap_id", iap.ID).
		Info("iap created")
	return iap, nil
}

// GetIAP retrieves one in-app purchase definition.
func (s *Service) GetIAP(ctx context.Context, id string) (catalog.IAP, error) {
	return s.store.GetIAP(ctx, id)
}

// ListIAPs returns an application's in-app purchase definitions.
func (s *Service) ListIAPs(ctx context.Context, applicationID string) ([]catalog.IAP, error) {
	return s.store.ListIAPs(ctx, applicationID)
}
