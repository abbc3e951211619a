// Package clouddata manages per-user cloud save slots, one per application.
package clouddata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frogworks/storefront/internal/app/domain/clouddata"
	"github.com/frogworks/storefront/internal/app/storage"
	"github.com/frogworks/storefront/pkg/logger"
)

// ErrNotEntitled reports a save operation against an unowned application.
var ErrNotEntitled = errors.New("application is not owned")

// EntitlementChecker reports whether a user owns an application.
type EntitlementChecker interface {
	Owns(ctx context.Context, userID, applicationID string) (bool, error)
}

// Service manages cloud saves.
type Service struct {
	store        storage.CloudDataStore
	entitlements EntitlementChecker
	log          *logger.Logger
}

// New constructs a cloud data service. entitlements may be nil, in which
// case ownership is not enforced.
func New(store storage.CloudDataStore, entitlements EntitlementChecker, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("clouddata")
	}
	return &Service{store: store, entitlements: entitlements, log: log}
}

// Put replaces the user's save slot for the application.
func (s *Service) Put(ctx context.Context, userID, applicationID string, data map[string]any) (clouddata.Save, error) {
	if data == nil {
		return clouddata.Save{}, fmt.Errorf("save data is required")
	}
	if err := s.checkEntitlement(ctx, userID, applicationID); err != nil {
		return clouddata.Save{}, err
	}

	save, err := s.store.UpsertCloudSave(ctx, clouddata.Save{
		UserID:        userID,
		ApplicationID: applicationID,
		Data:          data,
		Date:          time.Now().UTC(),
	})
	if err != nil {
		return clouddata.Save{}, err
	}
	s.log.WithField("user_id", userID).
		WithField("application_id", applicationID).
		Info("cloud save stored")
	return save, nil
}

// Get returns the user's save slot for the application.
func (s *Service) Get(ctx context.Context, userID, applicationID string) (clouddata.Save, error) {
	if err := s.checkEntitlement(ctx, userID, applicationID); err != nil {
		return clouddata.Save{}, err
	}
	return s.store.GetCloudSave(ctx, userID, applicationID)
}

// Delete removes the user's save slot for the application.
func (s *Service) Delete(ctx context.Context, userID, applicationID string) error {
	return s.store.DeleteCloudSave(ctx, userID, applicationID)
}

// PurgeApplication removes every user's save slot for the application.
// Callers are responsible for checking management rights.
func (s *Service) PurgeApplication(ctx context.Context, applicationID string) error {
	if err := s.store.DeleteApplicationCloudSaves(ctx, applicationID); err != nil {
		return err
	}
	s.log.WithField("application_id", applicationID).Info("cloud saves purged")
	return nil
}

func (s *Service) checkEntitlement(ctx context.Context, userID, applicationID string) error {
	if s.entitlements == nil {
		return nil
	}
	owned, err := s.entitlements.Owns(ctx, userID, applicationID)
	if err != nil {
		return err
	}
	if !owned {
		return fmt.Errorf("application %s: %w", applicationID, ErrNotEntitled)
	}
	return nil
}
