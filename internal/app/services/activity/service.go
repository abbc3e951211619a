// Package activity records play sessions and aggregates playtime.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/frogworks/storefront/internal/app/domain/activity"
	"github.com/frogworks/storefront/internal/app/storage"
	"github.com/frogworks/storefront/pkg/logger"
)

// Store is the persistence surface the activity service needs.
type Store interface {
	storage.CatalogStore
	storage.ActivityStore
}

// Service records play activity.
type Service struct {
	store Store
	log   *logger.Logger
}

// New constructs an activity service.
func New(store Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("activity")
	}
	return &Service{store: store, log: log}
}

// RecordPlaySession stores one finished play session. length is in seconds.
func (s *Service) RecordPlaySession(ctx context.Context, userID, applicationID string, length int, date time.Time) (activity.PlaySession, error) {
	if length <= 0 {
		return activity.PlaySession{}, fmt.Errorf("length must be positive")
	}
	if _, err := s.store.GetApplication(ctx, applicationID); err != nil {
		return activity.PlaySession{}, err
	}
	if date.IsZero() {
		date = time.Now().UTC()
	}

	ps, err := s.store.CreatePlaySession(ctx, activity.PlaySession{
		UserID:        userID,
		ApplicationID: applicationID,
		Date:          date.UTC(),
		Length:        length,
	})
	if err != nil {
		return activity.PlaySession{}, err
	}
	s.log.WithField("user_id", userID).
		WithField("application_id", applicationID).
		WithField("length", length).
		Debugf("play session recorded")
	return ps, nil
}

// PlaySessions lists a user's sessions, optionally for one application.
func (s *Service) PlaySessions(ctx context.Context, userID, applicationID string) ([]activity.PlaySession, error) {
	if applicationID != "" {
		return s.store.ListUserPlaySessionsFor(ctx, userID, applicationID)
	}
	return s.store.ListUserPlaySessions(ctx, userID)
}

// ApplicationPlaySessions lists every user's sessions for one application.
func (s *Service) ApplicationPlaySessions(ctx context.Context, applicationID string) ([]activity.PlaySession, error) {
	if _, err := s.store.GetApplication(ctx, applicationID); err != nil {
		return nil, err
	}
	return s.store.ListApplicationPlaySessions(ctx, applicationID)
}

// Playtime sums a user's recorded seconds in an application.
func (s *Service) Playtime(ctx context.Context, userID, applicationID string) (int, error) {
	sessions, err := s.store.ListUserPlaySessionsFor(ctx, userID, applicationID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, ps := range sessions {
		total += ps.Length
	}
	return total, nil
}
