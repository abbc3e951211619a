// Package catalog defines the application listings sold by the storefront:
// applications, their versioned builds, time-bounded sales and in-app
// purchases.
package catalog

import (
	"time"

	"github.com/frogworks/storefront/internal/app/domain/money"
)

// Application is a published software product. PackageName is unique
// case-insensitively; Owners is the non-empty set of developer user ids.
type Application struct {
	ID                 string
	Name               string
	PackageName        string
	Type               string
	Description        string
	ReleaseDate        time.Time
	EarlyAccess        bool
	LatestVersion      string
	SupportedPlatforms []string
	Genres             []string
	Tags               []string
	BasePrice          money.Amount
	Owners             []string
}

// OwnedBy reports whether the given user id is in the owner set.
func (a Application) OwnedBy(userID string) bool {
	for _, owner := range a.Owners {
		if owner == userID {
			return true
		}
	}
	return false
}

// Version is a downloadable build of an application, unique per
// (application, name, platform).
type Version struct {
	ID            string
	ApplicationID string
	Name          string
	Platform      string
	ReleaseDate   time.Time
	Filename      string
	Executable    string
}

// Sale is a time-bounded price override. The [StartDate, EndDate] range is
// inclusive on both ends; at most one sale may cover any given date for an
// application.
type Sale struct {
	ID            string
	ApplicationID string
	Title         string
	Description   string
	Price         money.Amount
	StartDate     time.Time
	EndDate       time.Time
}

// Covers reports whether the sale is active on the given date.
func (s Sale) Covers(day time.Time) bool {
	d := DateOnly(day)
	return !d.Before(DateOnly(s.StartDate)) && !d.After(DateOnly(s.EndDate))
}

// Overlaps reports whether two inclusive date ranges intersect.
func (s Sale) Overlaps(start, end time.Time) bool {
	return !DateOnly(start).After(DateOnly(s.EndDate)) && !DateOnly(s.StartDate).After(DateOnly(end))
}

// IAP is a secondary priced item scoped to an application. IAPs have a fixed
// price; the sale mechanism does not apply to them.
type IAP struct {
	ID            string
	ApplicationID string
	Title         string
	Description   string
	Price         money.Amount
	Data          map[string]any
}

// DateOnly truncates a timestamp to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
