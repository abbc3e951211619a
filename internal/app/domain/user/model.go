// Package user defines the account holder of the storefront.
package user

import (
	"time"

	"github.com/frogworks/storefront/internal/app/domain/money"
)

// User represents a storefront account. Identifier is the opaque public id
// handed to clients; ID is the storage key. Username and Email are unique
// case-insensitively. Balance never goes negative.
type User struct {
	ID             string
	Identifier     string
	Username       string
	Name           string
	Email          string
	PasswordHash   string
	Joined         time.Time
	Balance        money.Amount
	ProfilePhotoID string
	Developer      bool
	Administrator  bool
	Verified       bool
}

// HasDeveloperRights reports whether the user may publish applications.
func (u User) HasDeveloperRights() bool {
	return u.Developer || u.Administrator
}

// IsOrAdmin reports whether the user is the given user or an administrator.
func (u User) IsOrAdmin(userID string) bool {
	return u.ID == userID || u.Administrator
}

// EmailVerification is a pending verification code for an email address.
// Requesting a new code replaces any previous one for the same address.
type EmailVerification struct {
	ID    string
	Email string
	Code  int
}
