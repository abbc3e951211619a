// Package session defines the server-issued bearer credential binding a
// client device to a user.
package session

import "time"

// Session is an authenticated client session. Token is opaque and
// unguessable; LastActivity is refreshed on every authenticated call but no
// automatic expiry is enforced by the core.
type Session struct {
	ID           string
	Token        string
	UserID       string
	Hostname     string
	MACAddress   string
	Platform     string
	StartDate    time.Time
	LastActivity time.Time
}
