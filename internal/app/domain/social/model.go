// Package social defines the friend graph and game invites.
package social

import "time"

// FriendRequest is a pending request. UserID is the addressee; only they may
// accept. At most one pending request exists between any ordered pair.
type FriendRequest struct {
	ID         string
	UserID     string
	FromUserID string
	Date       time.Time
}

// Friend is one direction of a symmetric friendship. Accepting a request
// inserts both (A,B) and (B,A) rows sharing one date.
type Friend struct {
	ID          string
	UserID      string
	OtherUserID string
	Date        time.Time
}

// Invite asks a user to join another user inside an application. Details is
// application-defined payload passed through opaquely.
type Invite struct {
	ID            string
	UserID        string
	FromUserID    string
	ApplicationID string
	Details       map[string]any
	Date          time.Time
}
