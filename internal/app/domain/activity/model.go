// Package activity defines play-session records used for playtime
// analytics.
package activity

import "time"

// PlaySession records that a user played an application for Length seconds
// on a given date.
type PlaySession struct {
	ID            string
	UserID        string
	ApplicationID string
	Date          time.Time
	Length        int
}
