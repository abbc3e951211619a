// Package clouddata defines per-user cloud save slots.
package clouddata

import "time"

// Save is the single cloud save slot a user holds per application. Writing a
// new save replaces the previous one.
type Save struct {
	ID            string
	UserID        string
	ApplicationID string
	Data          map[string]any
	Date          time.Time
}
