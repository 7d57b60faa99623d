package models

import "time"

// Device is one authorized replica holder for a user. (UserID, DeviceID) is
// unique; registration is an upsert, never a duplicate insert.
type Device struct {
	DeviceID     string
	UserID       string
	DisplayName  string
	DeviceType   string
	AuthorizedAt time.Time
	LastSync     time.Time
	Active       bool

	// IsCurrent flags the caller's own device in listings. Not persisted.
	IsCurrent bool `json:"-"`
}
