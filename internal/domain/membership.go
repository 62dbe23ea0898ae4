package domain

import "time"

// Membership is a paid membership granting a multiplier and baseline entries.
// Corresponds to memberships table in PostgreSQL.
type Membership struct {
	Address         string
	Plan            string
	Multiplier      int64 // >= 1
	BaselineEntries int64 // >= 0
	StartsAt        time.Time
	ExpiresAt       *time.Time // nil means no expiry
}

// ActiveAt reports whether the membership is in effect at t.
func (m *Membership) ActiveAt(t time.Time) bool {
	if t.Before(m.StartsAt) {
		return false
	}
	return m.ExpiresAt == nil || t.Before(*m.ExpiresAt)
}
