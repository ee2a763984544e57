package models

import "time"

// RefreshToken is one issued refresh credential. Rotation revokes the row and
// inserts a new one; Revoked never goes back to false.
type RefreshToken struct {
	ID        int64
	UserID    int64
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
	Revoked   bool
}

// ExpiredAt reports whether the token is no longer usable at now. A token
// whose expiry equals now is expired.
func (t *RefreshToken) ExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
