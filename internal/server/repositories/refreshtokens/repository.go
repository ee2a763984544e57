// Package refreshtokens declares the server-side repository contract for
// refresh tokens and its PostgreSQL implementation. It is the only code that
// writes refresh token rows.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/bookmarker/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking refresh tokens.
type Repository interface {
	// Create stores a new unrevoked refresh token for userID.
	Create(ctx context.Context, userID int64, token string, expiresAt time.Time) error

	// FindActiveByToken looks up an unrevoked row by exact token match.
	// Revoked and unknown tokens both yield common.ErrorNotFound. Expiry is
	// left to the caller.
	FindActiveByToken(ctx context.Context, token string) (*models.RefreshToken, error)

	// FindByTokenAndUser returns the row for token only if it belongs to
	// userID, revoked or not.
	FindByTokenAndUser(ctx context.Context, token string, userID int64) (*models.RefreshToken, error)

	// Revoke flips an unrevoked row to revoked. If the row is already
	// revoked (or absent) nothing changes and common.ErrorNotFound is
	// returned, which lets callers detect a lost rotation race.
	Revoke(ctx context.Context, id int64) error

	// RevokeAllForUser revokes every active token of userID and reports how
	// many rows changed.
	RevokeAllForUser(ctx context.Context, userID int64) (int64, error)
}
