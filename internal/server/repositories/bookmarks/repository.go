// Package bookmarks provides storage for user bookmarks. Every query is
// scoped by owner so one user can never read or change another's rows.
package bookmarks

import (
	"context"

	"github.com/dmitrijs2005/bookmarker/internal/server/models"
)

type Repository interface {
	// Create inserts b and fills ID, CreatedAt and Archived from the row.
	Create(ctx context.Context, b *models.Bookmark) (*models.Bookmark, error)
	// ListByUser returns the user's bookmarks, newest first. A nil archived
	// returns both archived and active ones.
	ListByUser(ctx context.Context, userID int64, archived *bool) ([]*models.Bookmark, error)
	GetByID(ctx context.Context, userID, id int64) (*models.Bookmark, error)
	// Update persists Notes, Archived and ArchivedAt of b.
	Update(ctx context.Context, b *models.Bookmark) error
	Delete(ctx context.Context, userID, id int64) error
}
