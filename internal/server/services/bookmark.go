package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/bookmarker/internal/dbx"
	"github.com/dmitrijs2005/bookmarker/internal/logging"
	"github.com/dmitrijs2005/bookmarker/internal/server/models"
	"github.com/dmitrijs2005/bookmarker/internal/server/repositories/repomanager"
)

// BookmarkInput carries the fields of a new bookmark.
type BookmarkInput struct {
	URL   string
	Title string
	Notes *string
}

// BookmarkPatch holds the fields a client may change. Nil means leave as is.
type BookmarkPatch struct {
	Archived *bool
	Notes    *string
}

// BookmarkService manages a user's bookmarks. Every method is scoped to the
// owner; a bookmark belonging to someone else is reported as not found.
type BookmarkService struct {
	db          dbx.DBTX
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

func NewBookmarkService(db dbx.DBTX, tx dbx.Transactor, m repomanager.RepositoryManager, logger logging.Logger) *BookmarkService {
	return &BookmarkService{db: db, tx: tx, repomanager: m, logger: logger, now: time.Now}
}

func (s *BookmarkService) Create(ctx context.Context, userID int64, in BookmarkInput) (*models.Bookmark, error) {
	b, err := s.repomanager.Bookmarks(s.db).Create(ctx, &models.Bookmark{
		UserID: userID,
		URL:    in.URL,
		Title:  in.Title,
		Notes:  in.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating bookmark: %w", err)
	}
	logging.FromContext(ctx, s.logger).Debug(ctx, "bookmark created", "bookmark_id", b.ID)
	return b, nil
}

// List returns the user's bookmarks newest first, optionally only archived
// or only active ones.
func (s *BookmarkService) List(ctx context.Context, userID int64, archived *bool) ([]*models.Bookmark, error) {
	return s.repomanager.Bookmarks(s.db).ListByUser(ctx, userID, archived)
}

func (s *BookmarkService) Get(ctx context.Context, userID, id int64) (*models.Bookmark, error) {
	return s.repomanager.Bookmarks(s.db).GetByID(ctx, userID, id)
}

// Update applies patch. Archiving stamps archived_at with the current time
// and unarchiving clears it.
func (s *BookmarkService) Update(ctx context.Context, userID, id int64, patch BookmarkPatch) (*models.Bookmark, error) {
	var out *models.Bookmark
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Bookmarks(tx)

		b, err := repo.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}

		if patch.Archived != nil {
			b.Archived = *patch.Archived
			if b.Archived {
				at := s.now().UTC()
				b.ArchivedAt = &at
			} else {
				b.ArchivedAt = nil
			}
		}
		if patch.Notes != nil {
			b.Notes = patch.Notes
		}

		if err := repo.Update(ctx, b); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BookmarkService) Delete(ctx context.Context, userID, id int64) error {
	return s.repomanager.Bookmarks(s.db).Delete(ctx, userID, id)
}
