package bookmarks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bookmarker/internal/common"
	"github.com/dmitrijs2005/bookmarker/internal/dbx"
	"github.com/dmitrijs2005/bookmarker/internal/server/models"
)

// PostgresRepository implements bookmark storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, b *models.Bookmark) (*models.Bookmark, error) {
	query := `
		INSERT INTO bookmarks (user_id, url, title, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, archived
	`
	err := r.db.QueryRowContext(ctx, query, b.UserID, b.URL, b.Title, b.Notes).
		Scan(&b.ID, &b.CreatedAt, &b.Archived)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64, archived *bool) ([]*models.Bookmark, error) {
	query := `
		SELECT id, user_id, url, title, notes, created_at, archived, archived_at
		FROM bookmarks
		WHERE user_id = $1 AND ($2::boolean IS NULL OR archived = $2)
		ORDER BY created_at DESC, id DESC
	`
	filter := sql.NullBool{}
	if archived != nil {
		filter = sql.NullBool{Bool: *archived, Valid: true}
	}

	rows, err := r.db.QueryContext(ctx, query, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to select bookmarks: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Bookmark, 0)
	for rows.Next() {
		var item models.Bookmark
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.URL, &item.Title, &item.Notes,
			&item.CreatedAt, &item.Archived, &item.ArchivedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, userID, id int64) (*models.Bookmark, error) {
	query := `
		SELECT id, user_id, url, title, notes, created_at, archived, archived_at
		FROM bookmarks
		WHERE id = $1 AND user_id = $2
	`
	var item models.Bookmark
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&item.ID, &item.UserID, &item.URL, &item.Title, &item.Notes,
		&item.CreatedAt, &item.Archived, &item.ArchivedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &item, nil
}

func (r *PostgresRepository) Update(ctx context.Context, b *models.Bookmark) error {
	query := `
		UPDATE bookmarks SET notes = $1, archived = $2, archived_at = $3
		WHERE id = $4 AND user_id = $5
	`
	res, err := r.db.ExecContext(ctx, query, b.Notes, b.Archived, b.ArchivedAt, b.ID, b.UserID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id int64) error {
	query := `
		DELETE FROM bookmarks
		WHERE id = $1 AND user_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
