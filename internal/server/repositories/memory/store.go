// Package memory is an in-process RepositoryManager used when no database DSN
// is configured and in tests. All data lives in maps guarded by one mutex;
// WithinTx holds that mutex for the whole unit and restores a snapshot when
// the unit fails.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/bookmarker/internal/common"
	"github.com/dmitrijs2005/bookmarker/internal/dbx"
	"github.com/dmitrijs2005/bookmarker/internal/server/models"
	"github.com/dmitrijs2005/bookmarker/internal/server/repositories/bookmarks"
	"github.com/dmitrijs2005/bookmarker/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/bookmarker/internal/server/repositories/users"
)

// ErrNoSQL is returned by the DBTX handle the store passes to transactions;
// memory repositories never issue SQL.
var ErrNoSQL = errors.New("memory store does not execute SQL")

type data struct {
	users     map[int64]models.User
	userNames map[string]int64
	tokens    map[int64]models.RefreshToken
	tokenIdx  map[string]int64
	bookmarks map[int64]models.Bookmark
	nextID    int64
}

func newData() data {
	return data{
		users:     map[int64]models.User{},
		userNames: map[string]int64{},
		tokens:    map[int64]models.RefreshToken{},
		tokenIdx:  map[string]int64{},
		bookmarks: map[int64]models.Bookmark{},
	}
}

func (d data) clone() data {
	c := newData()
	c.nextID = d.nextID
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.userNames {
		c.userNames[k] = v
	}
	for k, v := range d.tokens {
		c.tokens[k] = v
	}
	for k, v := range d.tokenIdx {
		c.tokenIdx[k] = v
	}
	for k, v := range d.bookmarks {
		c.bookmarks[k] = cloneBookmark(v)
	}
	return c
}

// Store implements repomanager.RepositoryManager and dbx.Transactor.
type Store struct {
	mu  sync.Mutex
	d   data
	now func() time.Time
}

type Option func(*Store)

// WithClock sets the clock used for created_at columns.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...Option) *Store {
	s := &Store{d: newData(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// txHandle marks repositories created inside WithinTx. They run with the
// store mutex already held.
type txHandle struct{ s *Store }

func (txHandle) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, ErrNoSQL
}

func (txHandle) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, ErrNoSQL
}

// QueryRowContext cannot produce a *sql.Row carrying an error, so it returns nil.
func (txHandle) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

// WithinTx runs fn with exclusive access to the store. If fn returns an
// error or panics every change it made is discarded.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.d.clone()
	defer func() {
		if p := recover(); p != nil {
			s.d = snapshot
			panic(p)
		}
		if err != nil {
			s.d = snapshot
		}
	}()

	if err = ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, txHandle{s: s})
}

func (s *Store) RunMigrations(context.Context, *sql.DB) error { return nil }

func (s *Store) Users(db dbx.DBTX) users.Repository {
	return &userRepo{view: s.view(db)}
}

func (s *Store) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return &tokenRepo{view: s.view(db)}
}

func (s *Store) Bookmarks(db dbx.DBTX) bookmarks.Repository {
	return &bookmarkRepo{view: s.view(db)}
}

func (s *Store) view(db dbx.DBTX) view {
	h, ok := db.(txHandle)
	return view{s: s, inTx: ok && h.s == s}
}

// view runs repository operations either under the store mutex or, inside a
// transaction, directly.
type view struct {
	s    *Store
	inTx bool
}

func (v view) do(ctx context.Context, fn func(d *data) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !v.inTx {
		v.s.mu.Lock()
		defer v.s.mu.Unlock()
	}
	return fn(&v.s.d)
}

func (d *data) id() int64 {
	d.nextID++
	return d.nextID
}

type userRepo struct{ view }

func (r *userRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	err := r.do(ctx, func(d *data) error {
		if _, taken := d.userNames[user.UserName]; taken {
			return common.ErrorAlreadyExists
		}
		user.ID = d.id()
		user.CreatedAt = r.s.now().UTC()
		user.IsActive = true
		d.users[user.ID] = *user
		d.userNames[user.UserName] = user.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	var out *models.User
	err := r.do(ctx, func(d *data) error {
		id, ok := d.userNames[userName]
		if !ok {
			return common.ErrorNotFound
		}
		u := d.users[id]
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var out *models.User
	err := r.do(ctx, func(d *data) error {
		u, ok := d.users[id]
		if !ok {
			return common.ErrorNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.do(ctx, func(d *data) error {
		u, ok := d.users[id]
		if !ok {
			return common.ErrorNotFound
		}
		u.PasswordHash = passwordHash
		d.users[id] = u
		return nil
	})
}

// SetActive flips the active flag of a user. Nothing in the API deactivates
// accounts, so this exists for operators and tests.
func (s *Store) SetActive(id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.d.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.IsActive = active
	s.d.users[id] = u
	return nil
}

type tokenRepo struct{ view }

func (r *tokenRepo) Create(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	return r.do(ctx, func(d *data) error {
		if _, ok := d.users[userID]; !ok {
			return common.ErrorNotFound
		}
		if _, dup := d.tokenIdx[token]; dup {
			return common.ErrorAlreadyExists
		}
		id := d.id()
		d.tokens[id] = models.RefreshToken{
			ID:        id,
			UserID:    userID,
			Token:     token,
			CreatedAt: r.s.now().UTC(),
			ExpiresAt: expiresAt,
		}
		d.tokenIdx[token] = id
		return nil
	})
}

func (r *tokenRepo) FindActiveByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var out *models.RefreshToken
	err := r.do(ctx, func(d *data) error {
		id, ok := d.tokenIdx[token]
		if !ok || d.tokens[id].Revoked {
			return common.ErrorNotFound
		}
		rt := d.tokens[id]
		out = &rt
		return nil
	})
	return out, err
}

func (r *tokenRepo) FindByTokenAndUser(ctx context.Context, token string, userID int64) (*models.RefreshToken, error) {
	var out *models.RefreshToken
	err := r.do(ctx, func(d *data) error {
		id, ok := d.tokenIdx[token]
		if !ok || d.tokens[id].UserID != userID {
			return common.ErrorNotFound
		}
		rt := d.tokens[id]
		out = &rt
		return nil
	})
	return out, err
}

func (r *tokenRepo) Revoke(ctx context.Context, id int64) error {
	return r.do(ctx, func(d *data) error {
		rt, ok := d.tokens[id]
		if !ok || rt.Revoked {
			return common.ErrorNotFound
		}
		rt.Revoked = true
		d.tokens[id] = rt
		return nil
	})
}

func (r *tokenRepo) RevokeAllForUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.do(ctx, func(d *data) error {
		for id, rt := range d.tokens {
			if rt.UserID == userID && !rt.Revoked {
				rt.Revoked = true
				d.tokens[id] = rt
				n++
			}
		}
		return nil
	})
	return n, err
}

type bookmarkRepo struct{ view }

func (r *bookmarkRepo) Create(ctx context.Context, b *models.Bookmark) (*models.Bookmark, error) {
	err := r.do(ctx, func(d *data) error {
		if _, ok := d.users[b.UserID]; !ok {
			return common.ErrorNotFound
		}
		b.ID = d.id()
		b.CreatedAt = r.s.now().UTC()
		b.Archived = false
		b.ArchivedAt = nil
		d.bookmarks[b.ID] = cloneBookmark(*b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *bookmarkRepo) ListByUser(ctx context.Context, userID int64, archived *bool) ([]*models.Bookmark, error) {
	result := make([]*models.Bookmark, 0)
	err := r.do(ctx, func(d *data) error {
		for _, b := range d.bookmarks {
			if b.UserID != userID {
				continue
			}
			if archived != nil && b.Archived != *archived {
				continue
			}
			c := cloneBookmark(b)
			result = append(result, &c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (r *bookmarkRepo) GetByID(ctx context.Context, userID, id int64) (*models.Bookmark, error) {
	var out *models.Bookmark
	err := r.do(ctx, func(d *data) error {
		b, ok := d.bookmarks[id]
		if !ok || b.UserID != userID {
			return common.ErrorNotFound
		}
		c := cloneBookmark(b)
		out = &c
		return nil
	})
	return out, err
}

func (r *bookmarkRepo) Update(ctx context.Context, b *models.Bookmark) error {
	return r.do(ctx, func(d *data) error {
		cur, ok := d.bookmarks[b.ID]
		if !ok || cur.UserID != b.UserID {
			return common.ErrorNotFound
		}
		cur.Notes = b.Notes
		cur.Archived = b.Archived
		cur.ArchivedAt = b.ArchivedAt
		d.bookmarks[b.ID] = cloneBookmark(cur)
		return nil
	})
}

func (r *bookmarkRepo) Delete(ctx context.Context, userID, id int64) error {
	return r.do(ctx, func(d *data) error {
		b, ok := d.bookmarks[id]
		if !ok || b.UserID != userID {
			return common.ErrorNotFound
		}
		delete(d.bookmarks, id)
		return nil
	})
}

func cloneBookmark(b models.Bookmark) models.Bookmark {
	if b.Notes != nil {
		n := *b.Notes
		b.Notes = &n
	}
	if b.ArchivedAt != nil {
		t := *b.ArchivedAt
		b.ArchivedAt = &t
	}
	return b
}
