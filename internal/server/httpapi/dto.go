package httpapi

import (
	"time"

	"github.com/dmitrijs2005/bookmarker/internal/server/models"
	"github.com/dmitrijs2005/bookmarker/internal/server/services"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks a registration payload. bcrypt ignores input past 72
// bytes, so longer passwords are refused instead of silently truncated.
func (r credentialsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 72)),
	)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r refreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

type bookmarkCreateRequest struct {
	URL   string  `json:"url"`
	Title string  `json:"title"`
	Notes *string `json:"notes"`
}

func (r bookmarkCreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.URL, validation.Required, validation.Length(1, 2048), is.URL),
		validation.Field(&r.Title, validation.Required, validation.Length(1, 500)),
		validation.Field(&r.Notes, validation.Length(0, 10000)),
	)
}

type bookmarkUpdateRequest struct {
	Archived *bool   `json:"archived"`
	Notes    *string `json:"notes"`
}

func (r bookmarkUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Notes, validation.Length(0, 10000)),
	)
}

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	IsActive  bool      `json:"is_active"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Username: u.UserName, CreatedAt: u.CreatedAt, IsActive: u.IsActive}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func newTokenResponse(p *services.TokenPair) tokenResponse {
	return tokenResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, TokenType: "bearer"}
}

type bookmarkResponse struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	URL        string     `json:"url"`
	Title      string     `json:"title"`
	Notes      *string    `json:"notes"`
	CreatedAt  time.Time  `json:"created_at"`
	Archived   bool       `json:"archived"`
	ArchivedAt *time.Time `json:"archived_at"`
}

func newBookmarkResponse(b *models.Bookmark) bookmarkResponse {
	return bookmarkResponse{
		ID:         b.ID,
		UserID:     b.UserID,
		URL:        b.URL,
		Title:      b.Title,
		Notes:      b.Notes,
		CreatedAt:  b.CreatedAt,
		Archived:   b.Archived,
		ArchivedAt: b.ArchivedAt,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}
