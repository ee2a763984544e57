package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/bookmarker/internal/common"
	"github.com/dmitrijs2005/bookmarker/internal/server/models"
)

// UserLookup finds a user by username. Implementations return
// common.ErrorNotFound for unknown names.
type UserLookup interface {
	GetUserByLogin(ctx context.Context, userName string) (*models.User, error)
}

// BearerResolver turns an Authorization header into a verified user.
type BearerResolver struct {
	codec *TokenCodec
	users UserLookup
	now   func() time.Time
}

// NewBearerResolver builds a resolver. A nil now uses time.Now.
func NewBearerResolver(codec *TokenCodec, users UserLookup, now func() time.Time) *BearerResolver {
	if now == nil {
		now = time.Now
	}
	return &BearerResolver{codec: codec, users: users, now: now}
}

// ParseBearer extracts the token from a "Bearer <token>" header value. The
// scheme is case-insensitive. Anything else is common.ErrMissingCredential.
func ParseBearer(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", common.ErrMissingCredential
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", common.ErrMissingCredential
	}
	return token, nil
}

// Resolve verifies the bearer token and loads its user. A bad token and a
// token naming an unknown user both give common.ErrInvalidCredential.
// Storage failures are returned as they are.
func (r *BearerResolver) Resolve(ctx context.Context, header string) (*models.User, error) {
	token, err := ParseBearer(header)
	if err != nil {
		return nil, err
	}

	username, err := r.codec.Verify(token, r.now())
	if err != nil {
		return nil, common.ErrInvalidCredential
	}

	user, err := r.users.GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredential
		}
		return nil, err
	}
	return user, nil
}

// ResolveActive is Resolve followed by RequireActive.
func (r *BearerResolver) ResolveActive(ctx context.Context, header string) (*models.User, error) {
	user, err := r.Resolve(ctx, header)
	if err != nil {
		return nil, err
	}
	return RequireActive(user)
}

// RequireActive passes active users through and rejects the rest with
// common.ErrInactiveAccount.
func RequireActive(user *models.User) (*models.User, error) {
	if !user.IsActive {
		return nil, common.ErrInactiveAccount
	}
	return user, nil
}
