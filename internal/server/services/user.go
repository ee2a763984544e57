// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, and issuing/rotating access
// tokens plus server-stored refresh tokens.
package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/bookmarker/internal/common"
	"github.com/dmitrijs2005/bookmarker/internal/dbx"
	"github.com/dmitrijs2005/bookmarker/internal/logging"
	"github.com/dmitrijs2005/bookmarker/internal/server/auth"
	"github.com/dmitrijs2005/bookmarker/internal/server/config"
	"github.com/dmitrijs2005/bookmarker/internal/server/models"
	"github.com/dmitrijs2005/bookmarker/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/bookmarker/internal/server/repositories/repomanager"
)

// refreshTokenBytes is the entropy of a refresh token before base64url
// encoding (43 characters).
const refreshTokenBytes = 32

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// UserService provides authentication-related operations:
//   - Register: create users
//   - Login: verify credentials and mint tokens
//   - Refresh: rotate refresh tokens and mint new access tokens
//   - Logout: revoke a refresh token
//   - ResetPassword: replace a password and revoke every session
type UserService struct {
	db          dbx.DBTX
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	hasher      auth.PasswordHasher
	codec       *auth.TokenCodec
	logger      logging.Logger
	now         func() time.Time

	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration

	dummyOnce   sync.Once
	dummyDigest string
}

type UserServiceOption func(*UserService)

// WithUserClock replaces time.Now, mostly for tests around expiry.
func WithUserClock(now func() time.Time) UserServiceOption {
	return func(s *UserService) { s.now = now }
}

// NewUserService constructs a UserService. db is used for single statements,
// tx for the refresh rotation and password reset units.
func NewUserService(
	db dbx.DBTX,
	tx dbx.Transactor,
	m repomanager.RepositoryManager,
	hasher auth.PasswordHasher,
	codec *auth.TokenCodec,
	cfg *config.Config,
	logger logging.Logger,
	opts ...UserServiceOption,
) *UserService {
	s := &UserService{
		db:                           db,
		tx:                           tx,
		repomanager:                  m,
		hasher:                       hasher,
		codec:                        codec,
		logger:                       logger,
		now:                          time.Now,
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *UserService) log(ctx context.Context) logging.Logger {
	return logging.FromContext(ctx, s.logger)
}

// Register creates a new active user. A taken username yields
// common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	_, err := repo.GetUserByLogin(ctx, username)
	if err == nil {
		return nil, common.ErrorAlreadyExists
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	u, err := repo.Create(ctx, &models.User{UserName: username, PasswordHash: digest})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.log(ctx).Info(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// GetUser returns the user named username.
func (s *UserService) GetUser(ctx context.Context, username string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetUserByLogin(ctx, username)
}

// Login verifies the password and, for an active account, issues a new
// session. Unknown users and wrong passwords are indistinguishable.
func (s *UserService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// keep the timing of a real comparison
			s.hasher.Verify(password, s.dummyHash())
			s.log(ctx).Warn(ctx, "login failed", "reason", "unknown user")
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.log(ctx).Warn(ctx, "login failed", "reason", "bad password", "user_id", user.ID)
		return nil, common.ErrInvalidCredentials
	}
	if !user.IsActive {
		s.log(ctx).Warn(ctx, "login refused", "reason", "inactive", "user_id", user.ID)
		return nil, common.ErrInactiveAccount
	}

	return s.issue(ctx, s.repomanager.RefreshTokens(s.db), user, s.now())
}

// Refresh rotates presented: the old token is revoked and a new pair is
// issued in one transaction. Of several concurrent calls with the same token
// at most one succeeds.
func (s *UserService) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	if presented == "" {
		return nil, common.ErrInvalidOrExpiredToken
	}
	now := s.now()

	var pair *TokenPair
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		tokens := s.repomanager.RefreshTokens(tx)

		rt, err := tokens.FindActiveByToken(ctx, presented)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				s.log(ctx).Warn(ctx, "unknown or revoked refresh token presented")
				return common.ErrInvalidOrExpiredToken
			}
			return fmt.Errorf("error searching refresh token: %w", err)
		}
		if rt.ExpiredAt(now) {
			return common.ErrInvalidOrExpiredToken
		}

		user, err := s.repomanager.Users(tx).GetUserByID(ctx, rt.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidOrExpiredToken
			}
			return fmt.Errorf("error searching user: %w", err)
		}
		if !user.IsActive {
			return common.ErrInactiveAccount
		}

		if err := tokens.Revoke(ctx, rt.ID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				s.log(ctx).Warn(ctx, "refresh token rotated concurrently", "user_id", user.ID)
				return common.ErrInvalidOrExpiredToken
			}
			return fmt.Errorf("error revoking refresh token: %w", err)
		}

		pair, err = s.issue(ctx, tokens, user, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log(ctx).Debug(ctx, "refresh token rotated")
	return pair, nil
}

// Logout revokes presented if it belongs to user. Unknown, foreign and
// already revoked tokens are ignored; only storage failures are returned.
func (s *UserService) Logout(ctx context.Context, presented string, user *models.User) error {
	tokens := s.repomanager.RefreshTokens(s.db)

	rt, err := tokens.FindByTokenAndUser(ctx, presented, user.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return fmt.Errorf("error searching refresh token: %w", err)
	}
	if rt.Revoked {
		return nil
	}

	if err := tokens.Revoke(ctx, rt.ID); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("error revoking refresh token: %w", err)
	}
	return nil
}

// ResetPassword stores a new password for username and revokes all of the
// user's refresh tokens, returning how many were revoked.
func (s *UserService) ResetPassword(ctx context.Context, username, password string) (int64, error) {
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return 0, fmt.Errorf("error hashing password: %w", err)
	}

	var revoked int64
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.repomanager.Users(tx).GetUserByLogin(ctx, username)
		if err != nil {
			return err
		}
		if err := s.repomanager.Users(tx).UpdatePassword(ctx, user.ID, digest); err != nil {
			return err
		}
		revoked, err = s.repomanager.RefreshTokens(tx).RevokeAllForUser(ctx, user.ID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return revoked, nil
}

func (s *UserService) issue(ctx context.Context, tokens refreshtokens.Repository, user *models.User, now time.Time) (*TokenPair, error) {
	refresh, err := common.MakeRandURLSafeString(refreshTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("error generating refresh token: %w", err)
	}
	refreshExp := now.Add(s.refreshTokenValidityDuration)
	if err := tokens.Create(ctx, user.ID, refresh, refreshExp); err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}

	access, accessExp, err := s.codec.Issue(user.UserName, now, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("error signing access token: %w", err)
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// dummyHash is a digest no password matches, computed once with the
// configured cost.
func (s *UserService) dummyHash() string {
	s.dummyOnce.Do(func() {
		d, err := s.hasher.Hash(hex.EncodeToString(common.GenerateRandByteArray(16)))
		if err == nil {
			s.dummyDigest = d
		}
	})
	return s.dummyDigest
}
