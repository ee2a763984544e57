// Package admin implements the offline password reset tool.
package admin

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/bookmarker/internal/common"
	"github.com/dmitrijs2005/bookmarker/internal/server/models"
)

// MinPasswordLength is enforced only here; the API accepts any non-empty
// password.
const MinPasswordLength = 6

var (
	ErrEmptyUsername = errors.New("username cannot be empty")
	ErrUserNotFound  = errors.New("user not found")
	ErrCancelled     = errors.New("password reset cancelled")
)

// PasswordResetter is implemented by services.UserService.
type PasswordResetter interface {
	GetUser(ctx context.Context, username string) (*models.User, error)
	ResetPassword(ctx context.Context, username, password string) (int64, error)
}

type ResetTool struct {
	svc PasswordResetter
	in  *bufio.Reader
	out io.Writer
}

func NewResetTool(svc PasswordResetter, in io.Reader, out io.Writer) *ResetTool {
	return &ResetTool{svc: svc, in: bufio.NewReader(in), out: out}
}

// Run walks the operator through one reset: username, new password twice,
// confirmation. On success every refresh token of the user is revoked.
func (t *ResetTool) Run(ctx context.Context) error {
	fmt.Fprintln(t.out, strings.Repeat("=", 50))
	fmt.Fprintln(t.out, "Password Reset Tool")
	fmt.Fprintln(t.out, strings.Repeat("=", 50))
	fmt.Fprintln(t.out)

	username, err := GetSimpleText(t.in, "Enter username: ", t.out)
	if err != nil {
		return err
	}
	if username == "" {
		return ErrEmptyUsername
	}

	user, err := t.svc.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("%w: %q", ErrUserNotFound, username)
		}
		return err
	}

	fmt.Fprintf(t.out, "Found user: %s\n", user.UserName)
	fmt.Fprintf(t.out, "User ID: %d\n", user.ID)
	fmt.Fprintf(t.out, "Created: %s\n", user.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(t.out, "Active: %t\n", user.IsActive)
	fmt.Fprintln(t.out)

	password, err := t.readNewPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	fmt.Fprintln(t.out)
	answer, err := GetSimpleText(t.in, fmt.Sprintf("Reset password for user '%s'? (yes/no): ", username), t.out)
	if err != nil {
		return err
	}
	switch strings.ToLower(answer) {
	case "yes", "y":
	default:
		return ErrCancelled
	}

	revoked, err := t.svc.ResetPassword(ctx, username, string(password))
	if err != nil {
		return err
	}

	fmt.Fprintln(t.out)
	fmt.Fprintln(t.out, "Password successfully reset!")
	fmt.Fprintf(t.out, "Revoked %d active session(s).\n", revoked)
	return nil
}

// readNewPassword loops until a long enough password is entered twice.
func (t *ResetTool) readNewPassword() ([]byte, error) {
	for {
		pw, err := GetPassword("Enter new password: ", t.out)
		if err != nil {
			return nil, err
		}
		if len(pw) < MinPasswordLength {
			common.WipeByteArray(pw)
			fmt.Fprintf(t.out, "Error: Password must be at least %d characters long\n", MinPasswordLength)
			continue
		}

		confirm, err := GetPassword("Confirm new password: ", t.out)
		if err != nil {
			common.WipeByteArray(pw)
			return nil, err
		}
		match := bytes.Equal(pw, confirm)
		common.WipeByteArray(confirm)
		if !match {
			common.WipeByteArray(pw)
			fmt.Fprintln(t.out, "Error: Passwords do not match. Please try again.")
			continue
		}
		return pw, nil
	}
}
