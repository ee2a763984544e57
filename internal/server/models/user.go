package models

import "time"

// User is an account. UserName is unique, case sensitive and never changes
// after registration. PasswordHash is an opaque bcrypt digest.
type User struct {
	ID           int64
	UserName     string
	PasswordHash string
	CreatedAt    time.Time
	IsActive     bool
}
