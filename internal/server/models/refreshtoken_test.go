package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefreshToken_ExpiredAt_Boundary(t *testing.T) {
	exp := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rt := &RefreshToken{ExpiresAt: exp}

	assert.False(t, rt.ExpiredAt(exp.Add(-time.Nanosecond)), "just before expiry")
	assert.True(t, rt.ExpiredAt(exp), "exactly at expiry")
	assert.True(t, rt.ExpiredAt(exp.Add(time.Nanosecond)), "just after expiry")
}
