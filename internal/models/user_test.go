package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserFlags(t *testing.T) {
	assert.True(t, User{Status: UserStatusActive}.Active())
	assert.False(t, User{Status: UserStatusSuspended}.Active())

	assert.False(t, User{Role: UserRoleEditor}.IsAdmin())
	assert.True(t, User{Role: UserRoleAdmin}.IsAdmin())
	assert.True(t, User{Role: UserRoleSuperAdmin}.IsAdmin())
}

func TestSessionExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, Session{ExpiresAt: now.Add(time.Minute)}.Expired(now))
	assert.True(t, Session{ExpiresAt: now}.Expired(now))
	assert.True(t, Session{ExpiresAt: now.Add(-time.Second)}.Expired(now))
}
