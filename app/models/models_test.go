package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserHashesPassword(t *testing.T) {
	u, err := CreateUser("  Owner@Hotel.COM ", "abcdef")
	require.NoError(t, err)

	assert.Equal(t, "owner@hotel.com", u.Email)
	assert.NotEqual(t, "abcdef", u.Password)
	assert.True(t, u.CheckPassword("abcdef"))
	assert.False(t, u.CheckPassword("abcdeg"))
	assert.True(t, u.IsActive())
}

func TestCreateUserRejectsInvalidEmail(t *testing.T) {
	_, err := CreateUser("not-an-email", "abcdef")
	assert.Error(t, err)
}

func TestUserBeforeCreateAssignsID(t *testing.T) {
	u := &User{}
	require.NoError(t, u.BeforeCreate(nil))
	assert.Len(t, u.ID, 36)

	fixed := &User{ID: "keep-me"}
	require.NoError(t, fixed.BeforeCreate(nil))
	assert.Equal(t, "keep-me", fixed.ID)
}

func TestProfileFullName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", (&Profile{FirstName: "Ada", LastName: "Lovelace"}).FullName())
	assert.Equal(t, "Ada", (&Profile{FirstName: "Ada"}).FullName())
	assert.Equal(t, "Lovelace", (&Profile{LastName: "Lovelace"}).FullName())
}

func TestBillingDetailsIsEntitled(t *testing.T) {
	for _, status := range []string{BillingStatusActive, BillingStatusTrialing, BillingStatusPastDue} {
		assert.True(t, (&BillingDetails{SubscriptionStatus: status}).IsEntitled(), status)
	}
	for _, status := range []string{BillingStatusCanceled, BillingStatusIncomplete, BillingStatusUnpaid, BillingStatusPaused} {
		assert.False(t, (&BillingDetails{SubscriptionStatus: status}).IsEntitled(), status)
	}
}

func TestInvitationTokenAndExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	inv := &Invitation{}
	require.NoError(t, inv.GenerateToken(now))

	assert.Len(t, inv.Token, 48)
	assert.Equal(t, now.Add(InvitationTTL), inv.ExpiresAt)
	assert.False(t, inv.IsExpired(now.Add(InvitationTTL)))
	assert.True(t, inv.IsExpired(now.Add(InvitationTTL+time.Second)))
}
