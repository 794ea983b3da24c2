package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_RoundTrip(t *testing.T) {
	t.Parallel()

	s := NewSigner("secret")
	tenantID, userID := uuid.New(), uuid.New()
	raw, err := s.Sign(&APIClaims{TenantID: tenantID, UserID: userID, Roles: []string{"admin"}}, time.Hour)
	require.NoError(t, err)

	var got APIClaims
	require.NoError(t, s.Parse(raw, &got))
	assert.Equal(t, tenantID, got.TenantID)
	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, []string{"admin"}, got.Roles)
}

func TestSigner_Rejects(t *testing.T) {
	t.Parallel()

	s := NewSigner("secret")
	raw, err := s.Sign(&APIClaims{TenantID: uuid.New()}, time.Minute)
	require.NoError(t, err)

	t.Run("Wrong_Secret", func(t *testing.T) {
		var got APIClaims
		require.ErrorIs(t, NewSigner("other").Parse(raw, &got), ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		late := NewSigner("secret")
		late.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
		var got APIClaims
		require.ErrorIs(t, late.Parse(raw, &got), ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		var got APIClaims
		require.ErrorIs(t, s.Parse("not-a-token", &got), ErrInvalidToken)
	})
}
