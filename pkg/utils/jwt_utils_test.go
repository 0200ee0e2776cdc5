package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManagerRoundTrip(t *testing.T) {
	tm := NewTokenManager("unit-test-secret", time.Hour)

	token, err := tm.Generate(42, "reader", "Member", 0)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.Validate(token)
	require.NoError(t, err)

	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
	assert.Equal(t, "reader", claims.Username)
	assert.Equal(t, "Member", claims.Role)
	assert.Equal(t, "booknest-backend", claims.Issuer)
}

func TestTokenManagerRejectsWrongSecret(t *testing.T) {
	tm := NewTokenManager("unit-test-secret", time.Hour)
	other := NewTokenManager("different-secret", time.Hour)

	token, err := other.Generate(1, "intruder", "Admin", 0)
	require.NoError(t, err)

	_, err = tm.Validate(token)
	assert.Error(t, err)
}

func TestTokenManagerRejectsExpiredToken(t *testing.T) {
	tm := NewTokenManager("unit-test-secret", time.Hour)

	// An already-expired token, signed with the right secret.
	expired := NewTokenManager("unit-test-secret", -time.Minute)
	token, err := expired.Generate(1, "reader", "Member", 0)
	require.NoError(t, err)

	_, err = tm.Validate(token)
	assert.Error(t, err)
}

func TestTokenManagerRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("unit-test-secret", time.Hour)
	_, err := tm.Validate("not.a.jwt")
	assert.Error(t, err)
}

func TestClaimsUserIDNonNumericSubject(t *testing.T) {
	claims := &Claims{}
	claims.Subject = "not-a-number"
	_, err := claims.UserID()
	assert.Error(t, err)
}
