package token

import (
	"testing"
	"time"

	domain "catalog/backend/internal/domain/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	m := NewJWTManager("s3cret", time.Hour, "catalog")

	tok, err := m.Generate(&domain.User{ID: "user-1", Role: domain.RoleAdmin})
	require.NoError(t, err)

	subject, err := m.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", subject)
}

func TestValidateRejectsBadTokens(t *testing.T) {
	m := NewJWTManager("s3cret", time.Hour, "catalog")
	tok, err := m.Generate(&domain.User{ID: "user-1"})
	require.NoError(t, err)

	_, err = NewJWTManager("other", time.Hour, "catalog").Validate(tok)
	assert.Error(t, err, "wrong secret")

	_, err = NewJWTManager("s3cret", time.Hour, "someone-else").Validate(tok)
	assert.Error(t, err, "wrong issuer")

	_, err = m.Validate("not-a-token")
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", Issuer: "catalog"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Validate(none)
	assert.Error(t, err, "unsigned tokens are rejected")
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	m := NewJWTManager("s3cret", time.Minute, "catalog")
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }

	tok, err := m.Generate(&domain.User{ID: "user-1"})
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = m.Validate(tok)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestGenerateRequiresSubject(t *testing.T) {
	m := NewJWTManager("s3cret", 0, "")
	_, err := m.Generate(&domain.User{})
	assert.Error(t, err)
	assert.Equal(t, DefaultExpiration, m.expiration)
}
