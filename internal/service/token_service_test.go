package service

import (
	"io"
	"testing"
	"time"

	"github.com/glowlabs/glowlabs/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{
		AccessSecret:    "test-access-secret-0123456789abcdef",
		RefreshSecret:   "test-refresh-secret-0123456789abcde",
		DisplaySecret:   "test-display-secret-0123456789abcde",
		AccessExpiry:    15 * time.Minute,
		RefreshExpiry:   7 * 24 * time.Hour,
		DisplayExpiry:   7 * 24 * time.Hour,
		SocialExpiry:    60 * 24 * time.Hour,
		BootstrapExpiry: 15 * time.Minute,
	}
}

func newTestTokens(t *testing.T) *TokenService {
	t.Helper()
	tokens, err := NewTokenService(testJWTConfig(), testLogger())
	require.NoError(t, err)
	return tokens
}

func TestNewTokenServiceRejectsShortSecret(t *testing.T) {
	cfg := testJWTConfig()
	cfg.RefreshSecret = "too-short"

	_, err := NewTokenService(cfg, testLogger())
	assert.Error(t, err)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tokens := newTestTokens(t)

	signed, err := tokens.MintAccess(AccessClaims{
		PrincipalID: "client-1",
		Email:       "jane@example.com",
		PhoneNumber: "+15551234567",
		FirstName:   "Jane",
		LastName:    "Doe",
	}, time.Minute)
	require.NoError(t, err)

	claims, err := tokens.VerifyAccess(signed)
	require.NoError(t, err)
	assert.Equal(t, "client-1", claims.PrincipalID)
	assert.Equal(t, "jane@example.com", claims.Email)
	assert.Equal(t, "+15551234567", claims.PhoneNumber)
}

func TestRefreshTokenCarriesTokenCount(t *testing.T) {
	tokens := newTestTokens(t)

	signed, err := tokens.MintRefresh("client-1", 3, time.Minute)
	require.NoError(t, err)

	claims, err := tokens.VerifyRefresh(signed)
	require.NoError(t, err)
	assert.Equal(t, "client-1", claims.PrincipalID)
	assert.Equal(t, 3, claims.TokenCount)
}

func TestDisplayTokenAlwaysMarksAuth(t *testing.T) {
	tokens := newTestTokens(t)

	signed, err := tokens.MintDisplay(DisplayClaims{
		PrincipalID: "client-1",
		Picture:     "https://example.com/pic.jpg",
		Auth:        false,
	}, time.Minute)
	require.NoError(t, err)

	claims, err := tokens.VerifyDisplay(signed)
	require.NoError(t, err)
	assert.True(t, claims.Auth)
	assert.Equal(t, "https://example.com/pic.jpg", claims.Picture)
}

func TestTokenClassesDoNotCross(t *testing.T) {
	tokens := newTestTokens(t)

	access, err := tokens.MintAccess(AccessClaims{PrincipalID: "client-1"}, time.Minute)
	require.NoError(t, err)
	refresh, err := tokens.MintRefresh("client-1", 0, time.Minute)
	require.NoError(t, err)

	_, err = tokens.VerifyRefresh(access)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = tokens.VerifyAccess(refresh)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = tokens.VerifyDisplay(access)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestExpiredTokenIsInvalid(t *testing.T) {
	tokens := newTestTokens(t)

	signed, err := tokens.MintAccess(AccessClaims{PrincipalID: "client-1"}, -time.Minute)
	require.NoError(t, err)

	_, err = tokens.VerifyAccess(signed)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestGarbageTokenIsInvalid(t *testing.T) {
	tokens := newTestTokens(t)

	_, err := tokens.VerifyAccess("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
