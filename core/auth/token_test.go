package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars-long"

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService() (*TokenService, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewTokenService(testSecret, 6*time.Hour, 14*24*time.Hour).WithClock(clock.Now)
	return svc, clock
}

func TestIssuePairRoundTrip(t *testing.T) {
	svc, _ := newTestService()

	pair, err := svc.IssuePair(42)
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)

	access, err := svc.Parse(pair.Access, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), access.UserID)
	assert.Equal(t, AccessToken, access.TokenType)
	assert.NotEmpty(t, access.ID)

	refresh, err := svc.Parse(pair.Refresh, RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), refresh.UserID)
	assert.NotEqual(t, access.ID, refresh.ID)
}

func TestParseRejectsWrongType(t *testing.T) {
	svc, _ := newTestService()
	pair, err := svc.IssuePair(1)
	require.NoError(t, err)

	_, err = svc.Parse(pair.Refresh, AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Parse(pair.Access, RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessTokenExpiresAfterLifetime(t *testing.T) {
	svc, clock := newTestService()
	pair, err := svc.IssuePair(1)
	require.NoError(t, err)

	clock.Advance(6*time.Hour - time.Second)
	_, err = svc.Parse(pair.Access, AccessToken)
	assert.NoError(t, err)

	clock.Advance(2 * time.Second)
	_, err = svc.Parse(pair.Access, AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshAfterAccessExpiry(t *testing.T) {
	svc, clock := newTestService()
	pair, err := svc.IssuePair(9)
	require.NoError(t, err)

	clock.Advance(13 * 24 * time.Hour)

	claims, err := svc.Parse(pair.Refresh, RefreshToken)
	require.NoError(t, err)

	access, err := svc.IssueAccess(claims.UserID)
	require.NoError(t, err)

	got, err := svc.Parse(access, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.UserID)

	clock.Advance(2 * 24 * time.Hour)
	_, err = svc.Parse(pair.Refresh, RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsForeignSignature(t *testing.T) {
	svc, _ := newTestService()
	other := NewTokenService("another-secret-key-at-least-32-chars", time.Hour, time.Hour)

	token, err := other.IssueAccess(1)
	require.NoError(t, err)

	_, err = svc.Parse(token, AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsUnsignedToken(t *testing.T) {
	svc, clock := newTestService()
	claims := Claims{
		TokenType: AccessToken,
		UserID:    1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Parse(token, AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	svc, _ := newTestService()
	for _, token := range []string{"", "abc", "a.b.c"} {
		_, err := svc.Parse(token, AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken, token)
	}
}
