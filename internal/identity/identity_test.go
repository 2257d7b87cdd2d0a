package identity_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gigs/internal/identity"
	"gigs/models"
)

var secret = []byte("test-secret")

func requestWithToken(t *testing.T, token string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/gigs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestTokenRoundTrip(t *testing.T) {
	p := identity.New(secret)
	want := models.Actor{ID: 7, Role: models.RoleProvider}

	token, err := p.Token(want, time.Hour)
	require.NoError(t, err)

	got, err := p.Authorize(requestWithToken(t, token))
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestAuthorizeRejectsMissingHeader(t *testing.T) {
	p := identity.New(secret)
	req := httptest.NewRequest(http.MethodGet, "/api/gigs", nil)

	_, err := p.Authorize(req)
	require.ErrorIs(t, err, identity.ErrInvalidToken)
}

func TestAuthorizeRejectsGarbage(t *testing.T) {
	p := identity.New(secret)

	_, err := p.Authorize(requestWithToken(t, "not-a-jwt"))
	require.ErrorIs(t, err, identity.ErrInvalidToken)
}

func TestAuthorizeRejectsWrongSecret(t *testing.T) {
	other := identity.New([]byte("different-secret"))
	token, err := other.Token(models.Actor{ID: 7, Role: models.RoleUser}, time.Hour)
	require.NoError(t, err)

	p := identity.New(secret)
	_, err = p.Authorize(requestWithToken(t, token))
	require.ErrorIs(t, err, identity.ErrInvalidToken)
}

func TestAuthorizeRejectsExpiredToken(t *testing.T) {
	p := identity.New(secret)
	token, err := p.Token(models.Actor{ID: 7, Role: models.RoleUser}, -time.Minute)
	require.NoError(t, err)

	_, err = p.Authorize(requestWithToken(t, token))
	require.ErrorIs(t, err, identity.ErrInvalidToken)
}

func TestAuthorizeRejectsUnknownRole(t *testing.T) {
	p := identity.New(secret)
	token, err := p.Token(models.Actor{ID: 7, Role: "Superuser"}, time.Hour)
	require.NoError(t, err)

	_, err = p.Authorize(requestWithToken(t, token))
	require.ErrorIs(t, err, identity.ErrInvalidToken)
}

func TestAuthorizeRejectsZeroUserID(t *testing.T) {
	p := identity.New(secret)
	token, err := p.Token(models.Actor{ID: 0, Role: models.RoleUser}, time.Hour)
	require.NoError(t, err)

	_, err = p.Authorize(requestWithToken(t, token))
	require.ErrorIs(t, err, identity.ErrInvalidToken)
}
