package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestCookieSealerRoundTrip(t *testing.T) {
	sealer, err := NewCookieSealer(testSecret)
	require.NoError(t, err)

	sealed, err := sealer.Seal(AccessTokenCookie, "ya29.token")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "ya29")

	again, err := sealer.Seal(AccessTokenCookie, "ya29.token")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again)

	plain, err := sealer.Open(AccessTokenCookie, sealed)
	require.NoError(t, err)
	assert.Equal(t, "ya29.token", plain)
}

func TestCookieSealerRejectsTampering(t *testing.T) {
	sealer, err := NewCookieSealer(testSecret)
	require.NoError(t, err)
	sealed, err := sealer.Seal(AccessTokenCookie, "ya29.token")
	require.NoError(t, err)

	_, err = sealer.Open(RefreshTokenCookie, sealed)
	assert.ErrorIs(t, err, errCookieTampered)

	flipped := []byte(sealed)
	if flipped[0] == 'A' {
		flipped[0] = 'B'
	} else {
		flipped[0] = 'A'
	}
	_, err = sealer.Open(AccessTokenCookie, string(flipped))
	assert.ErrorIs(t, err, errCookieTampered)

	_, err = sealer.Open(AccessTokenCookie, "short")
	assert.ErrorIs(t, err, errCookieTampered)

	_, err = sealer.Open(AccessTokenCookie, "%%%")
	assert.ErrorIs(t, err, errCookieTampered)

	other, err := NewCookieSealer("another-secret-another-secret-xx")
	require.NoError(t, err)
	_, err = other.Open(AccessTokenCookie, sealed)
	assert.ErrorIs(t, err, errCookieTampered)
}

func TestSetTokensMaxAge(t *testing.T) {
	sealer, err := NewCookieSealer(testSecret)
	require.NoError(t, err)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cookies := NewSessionCookies(sealer, true)
	cookies.now = func() time.Time { return now }

	tests := []struct {
		name   string
		token  *oauth2.Token
		maxAge int
		hasRef bool
	}{
		{name: "expiry known", token: &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: now.Add(45 * time.Minute)}, maxAge: 2700, hasRef: true},
		{name: "no expiry", token: &oauth2.Token{AccessToken: "a"}, maxAge: 3600},
		{name: "already expired", token: &oauth2.Token{AccessToken: "a", Expiry: now.Add(-time.Minute)}, maxAge: 3600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			require.NoError(t, cookies.SetTokens(c, tt.token))

			access := findCookie(rec, AccessTokenCookie)
			require.NotNil(t, access)
			assert.Equal(t, tt.maxAge, access.MaxAge)
			assert.True(t, access.Secure)

			refresh := findCookie(rec, RefreshTokenCookie)
			if tt.hasRef {
				require.NotNil(t, refresh)
				assert.Equal(t, refreshTokenMaxAge, refresh.MaxAge)
			} else {
				assert.Nil(t, refresh)
			}
		})
	}
}

func TestTokenFromRequest(t *testing.T) {
	sealer, err := NewCookieSealer(testSecret)
	require.NoError(t, err)
	cookies := NewSessionCookies(sealer, false)

	access, err := sealer.Seal(AccessTokenCookie, "a")
	require.NoError(t, err)
	refresh, err := sealer.Seal(RefreshTokenCookie, "r")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: access})
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: refresh})
	c := echo.New().NewContext(req, httptest.NewRecorder())

	token := cookies.Token(c)
	require.NotNil(t, token)
	assert.Equal(t, "a", token.AccessToken)
	assert.Equal(t, "r", token.RefreshToken)

	// A refresh token alone does not count as a connection.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: refresh})
	c = echo.New().NewContext(req, httptest.NewRecorder())
	assert.Nil(t, cookies.Token(c))
}
