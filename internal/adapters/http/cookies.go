package http

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/oauth2"
)

// Cookie names
const (
	AccessTokenCookie  = "google_access_token"
	RefreshTokenCookie = "google_refresh_token"
	StateCookie        = "google_oauth_state"
)

const (
	defaultAccessTokenMaxAge = 3600
	refreshTokenMaxAge       = 30 * 24 * 60 * 60
)

var errCookieTampered = errors.New("cookie value failed authentication")

// CookieSealer encrypts cookie values with XChaCha20-Poly1305. The cookie
// name is bound as additional data so values cannot be swapped between cookies.
type CookieSealer struct {
	key []byte
}

// NewCookieSealer derives the sealing key from the session secret
func NewCookieSealer(secret string) (*CookieSealer, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("uhavetodo cookie sealing v1"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive cookie key: %w", err)
	}
	return &CookieSealer{key: key}, nil
}

// Seal encrypts value for the named cookie
func (s *CookieSealer) Seal(name, value string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(value)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(value), []byte(name))
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal for the same cookie name
func (s *CookieSealer) Open(name, sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", errCookieTampered
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", errCookieTampered
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, []byte(name))
	if err != nil {
		return "", errCookieTampered
	}
	return string(plain), nil
}

// SessionCookies reads and writes the calendar credential and OAuth state
// cookies
type SessionCookies struct {
	sealer *CookieSealer
	secure bool
	now    func() time.Time
}

// NewSessionCookies creates the cookie helper. secure marks every cookie
// Secure and should be set in production.
func NewSessionCookies(sealer *CookieSealer, secure bool) *SessionCookies {
	return &SessionCookies{sealer: sealer, secure: secure, now: time.Now}
}

// SetTokens stores the token pair. The access cookie lives until the token
// expires; the refresh cookie lives 30 days.
func (s *SessionCookies) SetTokens(c echo.Context, token *oauth2.Token) error {
	access, err := s.sealer.Seal(AccessTokenCookie, token.AccessToken)
	if err != nil {
		return err
	}

	maxAge := defaultAccessTokenMaxAge
	if !token.Expiry.IsZero() {
		if secs := int(token.Expiry.Sub(s.now()).Seconds()); secs > 0 {
			maxAge = secs
		}
	}
	c.SetCookie(s.tokenCookie(AccessTokenCookie, access, maxAge))

	if token.RefreshToken != "" {
		refresh, err := s.sealer.Seal(RefreshTokenCookie, token.RefreshToken)
		if err != nil {
			return err
		}
		c.SetCookie(s.tokenCookie(RefreshTokenCookie, refresh, refreshTokenMaxAge))
	}

	return nil
}

// Token returns the credential carried by the request, or nil when the
// access cookie is missing or unreadable.
func (s *SessionCookies) Token(c echo.Context) *oauth2.Token {
	access := s.open(c, AccessTokenCookie)
	if access == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: s.open(c, RefreshTokenCookie),
		TokenType:    "Bearer",
	}
}

// ClearTokens expires both credential cookies
func (s *SessionCookies) ClearTokens(c echo.Context) {
	c.SetCookie(s.tokenCookie(AccessTokenCookie, "", -1))
	c.SetCookie(s.tokenCookie(RefreshTokenCookie, "", -1))
}

// SetState stores the OAuth state for the callback. It uses SameSite=Lax
// because the callback arrives as a cross-site navigation from the provider.
func (s *SessionCookies) SetState(c echo.Context, state string, ttl time.Duration) {
	c.SetCookie(s.stateCookie(state, int(ttl.Seconds())))
}

// State returns the stored OAuth state, or "" when absent
func (s *SessionCookies) State(c echo.Context) string {
	cookie, err := c.Cookie(StateCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// ClearState expires the OAuth state cookie
func (s *SessionCookies) ClearState(c echo.Context) {
	c.SetCookie(s.stateCookie("", -1))
}

func (s *SessionCookies) open(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil || cookie.Value == "" {
		return ""
	}
	value, err := s.sealer.Open(name, cookie.Value)
	if err != nil {
		return ""
	}
	return value
}

func (s *SessionCookies) tokenCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (s *SessionCookies) stateCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     StateCookie,
		Value:    value,
		Path:     "/api/google-calendar",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
