package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/yuvrajinbhakti/UHaveToDo/internal/domain/entities"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/config"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/logger"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/ports"
)

const stateIssuer = "uhavetodo"

const stateAudience = "google-calendar-oauth"

// StateClaims represents the JWT claims of an OAuth state token
type StateClaims struct {
	Nonce string `json:"nonce"`
	jwt.RegisteredClaims
}

// CalendarAuthService drives the authorization-code flow with the calendar
// provider.
type CalendarAuthService struct {
	provider        ports.OAuthProvider
	secret          []byte
	stateTTL        time.Duration
	exchangeTimeout time.Duration
	metrics         ports.MetricsRecorder
	logger          *logger.Logger
	now             func() time.Time
}

// NewCalendarAuthService creates a new calendar auth service
func NewCalendarAuthService(provider ports.OAuthProvider, googleCfg config.GoogleConfig, sessionCfg config.SessionConfig, metrics ports.MetricsRecorder, logger *logger.Logger) *CalendarAuthService {
	ttl := sessionCfg.StateTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CalendarAuthService{
		provider:        provider,
		secret:          []byte(sessionCfg.Secret),
		stateTTL:        ttl,
		exchangeTimeout: googleCfg.ExchangeTimeout,
		metrics:         metrics,
		logger:          logger.WithComponent("calendar_auth"),
		now:             time.Now,
	}
}

// StateTTL is how long an issued state stays acceptable
func (s *CalendarAuthService) StateTTL() time.Duration {
	return s.stateTTL
}

// BeginAuth issues a fresh state and returns it with the consent page URL.
func (s *CalendarAuthService) BeginAuth() (authURL, state string, err error) {
	state, err = s.generateState()
	if err != nil {
		s.record("auth_redirect", "error")
		return "", "", fmt.Errorf("failed to generate state: %w", err)
	}

	s.record("auth_redirect", "success")
	return s.provider.AuthCodeURL(state), state, nil
}

// CompleteAuth checks the state returned by the provider against the one
// stored in the browser and trades the code for tokens.
func (s *CalendarAuthService) CompleteAuth(ctx context.Context, code, returnedState, storedState string) (*oauth2.Token, error) {
	token, err := s.completeAuth(ctx, code, returnedState, storedState)
	if err != nil {
		s.record("callback", "error")
		return nil, err
	}

	s.record("callback", "success")
	s.logger.Infow("Calendar connected", "expires_at", token.Expiry)
	return token, nil
}

func (s *CalendarAuthService) completeAuth(ctx context.Context, code, returnedState, storedState string) (*oauth2.Token, error) {
	if returnedState == "" || returnedState != storedState {
		return nil, fmt.Errorf("%w: state mismatch", entities.ErrInvalidOAuthState)
	}
	if err := s.validateState(returnedState); err != nil {
		return nil, err
	}
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", entities.ErrInvalidOAuthState)
	}

	if s.exchangeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.exchangeTimeout)
		defer cancel()
	}

	start := time.Now()
	token, err := s.provider.Exchange(ctx, code)
	s.logger.LogCalendarOperation("exchange", float64(time.Since(start).Milliseconds()), err)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange: %w", entities.ErrUpstream, err)
	}
	if token == nil || token.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", entities.ErrUpstream)
	}

	return token, nil
}

func (s *CalendarAuthService) generateState() (string, error) {
	now := s.now()
	claims := &StateClaims{
		Nonce: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.stateTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    stateIssuer,
			Audience:  jwt.ClaimStrings{stateAudience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}

	return tokenString, nil
}

func (s *CalendarAuthService) validateState(tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &StateClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(stateIssuer),
		jwt.WithAudience(stateAudience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", entities.ErrInvalidOAuthState, err)
	}

	claims, ok := token.Claims.(*StateClaims)
	if !ok || !token.Valid || claims.Nonce == "" {
		return entities.ErrInvalidOAuthState
	}

	return nil
}

func (s *CalendarAuthService) record(operation, result string) {
	if s.metrics != nil {
		s.metrics.CalendarOperation(operation, result)
	}
}
