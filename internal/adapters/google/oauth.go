package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"

	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/config"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/ports"
)

// ProfileScope lets the consent screen show who is connecting
const ProfileScope = "https://www.googleapis.com/auth/userinfo.profile"

// OAuthProvider implements ports.OAuthProvider against Google's endpoints
type OAuthProvider struct {
	conf *oauth2.Config
}

var _ ports.OAuthProvider = (*OAuthProvider)(nil)

// NewOAuthProvider creates a provider for Google's production endpoints
func NewOAuthProvider(cfg config.GoogleConfig) *OAuthProvider {
	return NewOAuthProviderWithEndpoint(cfg, googleoauth.Endpoint)
}

// NewOAuthProviderWithEndpoint creates a provider that talks to the given
// authorization and token URLs
func NewOAuthProviderWithEndpoint(cfg config.GoogleConfig, endpoint oauth2.Endpoint) *OAuthProvider {
	return &OAuthProvider{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  cfg.RedirectURI,
			Scopes: []string{
				calendar.CalendarEventsScope,
				ProfileScope,
			},
		},
	}
}

// AuthCodeURL asks for offline access and forces the consent screen so a
// refresh token is issued on every connect.
func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades an authorization code for tokens
func (p *OAuthProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return token, nil
}
