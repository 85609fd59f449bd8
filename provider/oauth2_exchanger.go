package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/tunecord/accounts/store"
)

// Endpoints describes one provider's OAuth2 surface.
type Endpoints struct {
	AuthURL     string
	TokenURL    string
	UserinfoURL string
	// RevokeURL is optional; providers without one get a no-op Revoke.
	RevokeURL string
}

// OAuth2Exchanger implements Exchanger on top of oauth2.Config. One type,
// configured once per provider.
type OAuth2Exchanger struct {
	kind       store.ProviderKind
	config     *oauth2.Config
	endpoints  Endpoints
	httpClient *http.Client
}

func NewOAuth2Exchanger(kind store.ProviderKind, clientID, clientSecret, redirectURL string, scopes []string, endpoints Endpoints) *OAuth2Exchanger {
	return &OAuth2Exchanger{
		kind: kind,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   endpoints.AuthURL,
				TokenURL:  endpoints.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		endpoints: endpoints,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (e *OAuth2Exchanger) Kind() store.ProviderKind {
	return e.kind
}

func (e *OAuth2Exchanger) AuthorizeURL(state string) string {
	return e.config.AuthCodeURL(state)
}

func (e *OAuth2Exchanger) Exchange(ctx context.Context, code string) (TokenPair, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)

	token, err := e.config.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil && retrieveErr.Response.StatusCode == http.StatusBadRequest {
			return TokenPair{}, fmt.Errorf("%w: %s", ErrCodeRejected, retrieveErr.ErrorCode)
		}
		return TokenPair{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	return TokenPair{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}, nil
}

// userinfoPayload covers both providers' identity responses; the music
// provider reports the subscription tier in "product".
type userinfoPayload struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Product     string `json:"product"`
}

func (e *OAuth2Exchanger) FetchIdentity(ctx context.Context, accessToken string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoints.UserinfoURL, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Identity{}, ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return Identity{}, fmt.Errorf("%w: userinfo returned status %d: %s", ErrUpstream, resp.StatusCode, string(body))
	}

	var payload userinfoPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Identity{}, fmt.Errorf("%w: failed to decode userinfo response: %v", ErrUpstream, err)
	}
	if payload.ID == "" {
		return Identity{}, fmt.Errorf("%w: userinfo response missing id", ErrUpstream)
	}

	username := payload.Username
	if username == "" {
		username = payload.DisplayName
	}

	return Identity{
		ID:       payload.ID,
		Username: username,
		Premium:  payload.Product == "premium",
	}, nil
}

func (e *OAuth2Exchanger) Revoke(ctx context.Context, token string) error {
	if e.endpoints.RevokeURL == "" {
		return nil
	}

	data := url.Values{}
	data.Set("token", token)
	data.Set("client_id", e.config.ClientID)
	data.Set("client_secret", e.config.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoints.RevokeURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: revoke returned status %d", ErrUpstream, resp.StatusCode)
	}
	return nil
}
