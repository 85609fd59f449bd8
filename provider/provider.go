// Package provider abstracts the two external OAuth2 parties. The state
// machine is written against one Exchanger capability; the chat and music
// providers are just two configured instances of it.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/tunecord/accounts/store"
)

var (
	// ErrCodeRejected means the provider refused the authorization code.
	ErrCodeRejected = errors.New("authorization code rejected")
	// ErrUnauthorized means the provider refused the access token.
	ErrUnauthorized = errors.New("access token rejected")
	// ErrUpstream covers transient provider failures.
	ErrUpstream = errors.New("provider unavailable")
)

// TokenPair is the result of a successful code exchange.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Identity is the provider's view of the authenticated user.
type Identity struct {
	ID       string
	Username string
	// Premium reports whether the account is on the subscription tier the
	// music provider requires for playback.
	Premium bool
}

// Exchanger performs the provider side of an authorization-code flow.
type Exchanger interface {
	// Kind identifies the provider.
	Kind() store.ProviderKind

	// AuthorizeURL builds the provider's authorize URL embedding state.
	AuthorizeURL(state string) string

	// Exchange trades an authorization code for a token pair. Returns
	// ErrCodeRejected when the provider refuses the code.
	Exchange(ctx context.Context, code string) (TokenPair, error)

	// FetchIdentity retrieves the authenticated user. Returns
	// ErrUnauthorized when the token is refused.
	FetchIdentity(ctx context.Context, accessToken string) (Identity, error)

	// Revoke invalidates a token with the provider. Providers without a
	// revocation endpoint report success.
	Revoke(ctx context.Context, token string) error
}
