package providerfakes

import (
	"context"
	"sync"

	"github.com/tunecord/accounts/provider"
	"github.com/tunecord/accounts/store"
)

var _ provider.Exchanger = (*FakeExchanger)(nil)

// FakeExchanger is a scriptable Exchanger for tests. Every network-shaped
// call is counted so tests can assert that security checks short-circuit
// before any provider traffic.
type FakeExchanger struct {
	mu sync.Mutex

	ProviderKind store.ProviderKind

	// Tokens maps authorization codes to exchange results.
	Tokens map[string]provider.TokenPair
	// Identities maps access tokens to fetch results.
	Identities map[string]provider.Identity

	ExchangeErr error
	IdentityErr error
	RevokeErr   error

	ExchangeCalls int
	IdentityCalls int
	RevokeCalls   int
	Revoked       []string
}

func NewFakeExchanger(kind store.ProviderKind) *FakeExchanger {
	return &FakeExchanger{
		ProviderKind: kind,
		Tokens:       make(map[string]provider.TokenPair),
		Identities:   make(map[string]provider.Identity),
	}
}

func (f *FakeExchanger) Kind() store.ProviderKind {
	return f.ProviderKind
}

func (f *FakeExchanger) AuthorizeURL(state string) string {
	return "https://" + string(f.ProviderKind) + ".example.com/authorize?state=" + state
}

func (f *FakeExchanger) Exchange(ctx context.Context, code string) (provider.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ExchangeCalls++
	if f.ExchangeErr != nil {
		return provider.TokenPair{}, f.ExchangeErr
	}
	pair, ok := f.Tokens[code]
	if !ok {
		return provider.TokenPair{}, provider.ErrCodeRejected
	}
	return pair, nil
}

func (f *FakeExchanger) FetchIdentity(ctx context.Context, accessToken string) (provider.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.IdentityCalls++
	if f.IdentityErr != nil {
		return provider.Identity{}, f.IdentityErr
	}
	identity, ok := f.Identities[accessToken]
	if !ok {
		return provider.Identity{}, provider.ErrUnauthorized
	}
	return identity, nil
}

func (f *FakeExchanger) Revoke(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.RevokeCalls++
	if f.RevokeErr != nil {
		return f.RevokeErr
	}
	f.Revoked = append(f.Revoked, token)
	return nil
}
