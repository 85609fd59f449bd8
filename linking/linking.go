// Package linking implements the account-linking state machine: the
// transitions that take a browser from anonymous visitor to authenticated
// session to stored provider credential. Security checks run first and fail
// closed; business failures collapse into a closed Reason enum that the
// transport layer renders; only infra failures surface as errors.
package linking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tunecord/accounts/ledger"
	"github.com/tunecord/accounts/provider"
	"github.com/tunecord/accounts/session"
	"github.com/tunecord/accounts/store"
)

// Reason is the terminal outcome of a callback transition. Empty means the
// transition completed.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonProviderDenied  Reason = "provider_denied"
	ReasonBadRequest      Reason = "bad_request"
	ReasonCodeInvalid     Reason = "code_invalid"
	ReasonPremiumRequired Reason = "premium_required"
)

// stateDelimiter separates the link-request token from the CSRF token in
// the secondary provider's state parameter. Both tokens are hex, so the
// delimiter cannot occur inside either component.
const stateDelimiter = ":"

// ErrUnauthenticated is returned when a transition requires an identity the
// session does not carry, or the stored primary credential is no longer
// accepted by the provider.
var ErrUnauthenticated = errors.New("not authenticated")

// Service orchestrates the ledger, the session bag, the provider exchangers
// and the credential store.
type Service struct {
	ledger   *ledger.Ledger
	accounts store.AccountRepo
	chat     provider.Exchanger
	music    provider.Exchanger
}

func New(requestLedger *ledger.Ledger, accounts store.AccountRepo, chat, music provider.Exchanger) (*Service, error) {
	if requestLedger == nil {
		return nil, errors.New("[linking New] ledger is required")
	}
	if accounts == nil {
		return nil, errors.New("[linking New] accounts repo is required")
	}
	if chat == nil || music == nil {
		return nil, errors.New("[linking New] both exchangers are required")
	}

	return &Service{
		ledger:   requestLedger,
		accounts: accounts,
		chat:     chat,
		music:    music,
	}, nil
}

// BeginLogin starts the primary-provider login flow: a fresh CSRF token goes
// into the session and comes back embedded in the authorize URL as state.
// No store writes happen here.
func (s *Service) BeginLogin(sess *session.Session) (string, error) {
	csrf, err := sess.SetCSRF()
	if err != nil {
		return "", err
	}
	return s.chat.AuthorizeURL(csrf), nil
}

// CompleteLogin handles the primary provider's callback. On success the
// session carries the identity and the primary credential is stored.
func (s *Service) CompleteLogin(ctx context.Context, sess *session.Session, code, errParam, state string) (Reason, error) {
	if errParam != "" {
		return ReasonProviderDenied, nil
	}
	if code == "" || state == "" {
		return ReasonBadRequest, nil
	}
	if sess.CSRFToken == "" || state != sess.CSRFToken {
		log.Warn().Str("session", sess.ID()).Msg("login callback csrf mismatch")
		sess.Destroy()
		return ReasonBadRequest, nil
	}

	pair, err := s.chat.Exchange(ctx, code)
	if errors.Is(err, provider.ErrCodeRejected) {
		return ReasonCodeInvalid, nil
	}
	if err != nil {
		return ReasonNone, fmt.Errorf("login code exchange: %w", err)
	}

	identity, err := s.chat.FetchIdentity(ctx, pair.AccessToken)
	if err != nil {
		return ReasonNone, fmt.Errorf("login identity fetch: %w", err)
	}

	account := &store.ProviderAccount{
		OwnerID:      identity.ID,
		Kind:         s.chat.Kind(),
		Username:     identity.Username,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
	}
	if err := s.accounts.Upsert(ctx, account); err != nil {
		return ReasonNone, fmt.Errorf("login credential upsert: %w", err)
	}

	sess.SetIdentity(identity.ID)
	return ReasonNone, nil
}

// BeginLink issues (or re-issues) the identity's one-time link request and
// returns its token, which the caller turns into a shareable link page.
func (s *Service) BeginLink(ctx context.Context, ownerID string) (string, error) {
	request, err := s.ledger.Issue(ctx, ownerID)
	if err != nil {
		return "", err
	}
	return request.Token, nil
}

// AuthorizeLink prepares the secondary-provider authorize URL for a link
// page visit: it validates the request token, regenerates the session's
// CSRF token and composes state as "{request_token}:{csrf_token}".
// Ledger errors (ErrNotFound, ErrExpired) pass through to the caller.
func (s *Service) AuthorizeLink(ctx context.Context, sess *session.Session, requestToken string) (string, error) {
	request, err := s.ledger.Resolve(ctx, requestToken)
	if err != nil {
		return "", err
	}

	csrf, err := sess.SetCSRF()
	if err != nil {
		return "", err
	}

	state := request.Token + stateDelimiter + csrf
	return s.music.AuthorizeURL(state), nil
}

// CompleteLink handles the secondary provider's callback. The checks run in
// a fixed order and each failure is terminal for the attempt; in particular
// the CSRF comparison happens before any store lookup, so a forged state
// never learns whether its request token exists.
func (s *Service) CompleteLink(ctx context.Context, sess *session.Session, code, errParam, state string) (Reason, error) {
	if errParam != "" {
		return ReasonProviderDenied, nil
	}

	requestToken, csrf, ok := strings.Cut(state, stateDelimiter)
	if !ok || requestToken == "" || csrf == "" || code == "" {
		return ReasonBadRequest, nil
	}

	if sess.CSRFToken == "" || csrf != sess.CSRFToken {
		log.Warn().Str("session", sess.ID()).Msg("link callback csrf mismatch")
		sess.Destroy()
		return ReasonBadRequest, nil
	}

	request, err := s.ledger.Resolve(ctx, requestToken)
	if errors.Is(err, ledger.ErrNotFound) || errors.Is(err, ledger.ErrExpired) {
		return ReasonBadRequest, nil
	}
	if err != nil {
		return ReasonNone, fmt.Errorf("link request resolve: %w", err)
	}

	pair, err := s.music.Exchange(ctx, code)
	if errors.Is(err, provider.ErrCodeRejected) {
		return ReasonCodeInvalid, nil
	}
	if err != nil {
		return ReasonNone, fmt.Errorf("link code exchange: %w", err)
	}

	identity, err := s.music.FetchIdentity(ctx, pair.AccessToken)
	if err != nil {
		return ReasonNone, fmt.Errorf("link identity fetch: %w", err)
	}
	if !identity.Premium {
		// Tokens are discarded; the ledger entry survives for a retry.
		return ReasonPremiumRequired, nil
	}

	username := identity.Username
	if username == "" {
		username = identity.ID
	}

	account := &store.ProviderAccount{
		OwnerID:      request.OwnerID,
		Kind:         s.music.Kind(),
		Username:     username,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
	}
	if err := s.accounts.Upsert(ctx, account); err != nil {
		// Do not consume the ledger entry on a failed persist.
		log.Error().Err(err).Str("owner", request.OwnerID).Msg("link credential upsert failed")
		return ReasonBadRequest, nil
	}

	// Consume strictly after the credential is durable. A leftover request
	// self-heals on the next Issue; losing one before persisting would lose
	// the link.
	if err := s.ledger.Consume(ctx, request.OwnerID); err != nil {
		log.Warn().Err(err).Str("owner", request.OwnerID).Msg("link request consume failed")
	}

	return ReasonNone, nil
}

// Verify checks that the identity's stored primary credential is still
// accepted by the provider. Returns ErrUnauthenticated when it is not, so
// the caller can destroy the session.
func (s *Service) Verify(ctx context.Context, ownerID string) (provider.Identity, error) {
	account, err := s.accounts.Get(ctx, ownerID, s.chat.Kind())
	if errors.Is(err, store.ErrNotFound) {
		return provider.Identity{}, ErrUnauthenticated
	}
	if err != nil {
		return provider.Identity{}, err
	}

	identity, err := s.chat.FetchIdentity(ctx, account.AccessToken)
	if errors.Is(err, provider.ErrUnauthorized) {
		return provider.Identity{}, ErrUnauthenticated
	}
	if err != nil {
		return provider.Identity{}, err
	}
	return identity, nil
}

// Unlink revokes (best effort) and deletes the identity's credential for a
// provider. Unlinking the primary provider also invalidates the session,
// which the transport layer performs; revocation failure never blocks the
// local delete.
func (s *Service) Unlink(ctx context.Context, ownerID string, kind store.ProviderKind) error {
	exchanger := s.exchangerFor(kind)

	account, err := s.accounts.Get(ctx, ownerID, kind)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Nothing stored; deleting again is fine.
	case err != nil:
		return err
	default:
		if err := exchanger.Revoke(ctx, account.AccessToken); err != nil {
			log.Warn().Err(err).Str("provider", string(kind)).Msg("token revocation failed")
		}
	}

	return s.accounts.Delete(ctx, ownerID, kind)
}

// Logout destroys the session and revokes the primary token on a best-effort
// basis. It never fails.
func (s *Service) Logout(ctx context.Context, sess *session.Session) {
	if sess.Authenticated() {
		account, err := s.accounts.Get(ctx, sess.Identity, s.chat.Kind())
		if err == nil {
			if err := s.chat.Revoke(ctx, account.AccessToken); err != nil {
				log.Warn().Err(err).Msg("logout token revocation failed")
			}
		}
	}
	sess.Destroy()
}

func (s *Service) exchangerFor(kind store.ProviderKind) provider.Exchanger {
	if kind == s.chat.Kind() {
		return s.chat
	}
	return s.music
}
