// Package ledger issues and validates the one-time, expiring tokens that
// scope a browser to "link the music provider for this identity". The store's
// unique constraint on owner_id is the only concurrency control: a racing
// create loses cleanly and adopts the winner's request.
package ledger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/tunecord/accounts/store"
)

const (
	// Tokens are hex so the state-parameter delimiter ':' can never appear
	// in them.
	tokenBytes = 32

	// RequestTTL is how long an issued link request stays valid.
	RequestTTL = time.Hour
)

var (
	ErrNotFound = errors.New("link request not found")
	ErrExpired  = errors.New("link request expired")
)

// Ledger manages link-request lifecycle on top of a LinkRequestRepo.
type Ledger struct {
	requests store.LinkRequestRepo
	nowTime  func() time.Time
}

// Option defines a function type to modify the Ledger instance.
type Option func(*Ledger)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(l *Ledger) {
		l.nowTime = nowFunc
	}
}

func New(requests store.LinkRequestRepo, options ...Option) *Ledger {
	l := &Ledger{
		requests: requests,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// Issue returns the owner's live link request, creating one if none exists.
// Calling Issue repeatedly without an intervening Consume or expiry returns
// the same token, so a user can resume a flow from a previously shown link.
func (l *Ledger) Issue(ctx context.Context, ownerID string) (*store.LinkRequest, error) {
	existing, err := l.requests.GetByOwner(ctx, ownerID)
	switch {
	case err == nil:
		if l.nowTime().Before(existing.ExpiresAt) {
			return existing, nil
		}
		// Stale request: clear it before minting a replacement.
		if err := l.requests.DeleteByOwner(ctx, ownerID); err != nil {
			return nil, err
		}
	case errors.Is(err, store.ErrNotFound):
	default:
		return nil, err
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	request := &store.LinkRequest{
		Token:     token,
		OwnerID:   ownerID,
		ExpiresAt: l.nowTime().Add(RequestTTL),
	}

	err = l.requests.Create(ctx, request)
	if errors.Is(err, store.ErrDuplicateOwner) {
		// A concurrent Issue won the insert; adopt its request.
		return l.requests.GetByOwner(ctx, ownerID)
	}
	if err != nil {
		return nil, err
	}
	return request, nil
}

// Resolve looks up a request by token. Expired requests are deleted as a
// side effect and reported as ErrExpired; a later Resolve of the same token
// reports ErrNotFound.
func (l *Ledger) Resolve(ctx context.Context, token string) (*store.LinkRequest, error) {
	request, err := l.requests.GetByToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if !l.nowTime().Before(request.ExpiresAt) {
		if err := l.requests.DeleteByOwner(ctx, request.OwnerID); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	}
	return request, nil
}

// Consume deletes the owner's request. Must be called only after the
// exchanged credential has been durably stored: a stored credential with a
// leftover request self-heals on retry, a consumed request without a stored
// credential loses the link.
func (l *Ledger) Consume(ctx context.Context, ownerID string) error {
	return l.requests.DeleteByOwner(ctx, ownerID)
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate link token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
