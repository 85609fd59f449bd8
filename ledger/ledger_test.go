package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tunecord/accounts/ledger"
	"github.com/tunecord/accounts/store"
	"github.com/tunecord/accounts/store/repofakes"
)

const testOwnerID = "owner-1"

func fixedNow() time.Time {
	return time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)
}

func TestLedger_Issue(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a request with one hour expiry", func(t *testing.T) {
		repo := repofakes.NewFakeLinkRequestRepo()
		l := ledger.New(repo, ledger.WithNowTime(fixedNow))

		request, err := l.Issue(ctx, testOwnerID)
		require.NoError(t, err)
		require.Equal(t, testOwnerID, request.OwnerID)
		require.Len(t, request.Token, 64) // 32 random bytes, hex encoded
		require.NotContains(t, request.Token, ":")
		require.Equal(t, fixedNow().Add(time.Hour), request.ExpiresAt)

		resolved, err := l.Resolve(ctx, request.Token)
		require.NoError(t, err)
		require.Equal(t, request.Token, resolved.Token)
	})

	t.Run("is idempotent while the request is live", func(t *testing.T) {
		repo := repofakes.NewFakeLinkRequestRepo()
		l := ledger.New(repo, ledger.WithNowTime(fixedNow))

		first, err := l.Issue(ctx, testOwnerID)
		require.NoError(t, err)

		second, err := l.Issue(ctx, testOwnerID)
		require.NoError(t, err)
		require.Equal(t, first.Token, second.Token)
		require.Equal(t, 1, repo.Creates)
	})

	t.Run("replaces a stale request", func(t *testing.T) {
		repo := repofakes.NewFakeLinkRequestRepo()
		repo.Insert(&store.LinkRequest{
			Token:     "stale-token",
			OwnerID:   testOwnerID,
			ExpiresAt: fixedNow().Add(-time.Minute),
		})
		l := ledger.New(repo, ledger.WithNowTime(fixedNow))

		request, err := l.Issue(ctx, testOwnerID)
		require.NoError(t, err)
		require.NotEqual(t, "stale-token", request.Token)

		_, err = repo.GetByToken(ctx, "stale-token")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("adopts the winner when a concurrent create races", func(t *testing.T) {
		fake := repofakes.NewFakeLinkRequestRepo()
		winner := &store.LinkRequest{
			Token:     "winner-token",
			OwnerID:   testOwnerID,
			ExpiresAt: fixedNow().Add(time.Hour),
		}
		repo := &racingRepo{FakeLinkRequestRepo: fake, winner: winner}
		l := ledger.New(repo, ledger.WithNowTime(fixedNow))

		request, err := l.Issue(ctx, testOwnerID)
		require.NoError(t, err)
		require.Equal(t, "winner-token", request.Token)
	})
}

func TestLedger_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown token", func(t *testing.T) {
		l := ledger.New(repofakes.NewFakeLinkRequestRepo(), ledger.WithNowTime(fixedNow))

		_, err := l.Resolve(ctx, "no-such-token")
		require.ErrorIs(t, err, ledger.ErrNotFound)
	})

	t.Run("expired token reports Expired and deletes the row", func(t *testing.T) {
		repo := repofakes.NewFakeLinkRequestRepo()
		repo.Insert(&store.LinkRequest{
			Token:     "old-token",
			OwnerID:   testOwnerID,
			ExpiresAt: fixedNow().Add(-time.Second),
		})
		l := ledger.New(repo, ledger.WithNowTime(fixedNow))

		_, err := l.Resolve(ctx, "old-token")
		require.ErrorIs(t, err, ledger.ErrExpired)

		// The stale row is gone, so a second resolve misses entirely.
		_, err = l.Resolve(ctx, "old-token")
		require.ErrorIs(t, err, ledger.ErrNotFound)
	})

	t.Run("expiry boundary is exclusive", func(t *testing.T) {
		repo := repofakes.NewFakeLinkRequestRepo()
		repo.Insert(&store.LinkRequest{
			Token:     "edge-token",
			OwnerID:   testOwnerID,
			ExpiresAt: fixedNow(),
		})
		l := ledger.New(repo, ledger.WithNowTime(fixedNow))

		_, err := l.Resolve(ctx, "edge-token")
		require.ErrorIs(t, err, ledger.ErrExpired)
	})
}

func TestLedger_Consume(t *testing.T) {
	ctx := context.Background()

	repo := repofakes.NewFakeLinkRequestRepo()
	l := ledger.New(repo, ledger.WithNowTime(fixedNow))

	request, err := l.Issue(ctx, testOwnerID)
	require.NoError(t, err)

	require.NoError(t, l.Consume(ctx, testOwnerID))

	_, err = l.Resolve(ctx, request.Token)
	require.ErrorIs(t, err, ledger.ErrNotFound)

	// Consuming again is harmless.
	require.NoError(t, l.Consume(ctx, testOwnerID))
}

// racingRepo simulates a concurrent Issue winning the insert between this
// caller's lookup and create.
type racingRepo struct {
	*repofakes.FakeLinkRequestRepo
	winner *store.LinkRequest
}

func (r *racingRepo) Create(ctx context.Context, request *store.LinkRequest) error {
	r.Insert(r.winner)
	return store.ErrDuplicateOwner
}
