package repofakes

import (
	"context"
	"sync"
	"time"

	"github.com/tunecord/accounts/store"
)

var _ store.AccountRepo = (*FakeAccountRepo)(nil)

type accountKey struct {
	ownerID string
	kind    store.ProviderKind
}

// FakeAccountRepo is a thread-safe in-memory implementation of
// store.AccountRepo. Call counts are exposed for assertions.
type FakeAccountRepo struct {
	mu       sync.RWMutex
	accounts map[accountKey]*store.ProviderAccount
	Upserts  int
	Deletes  int
	FailNext error // returned by the next mutating call, then cleared
}

func NewFakeAccountRepo() *FakeAccountRepo {
	return &FakeAccountRepo{
		accounts: make(map[accountKey]*store.ProviderAccount),
	}
}

func (r *FakeAccountRepo) Upsert(ctx context.Context, account *store.ProviderAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Upserts++
	if err := r.takeFailure(); err != nil {
		return err
	}

	stored := *account
	stored.LastUpdated = time.Now()
	r.accounts[accountKey{stored.OwnerID, stored.Kind}] = &stored
	return nil
}

func (r *FakeAccountRepo) Get(ctx context.Context, ownerID string, kind store.ProviderKind) (*store.ProviderAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[accountKey{ownerID, kind}]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (r *FakeAccountRepo) Delete(ctx context.Context, ownerID string, kind store.ProviderKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Deletes++
	if err := r.takeFailure(); err != nil {
		return err
	}

	delete(r.accounts, accountKey{ownerID, kind})
	return nil
}

// Count reports the number of stored rows.
func (r *FakeAccountRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts)
}

func (r *FakeAccountRepo) takeFailure() error {
	err := r.FailNext
	r.FailNext = nil
	return err
}
