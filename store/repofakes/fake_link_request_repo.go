package repofakes

import (
	"context"
	"sync"

	"github.com/tunecord/accounts/store"
)

var _ store.LinkRequestRepo = (*FakeLinkRequestRepo)(nil)

// FakeLinkRequestRepo is a thread-safe in-memory implementation of
// store.LinkRequestRepo. Call counts are exposed for assertions.
type FakeLinkRequestRepo struct {
	mu       sync.RWMutex
	byToken  map[string]*store.LinkRequest
	byOwner  map[string]*store.LinkRequest
	Creates  int
	Gets     int
	Deletes  int
	FailNext error // returned by the next mutating call, then cleared
}

func NewFakeLinkRequestRepo() *FakeLinkRequestRepo {
	return &FakeLinkRequestRepo{
		byToken: make(map[string]*store.LinkRequest),
		byOwner: make(map[string]*store.LinkRequest),
	}
}

func (r *FakeLinkRequestRepo) Create(ctx context.Context, request *store.LinkRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Creates++
	if err := r.takeFailure(); err != nil {
		return err
	}

	if _, ok := r.byOwner[request.OwnerID]; ok {
		return store.ErrDuplicateOwner
	}

	stored := *request
	r.byToken[stored.Token] = &stored
	r.byOwner[stored.OwnerID] = &stored
	return nil
}

func (r *FakeLinkRequestRepo) GetByToken(ctx context.Context, token string) (*store.LinkRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Gets++
	request, ok := r.byToken[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *request
	return &copied, nil
}

func (r *FakeLinkRequestRepo) GetByOwner(ctx context.Context, ownerID string) (*store.LinkRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Gets++
	request, ok := r.byOwner[ownerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *request
	return &copied, nil
}

func (r *FakeLinkRequestRepo) DeleteByOwner(ctx context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Deletes++
	if err := r.takeFailure(); err != nil {
		return err
	}

	request, ok := r.byOwner[ownerID]
	if !ok {
		return nil
	}
	delete(r.byToken, request.Token)
	delete(r.byOwner, ownerID)
	return nil
}

// Insert seeds a request directly, bypassing the duplicate check.
func (r *FakeLinkRequestRepo) Insert(request *store.LinkRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *request
	r.byToken[stored.Token] = &stored
	r.byOwner[stored.OwnerID] = &stored
}

func (r *FakeLinkRequestRepo) takeFailure() error {
	err := r.FailNext
	r.FailNext = nil
	return err
}
