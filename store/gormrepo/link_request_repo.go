package gormrepo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tunecord/accounts/store"
)

var _ store.LinkRequestRepo = (*LinkRequestRepo)(nil)

// LinkRequestRepo persists link requests in Postgres. The unique index on
// owner_id enforces the one-live-request-per-owner invariant.
type LinkRequestRepo struct {
	db *gorm.DB
}

func NewLinkRequestRepo(db *gorm.DB) *LinkRequestRepo {
	return &LinkRequestRepo{db: db}
}

func (r *LinkRequestRepo) Create(ctx context.Context, request *store.LinkRequest) error {
	err := r.db.WithContext(ctx).Create(request).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return store.ErrDuplicateOwner
	}
	if err != nil {
		return fmt.Errorf("failed to create link request: %w", err)
	}
	return nil
}

func (r *LinkRequestRepo) GetByToken(ctx context.Context, token string) (*store.LinkRequest, error) {
	var request store.LinkRequest
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link request: %w", err)
	}
	return &request, nil
}

func (r *LinkRequestRepo) GetByOwner(ctx context.Context, ownerID string) (*store.LinkRequest, error) {
	var request store.LinkRequest
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link request: %w", err)
	}
	return &request, nil
}

func (r *LinkRequestRepo) DeleteByOwner(ctx context.Context, ownerID string) error {
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&store.LinkRequest{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete link request: %w", err)
	}
	return nil
}
