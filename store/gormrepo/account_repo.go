package gormrepo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tunecord/accounts/store"
)

var _ store.AccountRepo = (*AccountRepo)(nil)

// AccountRepo persists provider credentials in Postgres.
type AccountRepo struct {
	db *gorm.DB
}

func NewAccountRepo(db *gorm.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

func (r *AccountRepo) Upsert(ctx context.Context, account *store.ProviderAccount) error {
	account.LastUpdated = r.db.NowFunc()

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "kind"}},
		UpdateAll: true,
	}).Create(account).Error
	if err != nil {
		return fmt.Errorf("failed to upsert provider account: %w", err)
	}
	return nil
}

func (r *AccountRepo) Get(ctx context.Context, ownerID string, kind store.ProviderKind) (*store.ProviderAccount, error) {
	var account store.ProviderAccount
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND kind = ?", ownerID, kind).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provider account: %w", err)
	}
	return &account, nil
}

func (r *AccountRepo) Delete(ctx context.Context, ownerID string, kind store.ProviderKind) error {
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND kind = ?", ownerID, kind).
		Delete(&store.ProviderAccount{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete provider account: %w", err)
	}
	return nil
}
