// Package store defines the persisted row types and repository contracts for
// link requests and provider credentials. The store is the source of truth;
// the application holds no cache of these rows.
package store

import (
	"context"
	"errors"
	"time"
)

// ProviderKind identifies which external OAuth2 provider a credential
// belongs to.
type ProviderKind string

const (
	// KindChat is the primary provider, used for login.
	KindChat ProviderKind = "chat"
	// KindMusic is the secondary provider, linked after login.
	KindMusic ProviderKind = "music"
)

var (
	// ErrNotFound is returned when no row matches the query.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateOwner is returned when creating a link request for an
	// owner that already has one. The owner_id unique constraint is the
	// sole concurrency-control point for the linking flow.
	ErrDuplicateOwner = errors.New("owner already has a link request")
)

// LinkRequest is a pending, one-time invitation to connect a provider
// account to an identity. At most one live request exists per owner.
type LinkRequest struct {
	Token     string    `gorm:"primaryKey"`
	OwnerID   string    `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for LinkRequest
func (LinkRequest) TableName() string {
	return "link_requests"
}

// ProviderAccount is a stored credential for a linked provider. One row per
// (owner, kind); writes are upserts.
type ProviderAccount struct {
	OwnerID      string       `gorm:"primaryKey"`
	Kind         ProviderKind `gorm:"primaryKey"`
	Username     string       `gorm:"not null"`
	AccessToken  string       `gorm:"not null"`
	RefreshToken string       `gorm:"not null"`
	SessionToken *string
	ExpiresAt    time.Time `gorm:"not null"`
	LastUpdated  time.Time `gorm:"not null"`
}

// TableName specifies the table name for ProviderAccount
func (ProviderAccount) TableName() string {
	return "provider_accounts"
}

// LinkRequestRepo defines storage operations for link requests.
type LinkRequestRepo interface {
	// Create inserts a new request. Returns ErrDuplicateOwner if the owner
	// already has one, expired or not.
	Create(ctx context.Context, request *LinkRequest) error

	// GetByToken retrieves a request by its token.
	GetByToken(ctx context.Context, token string) (*LinkRequest, error)

	// GetByOwner retrieves the request belonging to an owner.
	GetByOwner(ctx context.Context, ownerID string) (*LinkRequest, error)

	// DeleteByOwner removes the owner's request. Deleting a missing row is
	// not an error.
	DeleteByOwner(ctx context.Context, ownerID string) error
}

// AccountRepo defines storage operations for provider credentials.
type AccountRepo interface {
	// Upsert creates or replaces the (owner, kind) credential and refreshes
	// its LastUpdated timestamp.
	Upsert(ctx context.Context, account *ProviderAccount) error

	// Get retrieves the credential for an owner and provider.
	Get(ctx context.Context, ownerID string, kind ProviderKind) (*ProviderAccount, error)

	// Delete removes the credential. Deleting a missing row is not an error.
	Delete(ctx context.Context, ownerID string, kind ProviderKind) error
}
