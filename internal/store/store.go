// Package store persists payment claims and the trending-keyword cache.
package store

import (
	"context"
	"time"

	"github.com/contentforge/contentforge/internal/model"
)

// ClaimFilter specifies criteria for listing payment claims.
type ClaimFilter struct {
	UserID string              `json:"user_id,omitempty"`
	Status model.PaymentStatus `json:"status,omitempty"`
	Limit  int                 `json:"limit,omitempty"`
	Offset int                 `json:"offset,omitempty"`
}

// Store defines the persistence interface for the payment ledger and
// the keyword cache. The ledger is append-only from the request path:
// claims are created pending and only the reconciliation commands move
// them to a terminal status. Records are never deleted.
type Store interface {
	// Claims
	LogClaim(ctx context.Context, req model.PaymentRequest) (*model.PaymentRequest, error)
	GetClaim(ctx context.Context, id string) (*model.PaymentRequest, error)
	ListClaims(ctx context.Context, filter ClaimFilter) ([]model.PaymentRequest, error)
	UpdateClaimStatus(ctx context.Context, id string, status model.PaymentStatus) error
	HasVerifiedClaim(ctx context.Context, userID string) (bool, error)

	// Keyword cache
	GetCachedKeywords(ctx context.Context, category string) ([]model.TrendingKeyword, error)
	SetCachedKeywords(ctx context.Context, category string, keywords []model.TrendingKeyword, ttl time.Duration) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
