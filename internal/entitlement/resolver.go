// Package entitlement determines premium access from the payment ledger.
package entitlement

import (
	"context"

	"go.uber.org/zap"

	"github.com/contentforge/contentforge/internal/store"
)

// Resolver decides whether an identity holds verified premium
// entitlement. Entitlement is a gate, not a critical path: a ledger
// failure resolves to non-premium (fail closed) and the error is
// returned for the caller to surface as a non-blocking notification.
type Resolver struct {
	store store.Store
}

// NewResolver creates a Resolver over the payment ledger.
func NewResolver(st store.Store) *Resolver {
	return &Resolver{store: st}
}

// Resolve returns true iff the ledger holds at least one verified
// payment record for the identity. An absent identity is never
// premium. Safe to re-invoke on identity change.
func (r *Resolver) Resolve(ctx context.Context, identity string) (bool, error) {
	if identity == "" {
		return false, nil
	}

	premium, err := r.store.HasVerifiedClaim(ctx, identity)
	if err != nil {
		zap.L().Warn("entitlement resolution failed, defaulting to non-premium",
			zap.String("user_id", identity),
			zap.Error(err),
		)
		return false, err
	}
	return premium, nil
}
