package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"authcore/internal/cache"
)

const revokedKeyPrefix = "revoked:"

// ErrRevocationUnavailable is returned when a revocation could not be stored.
var ErrRevocationUnavailable = errors.New("revocation store unavailable")

// DenyStore persists deny list entries. *cache.Client implements it.
type DenyStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetStrict(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Revocations is a deny list of token ids kept until the token expires.
// Writes must succeed; reads treat an unreachable store as "not revoked".
type Revocations struct {
	store DenyStore
}

// NewRevocations creates a deny list backed by store. A nil store refuses
// every revocation.
func NewRevocations(store DenyStore) *Revocations {
	if store == nil {
		store = (*cache.Client)(nil)
	}
	return &Revocations{store: store}
}

// Revoke denies tokenID until expiresAt. A zero expiresAt keeps the entry
// forever, matching a token that never expires. Already expired tokens need no entry.
func (r *Revocations) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	var ttl time.Duration
	if !expiresAt.IsZero() {
		ttl = time.Until(expiresAt)
		if ttl <= 0 {
			return nil
		}
	}
	if err := r.store.SetStrict(ctx, revokedKeyPrefix+tokenID, []byte("1"), ttl); err != nil {
		return fmt.Errorf("revoke %s: %w: %v", tokenID, ErrRevocationUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether tokenID is on the deny list.
func (r *Revocations) IsRevoked(ctx context.Context, tokenID string) bool {
	if tokenID == "" {
		return false
	}
	v, _ := r.store.Get(ctx, revokedKeyPrefix+tokenID)
	return v != nil
}
