// Package revocation implements the token denylist consulted after signature
// validation. Entries carry a TTL equal to the token's remaining lifetime, so
// the store self-evicts and never grows beyond the set of live tokens.
package revocation

import (
	"context"
	"time"
)

// Store is the denylist of tokens that must be rejected even when their
// signature and expiry are otherwise valid.
type Store interface {
	// Revoke inserts the token with the given remaining lifetime. A
	// non-positive ttl is a no-op: an already-expired token is rejected by
	// signature validation anyway and must not be resurrected into the store.
	Revoke(ctx context.Context, rawToken string, ttl time.Duration) error
	// IsRevoked reports whether the token is currently denylisted.
	IsRevoked(ctx context.Context, rawToken string) (bool, error)
}
