package ports

import (
	"context"
	"time"
)

// RevocationList tracks revoked session token IDs until they would have
// expired anyway. It is the optional server-side sign-out extension point;
// the token format does not depend on it.
type RevocationList interface {
	Revoke(ctx context.Context, tokenID string, expiry time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
