package ports

import "context"

// NonceStore issues and single-use-validates anti-replay challenge nonces.
type NonceStore interface {
	// Issue generates a fresh random nonce and records it with the
	// store's TTL.
	Issue(ctx context.Context) (string, error)

	// Consume atomically marks value as used. It returns false when the
	// nonce is unknown, already consumed, or expired; the caller cannot
	// distinguish the three.
	Consume(ctx context.Context, value string) (bool, error)
}
