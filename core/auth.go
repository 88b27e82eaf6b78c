package core

import "time"

// Challenge is the server-side record of an issued sign-in challenge.
// Message holds the exact bytes the wallet must sign.
type Challenge struct {
	Message   string    // canonical EIP-4361 message text
	Nonce     string    // single-use anti-replay value
	Address   string    // claimed signer, EIP-55 checksummed
	ChainID   uint64    // chain the wallet reports
	IssuedAt  time.Time // when the challenge was created
	ExpiresAt time.Time // when the challenge expires
}

// Identity is the address proven by a successful signature verification.
type Identity struct {
	Address string // EIP-55 checksummed
}

// Session represents an authenticated user session
type Session struct {
	ID            string    // Unique session identifier
	Address       string    // Ethereum address of the user
	IssuedAt      time.Time // When the session was created
	RefreshExpiry time.Time // When the refresh capability expires
	AccessExpiry  time.Time // When the access capability expires
	RefreshID     string    // Unique identifier for the refresh token
}
