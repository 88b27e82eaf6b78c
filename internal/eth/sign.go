// Package eth implements EIP-191 personal-message signing and address
// recovery on top of go-ethereum's secp256k1 primitives.
package eth

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/onchain-guard/gatekeeper/core"
)

// SignatureLength is the length of a secp256k1 signature with recovery id.
const SignatureLength = 65

// RecoverAddress recovers the address that produced sig over message.
// The message is hashed with the EIP-191 personal-message prefix, matching
// what wallets do for personal_sign. Both recovery id conventions are
// accepted (0/1 and the legacy 27/28 wallets emit).
func RecoverAddress(message, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, fmt.Errorf("%w: signature must be %d bytes, got %d",
			core.ErrInvalidSignature, SignatureLength, len(sig))
	}

	normalized := make([]byte, SignatureLength)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	if normalized[64] > 1 {
		return common.Address{}, fmt.Errorf("%w: bad recovery id", core.ErrInvalidSignature)
	}

	pub, err := crypto.SigToPub(accounts.TextHash(message), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", core.ErrInvalidSignature, err)
	}

	return crypto.PubkeyToAddress(*pub), nil
}

// Signer signs personal messages with a local secp256k1 key. It stands in
// for a browser wallet in tests and tooling.
type Signer struct {
	key *ecdsa.PrivateKey
}

// NewSigner wraps an existing private key.
func NewSigner(key *ecdsa.PrivateKey) *Signer {
	return &Signer{key: key}
}

// GenerateSigner creates a signer with a fresh random key.
func GenerateSigner() (*Signer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &Signer{key: key}, nil
}

// Address returns the signer's address.
func (s *Signer) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

// SignMessage produces a personal_sign-compatible signature over message,
// with the recovery id in the 27/28 convention wallets use.
func (s *Signer) SignMessage(message []byte) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(message), s.key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}
