package client

import (
	"context"
	"crypto/ecdsa"

	"github.com/onchain-guard/gatekeeper/internal/eth"
)

// LocalProvider satisfies WalletProvider with an in-process secp256k1 key.
// It stands in for a browser wallet in tests and tooling.
type LocalProvider struct {
	signer  *eth.Signer
	chainID uint64
}

// NewLocalProvider wraps key as a wallet on the given chain.
func NewLocalProvider(key *ecdsa.PrivateKey, chainID uint64) *LocalProvider {
	return &LocalProvider{signer: eth.NewSigner(key), chainID: chainID}
}

// NewLocalProviderFromSigner wraps an existing signer.
func NewLocalProviderFromSigner(signer *eth.Signer, chainID uint64) *LocalProvider {
	return &LocalProvider{signer: signer, chainID: chainID}
}

// ChainID returns the configured chain id.
func (p *LocalProvider) ChainID(ctx context.Context) (uint64, error) {
	return p.chainID, nil
}

// Address returns the key's address.
func (p *LocalProvider) Address(ctx context.Context) (string, error) {
	return p.signer.Address().Hex(), nil
}

// SignMessage signs message with the EIP-191 personal prefix.
func (p *LocalProvider) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	return p.signer.SignMessage(message)
}

var _ WalletProvider = (*LocalProvider)(nil)
