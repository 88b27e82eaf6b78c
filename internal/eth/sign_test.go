package eth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onchain-guard/gatekeeper/core"
)

func TestSignAndRecover(t *testing.T) {
	signer, err := GenerateSigner()
	require.NoError(t, err)

	message := []byte("dashboard.example.com wants you to sign in")
	sig, err := signer.SignMessage(message)
	require.NoError(t, err)
	require.Len(t, sig, SignatureLength)

	recovered, err := RecoverAddress(message, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), recovered)
}

func TestRecoverAcceptsBothRecoveryIDConventions(t *testing.T) {
	signer, err := GenerateSigner()
	require.NoError(t, err)

	message := []byte("some message")
	sig, err := signer.SignMessage(message)
	require.NoError(t, err)
	require.GreaterOrEqual(t, sig[64], byte(27))

	// Legacy 27/28 convention, as produced by SignMessage.
	recovered, err := RecoverAddress(message, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), recovered)

	// Raw 0/1 convention.
	raw := make([]byte, len(sig))
	copy(raw, sig)
	raw[64] -= 27
	recovered, err = RecoverAddress(message, raw)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), recovered)
}

func TestRecoverDifferentKeyYieldsDifferentAddress(t *testing.T) {
	alice, err := GenerateSigner()
	require.NoError(t, err)
	mallory, err := GenerateSigner()
	require.NoError(t, err)

	message := []byte("prove you are alice")
	sig, err := mallory.SignMessage(message)
	require.NoError(t, err)

	recovered, err := RecoverAddress(message, sig)
	require.NoError(t, err)
	assert.NotEqual(t, alice.Address(), recovered)
	assert.Equal(t, mallory.Address(), recovered)
}

func TestRecoverTamperedMessage(t *testing.T) {
	signer, err := GenerateSigner()
	require.NoError(t, err)

	sig, err := signer.SignMessage([]byte("original"))
	require.NoError(t, err)

	recovered, err := RecoverAddress([]byte("tampered"), sig)
	if err == nil {
		// Recovery over different bytes yields a different address, never
		// the signer's.
		assert.NotEqual(t, signer.Address(), recovered)
	}
}

func TestRecoverRejectsMalformedSignatures(t *testing.T) {
	message := []byte("hello")

	_, err := RecoverAddress(message, nil)
	assert.ErrorIs(t, err, core.ErrInvalidSignature)

	_, err = RecoverAddress(message, make([]byte, 64))
	assert.ErrorIs(t, err, core.ErrInvalidSignature)

	bad := make([]byte, SignatureLength)
	bad[64] = 5 // recovery id out of range
	_, err = RecoverAddress(message, bad)
	assert.ErrorIs(t, err, core.ErrInvalidSignature)
}
