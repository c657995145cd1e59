package solana

import (
	"bytes"
	"crypto/ed25519"
	"testing"

	"filippo.io/edwards25519"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProgramAddress_SeedLimits(t *testing.T) {
	program := generateKeys(t, 1)[0]

	seeds := make([][]byte, maxSeeds+1)
	for i := range seeds {
		seeds[i] = []byte{byte(i)}
	}
	_, err := CreateProgramAddress(program, seeds...)
	assert.Equal(t, ErrTooManySeeds, err)

	_, err = CreateProgramAddress(program, make([]byte, maxSeedLength+1))
	assert.Equal(t, ErrMaxSeedLengthExceeded, err)
}

func TestFindProgramAddress_Deterministic(t *testing.T) {
	keys := generateKeys(t, 3)
	program, walletA, walletB := keys[0], keys[1], keys[2]

	addrA1, err := FindProgramAddress(program, walletA)
	require.NoError(t, err)
	addrA2, err := FindProgramAddress(program, walletA)
	require.NoError(t, err)
	addrB, err := FindProgramAddress(program, walletB)
	require.NoError(t, err)

	assert.Len(t, []byte(addrA1), ed25519.PublicKeySize)
	assert.True(t, bytes.Equal(addrA1, addrA2))
	assert.False(t, bytes.Equal(addrA1, addrB))
}

func TestFindProgramAddress_OffCurve(t *testing.T) {
	// The derivation bumps until it lands off the curve; derived addresses
	// must never have an associated private key.
	keys := generateKeys(t, 2)

	for i := 0; i < 32; i++ {
		addr, bump, err := FindProgramAddressAndBump(keys[0], keys[1], []byte{byte(i)})
		require.NoError(t, err)
		require.NotNil(t, addr)

		_, onCurveErr := new(edwards25519.Point).SetBytes(addr)
		assert.Error(t, onCurveErr)

		_, err = CreateProgramAddress(keys[0], keys[1], []byte{byte(i)}, []byte{bump})
		assert.NoError(t, err)
	}
}
