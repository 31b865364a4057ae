package signing

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossvenue/prediction-arb/pkg/types"
)

// testPrivateKey is a throwaway key, never funded.
const testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

const testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

func TestNewSigner(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"bare hex", testPrivateKey},
		{"0x prefix", "0x" + testPrivateKey},
		{"surrounding whitespace", "  " + testPrivateKey + " "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSigner(tt.key)
			require.NoError(t, err)
			assert.Equal(t, testAddress, s.Address().Hex())
		})
	}
}

func TestNewSigner_EmptyKey(t *testing.T) {
	_, err := NewSigner("   ")
	assert.True(t, errors.Is(err, types.ErrCredentialsUnavailable))
}

func TestNewSigner_MalformedKey(t *testing.T) {
	_, err := NewSigner("not-a-key")

	var sigErr *types.SigningError
	require.True(t, errors.As(err, &sigErr))
	assert.Equal(t, types.PlatformPolymarket, sigErr.Venue)
}

func TestSignClobAuth_Deterministic(t *testing.T) {
	s, err := NewSigner(testPrivateKey)
	require.NoError(t, err)

	sig1, err := s.SignClobAuth(1700000000, 0)
	require.NoError(t, err)
	sig2, err := s.SignClobAuth(1700000000, 0)
	require.NoError(t, err)

	assert.Equal(t, sig1, sig2)
	assert.True(t, strings.HasPrefix(sig1, "0x"))
	// 65 signature bytes hex-encoded plus the prefix.
	assert.Len(t, sig1, 132)
}

func TestSignClobAuth_DifferentInputsDifferentSignatures(t *testing.T) {
	s, err := NewSigner(testPrivateKey)
	require.NoError(t, err)

	sig1, err := s.SignClobAuth(1700000000, 0)
	require.NoError(t, err)
	sig2, err := s.SignClobAuth(1700000001, 0)
	require.NoError(t, err)
	sig3, err := s.SignClobAuth(1700000000, 1)
	require.NoError(t, err)

	assert.NotEqual(t, sig1, sig2)
	assert.NotEqual(t, sig1, sig3)
}

func TestDeriveProxyAddress(t *testing.T) {
	s, err := NewSigner(testPrivateKey)
	require.NoError(t, err)

	proxy := DeriveProxyAddress(s.Address())
	safe := DeriveSafeAddress(s.Address())

	// Derivations are pure functions of the owner.
	assert.Equal(t, proxy, DeriveProxyAddress(s.Address()))
	assert.Equal(t, safe, DeriveSafeAddress(s.Address()))

	// Each wallet kind has its own address space.
	assert.NotEqual(t, proxy, safe)
	assert.NotEqual(t, proxy, s.Address())

	other, err := NewSigner("59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d")
	require.NoError(t, err)
	assert.NotEqual(t, proxy, DeriveProxyAddress(other.Address()))
}
