package signing

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossvenue/prediction-arb/pkg/types"
)

func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestParseRSAPrivateKey_PKCS1(t *testing.T) {
	key := generateTestKey(t)
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	parsed, err := ParseRSAPrivateKey(pemBytes)
	require.NoError(t, err)
	assert.True(t, key.Equal(parsed))
}

func TestParseRSAPrivateKey_PKCS8(t *testing.T) {
	key := generateTestKey(t)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: der,
	})

	parsed, err := ParseRSAPrivateKey(pemBytes)
	require.NoError(t, err)
	assert.True(t, key.Equal(parsed))
}

func TestParseRSAPrivateKey_Garbage(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"not pem", []byte("hello")},
		{"empty", nil},
		{"pem with junk", pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: []byte("junk")})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRSAPrivateKey(tt.input)

			var sigErr *types.SigningError
			require.True(t, errors.As(err, &sigErr))
			assert.Equal(t, types.PlatformKalshi, sigErr.Venue)
		})
	}
}

func TestNewRSASigner_RequiresKeyAndID(t *testing.T) {
	key := generateTestKey(t)

	_, err := NewRSASigner("", key)
	assert.True(t, errors.Is(err, types.ErrCredentialsUnavailable))

	_, err = NewRSASigner("key-id", nil)
	assert.True(t, errors.Is(err, types.ErrCredentialsUnavailable))
}

func TestRSASigner_HeadersVerify(t *testing.T) {
	key := generateTestKey(t)
	signer, err := NewRSASigner("key-id-1", key)
	require.NoError(t, err)

	headers, err := signer.Headers("GET", "/trade-api/v2/markets", 1700000000123)
	require.NoError(t, err)

	assert.Equal(t, "key-id-1", headers["KALSHI-ACCESS-KEY"])
	assert.Equal(t, "1700000000123", headers["KALSHI-ACCESS-TIMESTAMP"])

	signature, err := base64.StdEncoding.DecodeString(headers["KALSHI-ACCESS-SIGNATURE"])
	require.NoError(t, err)

	hash := sha256.Sum256([]byte("1700000000123GET/trade-api/v2/markets"))
	err = rsa.VerifyPSS(&key.PublicKey, crypto.SHA256, hash[:], signature, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	assert.NoError(t, err)
}
