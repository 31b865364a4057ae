package signing

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strconv"

	"github.com/crossvenue/prediction-arb/pkg/types"
)

// ParseRSAPrivateKey normalizes a PEM-encoded RSA private key into the one
// canonical in-memory representation used for all signing. Both PKCS#8 and
// PKCS#1 containers are accepted; anything else is a typed error, checked
// before any network call.
func ParseRSAPrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, &types.SigningError{
			Venue: types.PlatformKalshi,
			Op:    "parse-rsa-key",
			Err:   fmt.Errorf("no PEM block found"),
		}
	}

	// PKCS#8 first, PKCS#1 fallback.
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, &types.SigningError{
				Venue: types.PlatformKalshi,
				Op:    "parse-rsa-key",
				Err:   fmt.Errorf("expected RSA private key, got %T", key),
			}
		}
		return rsaKey, nil
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, &types.SigningError{
			Venue: types.PlatformKalshi,
			Op:    "parse-rsa-key",
			Err:   fmt.Errorf("unrecognized key container: %w", err),
		}
	}

	return key, nil
}

// RSASigner signs Kalshi API requests with RSA-PSS/SHA-256.
type RSASigner struct {
	keyID      string
	privateKey *rsa.PrivateKey
}

// NewRSASigner creates a signer from an API key id and a normalized key.
func NewRSASigner(keyID string, key *rsa.PrivateKey) (*RSASigner, error) {
	if keyID == "" || key == nil {
		return nil, types.ErrCredentialsUnavailable
	}
	return &RSASigner{keyID: keyID, privateKey: key}, nil
}

// Headers signs timestamp+method+path and returns the KALSHI-ACCESS-*
// request headers. The PSS salt is 32 bytes (equal to the SHA-256 digest),
// so signatures are randomized per call as the scheme requires.
func (s *RSASigner) Headers(method, path string, unixMillis int64) (map[string]string, error) {
	ts := strconv.FormatInt(unixMillis, 10)
	message := ts + method + path

	hash := sha256.Sum256([]byte(message))
	signature, err := rsa.SignPSS(rand.Reader, s.privateKey, crypto.SHA256, hash[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		return nil, &types.SigningError{Venue: types.PlatformKalshi, Op: "rsa-pss-sign", Err: err}
	}

	return map[string]string{
		"KALSHI-ACCESS-KEY":       s.keyID,
		"KALSHI-ACCESS-SIGNATURE": base64.StdEncoding.EncodeToString(signature),
		"KALSHI-ACCESS-TIMESTAMP": ts,
	}, nil
}
