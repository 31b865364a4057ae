package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/crossvenue/prediction-arb/pkg/types"
)

// L2Creds are the short-lived API credentials derived via L1 auth.
type L2Creds struct {
	APIKey     string
	Secret     string // base64url-encoded shared secret
	Passphrase string
}

// Valid reports whether the full credential set is present.
func (c L2Creds) Valid() bool {
	return c.APIKey != "" && c.Secret != "" && c.Passphrase != ""
}

// String returns a redacted representation suitable for logging.
func (c L2Creds) String() string {
	redact := func(s string) string {
		if len(s) <= 4 {
			return "****"
		}
		return s[:4] + "****"
	}
	return fmt.Sprintf("L2Creds{key=%s, secret=%s}", redact(c.APIKey), redact(c.Secret))
}

// L2Headers computes the POLY_* request headers for an L2 CLOB call.
// The signature is HMAC-SHA256 over timestamp+method+path+body, keyed by the
// base64url-decoded secret and encoded back as base64url, matching the
// official client.
func (c L2Creds) L2Headers(address, method, path, body string, unixTS int64) (map[string]string, error) {
	if !c.Valid() {
		return nil, types.ErrCredentialsUnavailable
	}

	secretBytes, err := base64.URLEncoding.DecodeString(c.Secret)
	if err != nil {
		return nil, &types.SigningError{
			Venue: types.PlatformPolymarket,
			Op:    "decode-l2-secret",
			Err:   err,
		}
	}

	ts := strconv.FormatInt(unixTS, 10)
	message := ts + method + path + body

	h := hmac.New(sha256.New, secretBytes)
	h.Write([]byte(message))
	signature := base64.URLEncoding.EncodeToString(h.Sum(nil))

	return map[string]string{
		"POLY_ADDRESS":    address,
		"POLY_API_KEY":    c.APIKey,
		"POLY_SIGNATURE":  signature,
		"POLY_TIMESTAMP":  ts,
		"POLY_PASSPHRASE": c.Passphrase,
	}, nil
}
