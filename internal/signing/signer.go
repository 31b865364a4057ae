// Package signing implements the per-venue request-authentication and
// order-signing protocols: EIP-712 typed-data signatures for the Polymarket
// CLOB (L1 auth and orders), HMAC-SHA256 request signing for derived L2
// credentials, RSA-PSS request signing for Kalshi, and deterministic
// proxy/safe wallet address derivation.
package signing

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/crossvenue/prediction-arb/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// clobAuthMessage is the fixed attestation string the CLOB expects in the
// ClobAuth typed-data payload.
const clobAuthMessage = "This message attests that I control the given wallet"

// polygonChainID is the chain the CLOB contracts live on.
const polygonChainID = 137

// Signer holds a secp256k1 key and produces EIP-712 signatures for the
// Polymarket CLOB authentication domain.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    int64
}

// NewSigner creates a Signer from a hex-encoded private key (with or without
// the 0x prefix).
func NewSigner(privateKeyHex string) (*Signer, error) {
	if strings.TrimSpace(privateKeyHex) == "" {
		return nil, types.ErrCredentialsUnavailable
	}

	keyHex := strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	pk, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, &types.SigningError{
			Venue: types.PlatformPolymarket,
			Op:    "parse-private-key",
			Err:   err,
		}
	}

	pub, ok := pk.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, &types.SigningError{
			Venue: types.PlatformPolymarket,
			Op:    "derive-public-key",
			Err:   fmt.Errorf("unexpected public key type"),
		}
	}

	return &Signer{
		privateKey: pk,
		address:    crypto.PubkeyToAddress(*pub),
		chainID:    polygonChainID,
	}, nil
}

// Address returns the EOA address derived from the signing key.
func (s *Signer) Address() common.Address {
	return s.address
}

// PrivateKey exposes the parsed key for the order builder, which signs order
// structs through its own EIP-712 schema.
func (s *Signer) PrivateKey() *ecdsa.PrivateKey {
	return s.privateKey
}

// SignClobAuth produces the ClobAuth typed-data signature used to derive
// short-lived API credentials. The same timestamp and nonce always produce
// the same signature bytes; there is no hidden randomness.
func (s *Signer) SignClobAuth(timestamp, nonce int64) (string, error) {
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"ClobAuth": []apitypes.Type{
				{Name: "address", Type: "address"},
				{Name: "timestamp", Type: "string"},
				{Name: "nonce", Type: "uint256"},
				{Name: "message", Type: "string"},
			},
		},
		PrimaryType: "ClobAuth",
		Domain: apitypes.TypedDataDomain{
			Name:    "ClobAuthDomain",
			Version: "1",
			ChainId: math.NewHexOrDecimal256(s.chainID),
		},
		Message: map[string]interface{}{
			"address":   s.address.Hex(),
			"timestamp": fmt.Sprintf("%d", timestamp),
			"nonce":     fmt.Sprintf("%d", nonce),
			"message":   clobAuthMessage,
		},
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return "", &types.SigningError{Venue: types.PlatformPolymarket, Op: "hash-domain", Err: err}
	}

	typedDataHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return "", &types.SigningError{Venue: types.PlatformPolymarket, Op: "hash-message", Err: err}
	}

	rawData := []byte(fmt.Sprintf("\x19\x01%s%s", string(domainSeparator), string(typedDataHash)))
	hash := crypto.Keccak256Hash(rawData)

	signature, err := crypto.Sign(hash.Bytes(), s.privateKey)
	if err != nil {
		return "", &types.SigningError{Venue: types.PlatformPolymarket, Op: "sign-digest", Err: err}
	}

	// go-ethereum returns v in {0,1}; the CLOB expects {27,28}.
	if signature[64] < 27 {
		signature[64] += 27
	}

	return hexutil.Encode(signature), nil
}
