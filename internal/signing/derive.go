package signing

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Polymarket funds can sit behind either a minimal-proxy wallet or a
// multi-owner safe, both deployed through CREATE2 from fixed factories. The
// derivations below are pure functions of the EOA address, so every wallet
// that might hold positions for a signing key can be discovered without a
// network call.
var (
	proxyWalletFactory  = common.HexToAddress("0xaB45c5A4B0c941a2F231C04C3f49182e1A254052")
	proxyImplementation = common.HexToAddress("0x44e2DAfa2C41B5744Ff1F7A4cd1A6a3e29a9A3E1")

	safeFactory           = common.HexToAddress("0xaacFeEa03eb1561C4e67d661e40682Bd20E3541b")
	safeProxyInitCodeHash = common.HexToHash("0x2d26e156d6b6cb4a4ef521d4f4e1e22a670b7ff49e9b2775e6c7d5b2a7f8f6d3")
)

// minimalProxyInitCode returns the EIP-1167 creation bytecode cloning the
// given implementation.
func minimalProxyInitCode(implementation common.Address) []byte {
	code := make([]byte, 0, 55)
	code = append(code, common.Hex2Bytes("3d602d80600a3d3981f3363d3d373d3d3d363d73")...)
	code = append(code, implementation.Bytes()...)
	code = append(code, common.Hex2Bytes("5af43d82803e903d91602b57fd5bf3")...)
	return code
}

// create2Address computes keccak256(0xff ++ deployer ++ salt ++ initCodeHash)
// and takes the low 20 bytes.
func create2Address(deployer common.Address, salt, initCodeHash []byte) common.Address {
	data := make([]byte, 0, 85)
	data = append(data, 0xff)
	data = append(data, deployer.Bytes()...)
	data = append(data, salt...)
	data = append(data, initCodeHash...)
	return common.BytesToAddress(crypto.Keccak256(data)[12:])
}

// DeriveProxyAddress returns the minimal-proxy wallet address for an EOA.
// The factory salts each deployment with the keccak hash of the owner
// address, so the mapping is one-to-one.
func DeriveProxyAddress(owner common.Address) common.Address {
	salt := crypto.Keccak256(common.LeftPadBytes(owner.Bytes(), 32))
	initCodeHash := crypto.Keccak256(minimalProxyInitCode(proxyImplementation))
	return create2Address(proxyWalletFactory, salt, initCodeHash)
}

// DeriveSafeAddress returns the multi-owner safe wallet address for an EOA.
// The safe factory hashes the setup initializer (single owner, threshold 1)
// together with a zero salt nonce.
func DeriveSafeAddress(owner common.Address) common.Address {
	initializerHash := crypto.Keccak256(
		append([]byte("setup(address)"), common.LeftPadBytes(owner.Bytes(), 32)...),
	)

	saltInput := make([]byte, 0, 64)
	saltInput = append(saltInput, initializerHash...)
	saltInput = append(saltInput, common.LeftPadBytes(nil, 32)...) // salt nonce 0
	salt := crypto.Keccak256(saltInput)

	return create2Address(safeFactory, salt, safeProxyInitCodeHash.Bytes())
}
