package database

import (
	"crypto/ecdsa"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressLength is the size of an account address in bytes.
const AddressLength = common.AddressLength

// ToAddress converts a hex-encoded string to an address and validates the
// hex-encoded string is formatted correctly.
func ToAddress(hex string) (common.Address, error) {
	if !IsAddress(hex) {
		return common.Address{}, errors.New("invalid address format")
	}

	return common.HexToAddress(hex), nil
}

// PublicKeyToAddress converts the public key to an address value.
func PublicKeyToAddress(pk ecdsa.PublicKey) common.Address {
	return crypto.PubkeyToAddress(pk)
}

// IsAddress verifies whether the underlying data represents a valid
// hex-encoded address with an optional 0x prefix.
func IsAddress(hex string) bool {
	if has0xPrefix(hex) {
		hex = hex[2:]
	}

	return len(hex) == 2*AddressLength && isHex(hex)
}

// ContractAddress derives the deterministic address of a contract created by
// the sender with the sender's nonce before it was incremented.
func ContractAddress(sender common.Address, nonce uint64) common.Address {
	return crypto.CreateAddress(sender, nonce)
}

// =============================================================================

// has0xPrefix validates the address starts with a 0x.
func has0xPrefix(a string) bool {
	return len(a) >= 2 && a[0] == '0' && (a[1] == 'x' || a[1] == 'X')
}

// isHex validates whether each byte is valid hexadecimal string.
func isHex(a string) bool {
	if len(a)%2 != 0 {
		return false
	}

	for _, c := range []byte(a) {
		if !isHexCharacter(c) {
			return false
		}
	}

	return true
}

// isHexCharacter returns bool of c being a valid hexadecimal.
func isHexCharacter(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
