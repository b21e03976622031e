// Package signature provides helper functions for handling the blockchain
// signature needs.
package signature

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// ZeroHash represents a hash code of zeros.
var ZeroHash common.Hash

// tincID is an arbitrary number added to the recovery id of every signature.
// It makes it clear the signature was produced for the Tinc blockchain.
// Ethereum and Bitcoin do this as well, but they use the value of 27.
const tincID = 29

// Length is the size of a signature in the [R|S|V] format.
const Length = crypto.SignatureLength

// =============================================================================

// Hash returns the Keccak256 hash of the canonical RLP encoding of the value.
func Hash(value any) (common.Hash, error) {
	data, err := rlp.EncodeToBytes(value)
	if err != nil {
		return ZeroHash, fmt.Errorf("rlp encode: %w", err)
	}

	return crypto.Keccak256Hash(data), nil
}

// Stamp returns a hash of 32 bytes that represents the digest with the Tinc
// stamp embedded into the final hash. Signatures are always produced over a
// stamped digest so they can't be replayed as signatures for other chains.
func Stamp(digest common.Hash) common.Hash {
	stamp := []byte("\x19Tinc Signed Message:\n32")
	return crypto.Keccak256Hash(stamp, digest.Bytes())
}

// Sign uses the specified private key to sign the stamped digest. The
// signature is returned in the [R|S|V] format with the Tinc id added to V.
func Sign(digest common.Hash, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	data := Stamp(digest)

	sig, err := crypto.Sign(data.Bytes(), privateKey)
	if err != nil {
		return nil, err
	}

	// Check the public key extracted from the data and signature.
	publicKey, err := crypto.SigToPub(data.Bytes(), sig)
	if err != nil {
		return nil, err
	}

	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), data.Bytes(), rs) {
		return nil, errors.New("invalid signature")
	}

	sig[crypto.RecoveryIDOffset] += tincID

	return sig, nil
}

// Verify reports whether the signature was produced over the digest by the
// private key belonging to the specified public key.
func Verify(sig []byte, digest common.Hash, publicKey *ecdsa.PublicKey) bool {
	if err := VerifySignature(sig); err != nil {
		return false
	}

	data := Stamp(digest)
	rs := sig[:crypto.RecoveryIDOffset]

	return crypto.VerifySignature(crypto.FromECDSAPub(publicKey), data.Bytes(), rs)
}

// VerifySignature verifies the signature conforms to our standards.
func VerifySignature(sig []byte) error {
	if len(sig) != Length {
		return fmt.Errorf("invalid signature length, got %d, exp %d", len(sig), Length)
	}

	// Check the recovery id is either 0 or 1.
	v := sig[crypto.RecoveryIDOffset] - tincID
	if v != 0 && v != 1 {
		return errors.New("invalid recovery id")
	}

	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])

	// Check the signature values are valid.
	if !crypto.ValidateSignatureValues(v, r, s, true) {
		return errors.New("invalid signature values")
	}

	return nil
}

// FromAddress extracts the address for the account that signed the digest.
func FromAddress(digest common.Hash, sig []byte) (common.Address, error) {
	publicKey, err := FromPublicKey(digest, sig)
	if err != nil {
		return common.Address{}, err
	}

	return crypto.PubkeyToAddress(*publicKey), nil
}

// FromPublicKey extracts the public key that signed the digest.
func FromPublicKey(digest common.Hash, sig []byte) (*ecdsa.PublicKey, error) {
	if err := VerifySignature(sig); err != nil {
		return nil, err
	}

	// NOTE: If the same exact digest for the given signature is not provided
	// we will get the wrong public key. The node has no copy of the key used,
	// it is being extracted from the data and signature.

	raw := make([]byte, Length)
	copy(raw, sig)
	raw[crypto.RecoveryIDOffset] -= tincID

	return crypto.SigToPub(Stamp(digest).Bytes(), raw)
}

// String returns the signature as a hex encoded string.
func String(sig []byte) string {
	return hexutil.Encode(sig)
}
