package database

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/merkle"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common"
)

// ErrNotFound is returned when a block or account is not available.
var ErrNotFound = errors.New("not found")

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Height      uint64         `json:"height"`       // Ethereum: Block number in the chain.
	ParentHash  common.Hash    `json:"parent_hash"`  // Bitcoin: Hash of the previous block in the chain.
	Miner       common.Address `json:"miner"`        // Ethereum: The account who is receiving the reward.
	TimeStamp   uint64         `json:"timestamp"`    // Bitcoin: Time the block was mined.
	Difficulty  uint64         `json:"difficulty"`   // Target the leading 8 bytes of the hash must be below.
	Nonce       uint64         `json:"nonce"`        // Bitcoin: Value identified to solve the hash solution.
	TransRoot   common.Hash    `json:"trans_root"`   // Merkle root of the transactions in this block.
	ReceiptRoot common.Hash    `json:"receipt_root"` // Merkle root of the receipts produced by the transactions.
	StateRoot   common.Hash    `json:"state_root"`   // Ethereum: Commitment to the ledger after the block is applied.
}

// Block represents a group of transactions batched together.
type Block struct {
	Header BlockHeader
	Trans  []Tx
}

// Hash returns the unique hash for the Block.
func (b Block) Hash() common.Hash {

	// CORE NOTE: Hashing the block header and not the whole block so the
	// blockchain can be cryptographically checked by only needing block
	// headers. The transactions are committed through the TransRoot field.

	return b.Header.Hash()
}

// Hash returns the Keccak256 hash of the canonical encoding of the header.
func (h BlockHeader) Hash() common.Hash {
	hash, err := signature.Hash(h)
	if err != nil {
		return signature.ZeroHash
	}
	return hash
}

// HashSolved reports whether the hash satisfies the difficulty target. The
// first 8 bytes of the hash, read as an unsigned big-endian integer, must be
// strictly less than the difficulty value.
func HashSolved(hash common.Hash, difficulty uint64) bool {
	return binary.BigEndian.Uint64(hash[:8]) < difficulty
}

// =============================================================================

// txLeaf adapts a transaction to the merkle Hashable interface.
type txLeaf struct {
	tx Tx
}

func (l txLeaf) Hash() ([]byte, error) {
	return l.tx.Hash().Bytes(), nil
}

func (l txLeaf) Equals(other txLeaf) bool {
	return l.tx.Hash() == other.tx.Hash()
}

// TransRoot returns the merkle root for the ordered set of transactions.
// An empty set commits to the zero hash.
func TransRoot(trans []Tx) (common.Hash, error) {
	leafs := make([]txLeaf, len(trans))
	for i, tx := range trans {
		leafs[i] = txLeaf{tx: tx}
	}

	return merkle.RootOf(leafs)
}

// =============================================================================

// BlockData represents what is written to storage.
type BlockData struct {
	Hash   common.Hash `json:"hash"`
	Header BlockHeader `json:"block"`
	Trans  []Tx        `json:"trans"`
}

// NewBlockData constructs the value to serialize to storage.
func NewBlockData(block Block) BlockData {
	trans := make([]Tx, len(block.Trans))
	copy(trans, block.Trans)

	return BlockData{
		Hash:   block.Hash(),
		Header: block.Header,
		Trans:  trans,
	}
}

// ToBlock converts a BlockData into a Block. The stored hash must match the
// hash of the stored header.
func ToBlock(blockData BlockData) (Block, error) {
	block := Block{
		Header: blockData.Header,
		Trans:  blockData.Trans,
	}

	if hash := block.Hash(); hash != blockData.Hash {
		return Block{}, fmt.Errorf("block hash mismatch, got %s, exp %s", blockData.Hash, hash)
	}

	return block, nil
}
