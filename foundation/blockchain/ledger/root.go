package ledger

import (
	"bytes"
	"sort"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/merkle"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// accountLeaf is the committed form of an account in the state root.
type accountLeaf struct {
	Address     common.Address
	Nonce       uint64
	Balance     *uint256.Int
	CodeHash    common.Hash
	StorageRoot common.Hash
}

func (l accountLeaf) Hash() ([]byte, error) {
	h, err := signature.Hash(l)
	if err != nil {
		return nil, err
	}
	return h.Bytes(), nil
}

func (l accountLeaf) Equals(other accountLeaf) bool {
	return l.Address == other.Address
}

// storageLeaf is the committed form of a single storage slot.
type storageLeaf struct {
	Key   common.Hash
	Value common.Hash
}

func (l storageLeaf) Hash() ([]byte, error) {
	return crypto.Keccak256(l.Key[:], l.Value[:]), nil
}

func (l storageLeaf) Equals(other storageLeaf) bool {
	return l.Key == other.Key
}

// =============================================================================

// StateRoot returns the merkle commitment over every account in the ledger
// ordered by address. An empty ledger commits to the zero hash.
func (l *Ledger) StateRoot() (common.Hash, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	accounts := l.sorted()

	leafs := make([]accountLeaf, len(accounts))
	for i, acct := range accounts {
		storageRoot, err := storageRoot(acct.Storage)
		if err != nil {
			return common.Hash{}, err
		}

		var codeHash common.Hash
		if len(acct.Code) > 0 {
			codeHash = crypto.Keccak256Hash(acct.Code)
		}

		leafs[i] = accountLeaf{
			Address:     acct.Address,
			Nonce:       acct.Nonce,
			Balance:     acct.Balance,
			CodeHash:    codeHash,
			StorageRoot: storageRoot,
		}
	}

	return merkle.RootOf(leafs)
}

// storageRoot returns the merkle commitment over the storage slots ordered
// by key. Empty storage commits to the zero hash.
func storageRoot(storage map[common.Hash]common.Hash) (common.Hash, error) {
	leafs := make([]storageLeaf, 0, len(storage))
	for k, v := range storage {
		leafs = append(leafs, storageLeaf{Key: k, Value: v})
	}

	sort.Slice(leafs, func(i, j int) bool {
		return bytes.Compare(leafs[i].Key[:], leafs[j].Key[:]) < 0
	})

	return merkle.RootOf(leafs)
}
