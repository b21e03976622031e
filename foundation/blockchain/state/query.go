package state

import (
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/ledger"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/peer"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// =============================================================================

// QueryAccount returns a copy of the account from the ledger.
func (s *State) QueryAccount(address common.Address) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, exists := s.ledger.Account(address)
	if !exists {
		return ledger.Account{}, database.ErrNotFound
	}

	return account, nil
}

// QueryAccounts returns a copy of every account in the ledger ordered by
// address.
func (s *State) QueryAccounts() []ledger.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ledger.Accounts()
}

// QueryBalance returns the balance of the address, zero when unknown.
func (s *State) QueryBalance(address common.Address) *uint256.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ledger.Balance(address)
}

// QueryStateRoot returns the state root of the current ledger.
func (s *State) QueryStateRoot() (common.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ledger.StateRoot()
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Size()
}

// QueryMempool returns the pending transactions in the order they would be
// mined.
func (s *State) QueryMempool() []database.Tx {
	return s.mempool.Pending(-1)
}

// QueryLatestBlock returns the head of the chain.
func (s *State) QueryLatestBlock() database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// The chain always holds at least the genesis block.
	head, _ := s.chain.Head()
	return head
}

// QueryBlockByHash returns the block with the specified hash.
func (s *State) QueryBlockByHash(hash common.Hash) (database.Block, error) {
	return s.chain.ByHash(hash)
}

// QueryBlocksByNumber returns the set of blocks based on block numbers.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) []database.Block {
	if from == QueryLatest {
		from = s.chain.Length() - 1
		to = from
	}
	if to == QueryLatest {
		to = s.chain.Length() - 1
	}

	return s.chain.Range(from, to)
}

// QueryKnownPeers retrieves a copy of the known peer list, leaving out
// this node.
func (s *State) QueryKnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.host)
}

// QueryStatus returns the status this node reports to its peers.
func (s *State) QueryStatus() (peer.PeerStatus, error) {
	s.mu.RLock()
	head, err := s.chain.Head()
	if err != nil {
		s.mu.RUnlock()
		return peer.PeerStatus{}, err
	}
	root, err := s.ledger.StateRoot()
	s.mu.RUnlock()

	if err != nil {
		return peer.PeerStatus{}, err
	}

	ps := peer.PeerStatus{
		LatestBlockHash:   head.Hash(),
		LatestBlockNumber: head.Header.Height,
		StateRoot:         root,
		Mempool:           s.mempool.Size(),
		KnownPeers:        s.QueryKnownPeers(),
	}

	return ps, nil
}

// QueryChainLength returns the number of blocks including genesis.
func (s *State) QueryChainLength() uint64 {
	return s.chain.Length()
}

// QueryReceipt returns the receipt recorded when the transaction was
// included in a block.
func (s *State) QueryReceipt(hash common.Hash) (database.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	receipt, exists := s.receipts[hash]
	if !exists {
		if s.mempool.Contains(hash) {
			return database.Receipt{TxHash: hash, Status: database.TxPending}, nil
		}
		return database.Receipt{}, database.ErrNotFound
	}

	return receipt, nil
}
