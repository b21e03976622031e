package state

import (
	"context"
	"errors"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/consensus"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
)

// ErrNoTransactions is returned when a block is requested to be created
// and there are not enough transactions.
var ErrNoTransactions = errors.New("no transactions in mempool")

// =============================================================================

// MineNewBlock attempts to create a new block with a proper hash that can become
// the next block in the chain.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: check mempool count")

	// Are there enough transactions in the pool.
	if s.mempool.Size() == 0 {
		return database.Block{}, ErrNoTransactions
	}

	// Take a private view of the head and the ledger to mine against.
	s.mu.RLock()
	head, err := s.chain.Head()
	l := s.ledger.Copy()
	s.mu.RUnlock()

	if err != nil {
		return database.Block{}, err
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW")

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	result, err := s.consensus.Mine(ctx, consensus.MineArgs{
		Head:       head,
		Miner:      s.miner,
		Difficulty: s.genesis.Difficulty,
		Mempool:    s.mempool,
		Ledger:     l,
	})
	if err != nil {
		if errors.Is(err, consensus.ErrEmptyBlock) {
			s.dropInvalid(result.Rejected)
			return database.Block{}, ErrNoTransactions
		}
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: update local state")

	if err := s.commit(result.Block); err != nil {
		return database.Block{}, err
	}

	s.dropInvalid(result.Rejected)

	return result.Block, nil
}

// dropInvalid removes transactions that can never apply. Failed ones stay,
// the sender may be funded before they expire.
func (s *State) dropInvalid(rejected []database.Receipt) {
	for _, receipt := range rejected {
		if receipt.Status == database.TxInvalid {
			s.evHandler("state: dropInvalid: drop tx[%s]: %s", receipt.TxHash, receipt.Err)
			s.mempool.Delete(receipt.TxHash)
		}
	}
}

// ProcessProposedBlock takes a block received from a peer, validates it and
// if that passes, writes the block to disk.
func (s *State) ProcessProposedBlock(block database.Block) error {
	s.evHandler("state: ProcessProposedBlock: started : block[%s]", block.Hash())
	defer s.evHandler("state: ProcessProposedBlock: completed")

	// If the runMiningOperation function is being executed it needs to stop
	// immediately. The G executing runMiningOperation will not return from the
	// function until done is called. That allows this function to complete
	// its state changes before a new mining operation takes place.
	if s.Worker != nil {
		done := s.Worker.SignalCancelMining()
		defer func() {
			s.evHandler("state: ProcessProposedBlock: signal runMiningOperation to terminate")
			done()
		}()
	}

	return s.commit(block)
}
