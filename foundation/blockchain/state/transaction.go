package state

import (
	"errors"
	"fmt"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
)

// ErrStaleNonce is returned when a transaction reuses a nonce the sender
// has already consumed on chain.
var ErrStaleNonce = errors.New("nonce already used")

// SubmitTransaction accepts a transaction from a wallet for inclusion and
// shares it with the known peers.
func (s *State) SubmitTransaction(tx database.Tx) error {
	if err := s.SubmitNodeTransaction(tx); err != nil {
		return err
	}

	if s.Worker != nil {
		s.Worker.SignalShareTx(tx)
	}

	return nil
}

// SubmitNodeTransaction accepts a transaction shared by a peer. It is not
// shared again since the peer already sent it to everyone it knows.
func (s *State) SubmitNodeTransaction(tx database.Tx) error {
	if err := s.validateTransaction(tx); err != nil {
		return err
	}

	if err := s.mempool.Submit(tx); err != nil {
		return err
	}

	s.evHandler("state: SubmitNodeTransaction: tx[%s] accepted: mempool[%d]", tx, s.mempool.Size())

	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}

	return nil
}

// validateTransaction checks the transaction against the current ledger.
// Checks that depend on order, like the exact nonce and the balance, are
// left to block assembly.
func (s *State) validateTransaction(tx database.Tx) error {
	s.mu.RLock()
	nonce := s.ledger.Nonce(tx.From())
	s.mu.RUnlock()

	if tx.Nonce() < nonce {
		return fmt.Errorf("tx[%s] account nonce %d: %w", tx, nonce, ErrStaleNonce)
	}

	return nil
}
