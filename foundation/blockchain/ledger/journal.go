package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// journalEntry is a modification that can be reverted.
type journalEntry interface {
	revert(l *Ledger)
}

type createAccount struct {
	address common.Address
}

func (ch createAccount) revert(l *Ledger) {
	delete(l.accounts, ch.address)
}

type balanceChange struct {
	address common.Address
	prev    *uint256.Int
}

func (ch balanceChange) revert(l *Ledger) {
	l.accounts[ch.address].Balance = ch.prev
}

type nonceChange struct {
	address common.Address
	prev    uint64
}

func (ch nonceChange) revert(l *Ledger) {
	l.accounts[ch.address].Nonce = ch.prev
}

type codeChange struct {
	address common.Address
	prev    []byte
}

func (ch codeChange) revert(l *Ledger) {
	l.accounts[ch.address].Code = ch.prev
}

type storageChange struct {
	address common.Address
	key     common.Hash
	prev    common.Hash
	existed bool
}

func (ch storageChange) revert(l *Ledger) {
	storage := l.accounts[ch.address].Storage
	if !ch.existed {
		delete(storage, ch.key)
		return
	}
	storage[ch.key] = ch.prev
}

// =============================================================================

// Snapshot returns an identifier for the current revision of the ledger.
func (l *Ledger) Snapshot() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := len(l.snapshots)
	l.snapshots = append(l.snapshots, len(l.journal))

	return id
}

// RevertToSnapshot undoes every modification made since the snapshot was
// taken. Snapshots taken after the specified one are invalidated.
func (l *Ledger) RevertToSnapshot(id int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if id < 0 || id >= len(l.snapshots) {
		return fmt.Errorf("%w: %d", ErrInvalidSnapshot, id)
	}

	mark := l.snapshots[id]
	for i := len(l.journal) - 1; i >= mark; i-- {
		l.journal[i].revert(l)
	}

	l.journal = l.journal[:mark]
	l.snapshots = l.snapshots[:id]

	return nil
}

// Finalize discards the journal making the current state permanent. Existing
// snapshots can no longer be reverted to.
func (l *Ledger) Finalize() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.journal = nil
	l.snapshots = nil
}
