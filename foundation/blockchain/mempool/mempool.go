// Package mempool maintains the bounded, priority ordered pool of pending
// transactions for the blockchain.
package mempool

import (
	"container/heap"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Set of errors returned when a transaction is not admitted.
var (
	ErrPoolFull             = errors.New("mempool is full")
	ErrDuplicateTransaction = errors.New("transaction already in mempool")
	ErrBelowMinimumFee      = errors.New("transaction fee below minimum")
	ErrInvalidSignature     = errors.New("transaction signature is invalid")
)

// DefaultCapacity is used when no capacity is configured.
const DefaultCapacity = 1024

// Config represents the configuration required to construct a mempool.
type Config struct {
	Capacity int
	MinFee   *uint256.Int
}

// Mempool represents a cache of pending transactions ordered by fee, with
// the sender nonce as the tie break.
type Mempool struct {
	mu       sync.Mutex
	capacity int
	minFee   *uint256.Int
	pool     map[common.Hash]*entry
	max      maxHeap
	min      minHeap
	now      func() time.Time
}

// New constructs a new mempool.
func New(cfg Config) *Mempool {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	minFee := new(uint256.Int)
	if cfg.MinFee != nil {
		minFee.Set(cfg.MinFee)
	}

	return &Mempool{
		capacity: capacity,
		minFee:   minFee,
		pool:     make(map[common.Hash]*entry),
		now:      time.Now,
	}
}

// Capacity returns the maximum number of transactions the pool holds.
func (mp *Mempool) Capacity() int {
	return mp.capacity
}

// Size returns the current number of transactions in the pool.
func (mp *Mempool) Size() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	return len(mp.pool)
}

// Contains reports whether the transaction is in the pool.
func (mp *Mempool) Contains(hash common.Hash) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	_, exists := mp.pool[hash]
	return exists
}

// Submit validates and admits a transaction. When the pool is at capacity
// the transaction is only admitted if its fee is higher than the fee of the
// lowest priority entry, which is then evicted.
func (mp *Mempool) Submit(tx database.Tx) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	fee := tx.GasPrice()
	if fee.Lt(mp.minFee) {
		return fmt.Errorf("%w: got %s, min %s", ErrBelowMinimumFee, fee, mp.minFee)
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	hash := tx.Hash()
	if _, exists := mp.pool[hash]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTransaction, hash)
	}

	if len(mp.pool) >= mp.capacity {
		lowest := mp.min[0]
		if !fee.Gt(lowest.fee) {
			return fmt.Errorf("%w: fee %s does not beat lowest fee %s", ErrPoolFull, fee, lowest.fee)
		}
		mp.remove(lowest)
	}

	mp.add(&entry{
		tx:    tx,
		hash:  hash,
		fee:   fee,
		nonce: tx.Nonce(),
		added: mp.now(),
	})

	return nil
}

// TakeNext removes and returns the highest priority transaction.
func (mp *Mempool) TakeNext() (database.Tx, bool) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if len(mp.max) == 0 {
		return database.Tx{}, false
	}

	e := mp.max[0]
	mp.remove(e)

	return e.tx, true
}

// Delete removes the transaction from the pool if present.
func (mp *Mempool) Delete(hash common.Hash) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	e, exists := mp.pool[hash]
	if !exists {
		return false
	}

	mp.remove(e)
	return true
}

// DeleteFunc removes every transaction the function matches and returns how
// many were removed.
func (mp *Mempool) DeleteFunc(fn func(tx database.Tx) bool) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var removed int
	for _, e := range mp.pool {
		if fn(e.tx) {
			mp.remove(e)
			removed++
		}
	}

	return removed
}

// Expire removes every transaction admitted before the specified time.
func (mp *Mempool) Expire(before time.Time) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var removed int
	for _, e := range mp.pool {
		if e.added.Before(before) {
			mp.remove(e)
			removed++
		}
	}

	return removed
}

// Clear removes all the transactions from the pool.
func (mp *Mempool) Clear() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[common.Hash]*entry)
	mp.max = nil
	mp.min = nil
}

// Copy returns a private copy of the pool. Taking transactions from the
// copy does not affect the original.
func (mp *Mempool) Copy() *Mempool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	cpy := Mempool{
		capacity: mp.capacity,
		minFee:   new(uint256.Int).Set(mp.minFee),
		pool:     make(map[common.Hash]*entry, len(mp.pool)),
		now:      mp.now,
	}

	for _, e := range mp.pool {
		cpy.add(&entry{
			tx:    e.tx,
			hash:  e.hash,
			fee:   e.fee,
			nonce: e.nonce,
			added: e.added,
		})
	}

	return &cpy
}

// Pending returns up to n transactions in priority order without removing
// them. Pass -1 for all the transactions.
func (mp *Mempool) Pending(n int) []database.Tx {
	mp.mu.Lock()
	entries := make([]*entry, len(mp.max))
	copy(entries, mp.max)
	mp.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		return higher(entries[i], entries[j])
	})

	if n < 0 || n > len(entries) {
		n = len(entries)
	}

	trans := make([]database.Tx, n)
	for i := range n {
		trans[i] = entries[i].tx
	}

	return trans
}

// =============================================================================

// add must be called while holding the lock.
func (mp *Mempool) add(e *entry) {
	mp.pool[e.hash] = e
	heap.Push(&mp.max, e)
	heap.Push(&mp.min, e)
}

// remove must be called while holding the lock.
func (mp *Mempool) remove(e *entry) {
	delete(mp.pool, e.hash)
	heap.Remove(&mp.max, e.maxIdx)
	heap.Remove(&mp.min, e.minIdx)
}
