// Package memory implements the ability to read and write blocks to memory
// using a map keyed by block hash.
package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common"
)

// Memory represents the serialization implementation for reading and storing
// blocks in memory. This implements the database.Storage interface.
type Memory struct {
	mu     sync.RWMutex
	blocks map[common.Hash]database.BlockData
}

// New constructs an Memory value for use.
func New() (*Memory, error) {
	return &Memory{blocks: make(map[common.Hash]database.BlockData)}, nil
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Put takes the specified block and stores it in memory.
func (m *Memory) Put(blockData database.BlockData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks[blockData.Hash] = blockData
	return nil
}

// Get locates and returns the contents of the specified block by hash.
func (m *Memory) Get(hash common.Hash) (database.BlockData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blockData, exists := m.blocks[hash]
	if !exists {
		return database.BlockData{}, fmt.Errorf("block %s: %w", hash, database.ErrNotFound)
	}

	return blockData, nil
}

// Remove deletes the specified block. Removing a missing block is not an error.
func (m *Memory) Remove(hash common.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.blocks, hash)
	return nil
}

// Contains reports whether the specified block is stored.
func (m *Memory) Contains(hash common.Hash) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.blocks[hash]
	return exists, nil
}

// Clear will clear out the blockchain in memory.
func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = make(map[common.Hash]database.BlockData)
	return nil
}

// Size returns the number of stored blocks.
func (m *Memory) Size() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.blocks), nil
}

// ForEach walks through all the blocks in height order.
func (m *Memory) ForEach(fn func(blockData database.BlockData) error) error {
	m.mu.RLock()
	blocks := make([]database.BlockData, 0, len(m.blocks))
	for _, blockData := range m.blocks {
		blocks = append(blocks, blockData)
	}
	m.mu.RUnlock()

	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].Header.Height < blocks[j].Header.Height
	})

	for _, blockData := range blocks {
		if err := fn(blockData); err != nil {
			return err
		}
	}

	return nil
}
