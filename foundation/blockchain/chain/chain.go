// Package chain maintains the append-only, height indexed sequence of
// validated blocks on top of a block storage.
package chain

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common"
)

// Set of errors returned by the chain store.
var (
	ErrHeightOccupied = errors.New("height already occupied")
	ErrHeightGap      = errors.New("block does not extend the head")
	ErrNotFound       = errors.New("block not found")
	ErrBrokenLink     = errors.New("stored block does not link to its parent")
)

// Chain is the height index over the stored blocks. Blocks handed to
// AddBlock must already have passed consensus validation.
type Chain struct {
	mu      sync.RWMutex
	storage database.Storage
	heights []common.Hash
	blocks  map[common.Hash]database.Block
}

// New constructs a chain over the storage, rebuilding the height index from
// the blocks already stored. Every stored block must link to the block
// below it.
func New(storage database.Storage) (*Chain, error) {
	var blocks []database.Block
	err := storage.ForEach(func(blockData database.BlockData) error {
		block, err := database.ToBlock(blockData)
		if err != nil {
			return err
		}
		blocks = append(blocks, block)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}

	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].Header.Height < blocks[j].Header.Height
	})

	c := Chain{
		storage: storage,
		blocks:  make(map[common.Hash]database.Block, len(blocks)),
	}

	for i, block := range blocks {
		if block.Header.Height != uint64(i) {
			return nil, fmt.Errorf("block at index %d has height %d: %w", i, block.Header.Height, ErrHeightGap)
		}

		if i > 0 && block.Header.ParentHash != c.heights[i-1] {
			return nil, fmt.Errorf("height %d: %w", block.Header.Height, ErrBrokenLink)
		}

		hash := block.Hash()
		c.heights = append(c.heights, hash)
		c.blocks[hash] = block
	}

	return &c, nil
}

// AddBlock appends the block as the new head. The block must sit directly
// on top of the current head, or at height zero for an empty chain.
func (c *Chain) AddBlock(block database.Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	height := block.Header.Height
	length := uint64(len(c.heights))

	switch {
	case height < length:
		return fmt.Errorf("height %d: %w", height, ErrHeightOccupied)
	case height > length:
		return fmt.Errorf("height %d, length %d: %w", height, length, ErrHeightGap)
	}

	if length > 0 && block.Header.ParentHash != c.heights[length-1] {
		return fmt.Errorf("height %d: %w", height, ErrBrokenLink)
	}

	if err := c.storage.Put(database.NewBlockData(block)); err != nil {
		return fmt.Errorf("store block: %w", err)
	}

	hash := block.Hash()
	c.heights = append(c.heights, hash)
	c.blocks[hash] = block

	return nil
}

// Head returns the block at the greatest height.
func (c *Chain) Head() (database.Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.heights) == 0 {
		return database.Block{}, ErrNotFound
	}

	return c.blocks[c.heights[len(c.heights)-1]], nil
}

// ByHeight returns the block at the specified height.
func (c *Chain) ByHeight(height uint64) (database.Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if height >= uint64(len(c.heights)) {
		return database.Block{}, fmt.Errorf("height %d: %w", height, ErrNotFound)
	}

	return c.blocks[c.heights[height]], nil
}

// ByHash returns the block with the specified hash.
func (c *Chain) ByHash(hash common.Hash) (database.Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	block, exists := c.blocks[hash]
	if !exists {
		return database.Block{}, fmt.Errorf("hash %s: %w", hash, ErrNotFound)
	}

	return block, nil
}

// Range returns the blocks from height from through to inclusive, clamped
// to the chain.
func (c *Chain) Range(from uint64, to uint64) []database.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	length := uint64(len(c.heights))
	if length == 0 || from >= length || from > to {
		return nil
	}
	if to >= length {
		to = length - 1
	}

	blocks := make([]database.Block, 0, to-from+1)
	for h := from; h <= to; h++ {
		blocks = append(blocks, c.blocks[c.heights[h]])
	}

	return blocks
}

// Length returns the number of blocks in the chain.
func (c *Chain) Length() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return uint64(len(c.heights))
}

// Reset removes every block from the chain and the storage.
func (c *Chain) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.storage.Clear(); err != nil {
		return err
	}

	c.heights = nil
	c.blocks = make(map[common.Hash]database.Block)

	return nil
}
