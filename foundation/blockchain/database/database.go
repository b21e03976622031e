// Package database defines the entities shared by every part of the node:
// transactions, receipts, blocks, and the persistence contract for blocks.
package database

import (
	"github.com/ethereum/go-ethereum/common"
)

// Storage interface represents the behavior required to be implemented by
// any package providing support for storing and reading blocks. Blocks are
// keyed by their hash.
type Storage interface {
	Put(blockData BlockData) error
	Get(hash common.Hash) (BlockData, error)
	Remove(hash common.Hash) error
	Contains(hash common.Hash) (bool, error)
	Clear() error
	Size() (int, error)
	ForEach(fn func(blockData BlockData) error) error
	Close() error
}
