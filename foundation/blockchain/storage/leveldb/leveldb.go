// Package leveldb implements block storage on top of a LevelDB database.
package leveldb

import (
	"encoding/json"
	"fmt"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
)

// Database tuning values.
const (
	cacheMB = 16
	handles = 16
)

// blockPrefix is prepended to the block hash to form a key.
var blockPrefix = []byte("b")

// LevelDB represents the serialization implementation for reading and
// storing blocks in LevelDB. This implements the database.Storage interface.
type LevelDB struct {
	db *leveldb.Database
}

// New opens or creates the database in the specified directory.
func New(dbPath string) (*LevelDB, error) {
	db, err := leveldb.New(dbPath, cacheMB, handles, "blocks/", false)
	if err != nil {
		return nil, fmt.Errorf("open leveldb: %w", err)
	}

	return &LevelDB{db: db}, nil
}

// Close releases the database.
func (l *LevelDB) Close() error {
	return l.db.Close()
}

// Put stores the specified block keyed by its hash.
func (l *LevelDB) Put(blockData database.BlockData) error {
	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	return l.db.Put(key(blockData.Hash), data)
}

// Get locates and returns the contents of the specified block by hash.
func (l *LevelDB) Get(hash common.Hash) (database.BlockData, error) {
	exists, err := l.db.Has(key(hash))
	if err != nil {
		return database.BlockData{}, err
	}
	if !exists {
		return database.BlockData{}, fmt.Errorf("block %s: %w", hash, database.ErrNotFound)
	}

	data, err := l.db.Get(key(hash))
	if err != nil {
		return database.BlockData{}, err
	}

	var blockData database.BlockData
	if err := json.Unmarshal(data, &blockData); err != nil {
		return database.BlockData{}, err
	}

	return blockData, nil
}

// Remove deletes the specified block.
func (l *LevelDB) Remove(hash common.Hash) error {
	return l.db.Delete(key(hash))
}

// Contains reports whether the specified block is stored.
func (l *LevelDB) Contains(hash common.Hash) (bool, error) {
	return l.db.Has(key(hash))
}

// Clear deletes every stored block in a single batch.
func (l *LevelDB) Clear() error {
	it := l.db.NewIterator(blockPrefix, nil)
	defer it.Release()

	batch := l.db.NewBatch()
	for it.Next() {
		if err := batch.Delete(common.CopyBytes(it.Key())); err != nil {
			return err
		}
	}
	if err := it.Error(); err != nil {
		return err
	}

	return batch.Write()
}

// Size returns the number of stored blocks.
func (l *LevelDB) Size() (int, error) {
	it := l.db.NewIterator(blockPrefix, nil)
	defer it.Release()

	var n int
	for it.Next() {
		n++
	}

	return n, it.Error()
}

// ForEach walks through all the blocks in key order.
func (l *LevelDB) ForEach(fn func(blockData database.BlockData) error) error {
	it := l.db.NewIterator(blockPrefix, nil)
	defer it.Release()

	for it.Next() {
		var blockData database.BlockData
		if err := json.Unmarshal(it.Value(), &blockData); err != nil {
			return err
		}

		if err := fn(blockData); err != nil {
			return err
		}
	}

	return it.Error()
}

func key(hash common.Hash) []byte {
	return append(common.CopyBytes(blockPrefix), hash.Bytes()...)
}
