// Package bolt implements block storage on top of a bbolt database file.
package bolt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common"
	bolt "go.etcd.io/bbolt"
)

var bucket = []byte("blocks")

// Bolt represents the serialization implementation for reading and storing
// blocks in a single bbolt file. This implements the database.Storage
// interface.
type Bolt struct {
	db *bolt.DB
}

// New opens or creates the database file at the specified path.
func New(dbPath string) (*Bolt, error) {
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Close releases the database file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Put stores the specified block keyed by its hash.
func (b *Bolt) Put(blockData database.BlockData) error {
	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(blockData.Hash.Bytes(), data)
	})
}

// Get locates and returns the contents of the specified block by hash.
func (b *Bolt) Get(hash common.Hash) (database.BlockData, error) {
	var blockData database.BlockData

	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucket).Get(hash.Bytes())
		if data == nil {
			return fmt.Errorf("block %s: %w", hash, database.ErrNotFound)
		}

		// The slice is only valid inside the transaction.
		return json.Unmarshal(data, &blockData)
	})
	if err != nil {
		return database.BlockData{}, err
	}

	return blockData, nil
}

// Remove deletes the specified block.
func (b *Bolt) Remove(hash common.Hash) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete(hash.Bytes())
	})
}

// Contains reports whether the specified block is stored.
func (b *Bolt) Contains(hash common.Hash) (bool, error) {
	var exists bool

	err := b.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(bucket).Get(hash.Bytes()) != nil
		return nil
	})

	return exists, err
}

// Clear drops and recreates the block bucket.
func (b *Bolt) Clear() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucket)
		return err
	})
}

// Size returns the number of stored blocks.
func (b *Bolt) Size() (int, error) {
	var n int

	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			n++
		}
		return nil
	})

	return n, err
}

// ForEach walks through all the blocks in key order. The blocks are read in
// one transaction and handed to fn after it closes, so fn may write.
func (b *Bolt) ForEach(fn func(blockData database.BlockData) error) error {
	var blocks []database.BlockData

	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(_, data []byte) error {
			var blockData database.BlockData
			if err := json.Unmarshal(data, &blockData); err != nil {
				return err
			}
			blocks = append(blocks, blockData)
			return nil
		})
	})
	if err != nil {
		return err
	}

	for _, blockData := range blocks {
		if err := fn(blockData); err != nil {
			return err
		}
	}

	return nil
}
