// Package storage selects the block storage backend a node runs on.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/storage/bolt"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/storage/disk"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/storage/leveldb"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/storage/memory"
)

// Set of supported storage backends.
const (
	Memory  = "memory"
	Disk    = "disk"
	LevelDB = "leveldb"
	Bolt    = "bolt"
)

// Open constructs the named backend rooted at the specified path. The
// memory backend ignores the path.
func Open(kind string, dbPath string) (database.Storage, error) {
	switch kind {
	case Memory:
		return memory.New()

	case Disk:
		return disk.New(dbPath)

	case LevelDB:
		return leveldb.New(dbPath)

	case Bolt:
		if err := os.MkdirAll(dbPath, 0755); err != nil {
			return nil, err
		}
		return bolt.New(filepath.Join(dbPath, "blocks.bolt"))
	}

	return nil, fmt.Errorf("unknown storage backend %q", kind)
}
