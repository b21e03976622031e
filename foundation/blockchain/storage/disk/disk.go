// Package disk implements the ability to read and write blocks to disk
// with each block stored in its own file.
package disk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common"
)

// Disk represents the serialization implementation for reading and storing
// blocks in their own separate files on disk. This implements the
// database.Storage interface.
type Disk struct {
	dbPath string
}

// New constructs a Disk value for use.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, err
	}

	return &Disk{dbPath: dbPath}, nil
}

// Close in this implementation has nothing to do since a new file is
// written to disk for each new block and then immediately closed.
func (d *Disk) Close() error {
	return nil
}

// Put takes the specified block and stores it on disk in a file labeled
// with the block hash.
func (d *Disk) Put(blockData database.BlockData) error {

	// Marshal the block for writing to disk in a more human readable format.
	data, err := json.MarshalIndent(blockData, "", "  ")
	if err != nil {
		return err
	}

	// Write through a temp file and rename it into place.
	tmp := d.getPath(blockData.Hash) + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}

	return os.Rename(tmp, d.getPath(blockData.Hash))
}

// Get searches the blockchain on disk to locate and return the contents of
// the specified block by hash.
func (d *Disk) Get(hash common.Hash) (database.BlockData, error) {

	// Open the block file for the specified hash.
	f, err := os.OpenFile(d.getPath(hash), os.O_RDONLY, 0600)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return database.BlockData{}, fmt.Errorf("block %s: %w", hash, database.ErrNotFound)
		}
		return database.BlockData{}, err
	}
	defer f.Close()

	// Decode the contents of the block.
	var blockData database.BlockData
	if err := json.NewDecoder(f).Decode(&blockData); err != nil {
		return database.BlockData{}, err
	}

	return blockData, nil
}

// Remove deletes the file for the specified block.
func (d *Disk) Remove(hash common.Hash) error {
	if err := os.Remove(d.getPath(hash)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Contains reports whether a file exists for the specified block.
func (d *Disk) Contains(hash common.Hash) (bool, error) {
	_, err := os.Stat(d.getPath(hash))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Clear will clear out the blockchain on disk.
func (d *Disk) Clear() error {
	names, err := d.names()
	if err != nil {
		return err
	}

	for _, name := range names {
		if err := os.Remove(path.Join(d.dbPath, name)); err != nil {
			return err
		}
	}

	return nil
}

// Size returns the number of block files on disk.
func (d *Disk) Size() (int, error) {
	names, err := d.names()
	if err != nil {
		return 0, err
	}

	return len(names), nil
}

// ForEach walks through all the blocks on disk. The order is by file name,
// callers that need height order must sort.
func (d *Disk) ForEach(fn func(blockData database.BlockData) error) error {
	names, err := d.names()
	if err != nil {
		return err
	}

	for _, name := range names {
		blockData, err := d.Get(common.HexToHash(strings.TrimSuffix(name, ".json")))
		if err != nil {
			return err
		}

		if err := fn(blockData); err != nil {
			return err
		}
	}

	return nil
}

// names returns the block file names in the database directory.
func (d *Disk) names() ([]string, error) {
	entries, err := os.ReadDir(d.dbPath)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}

	return names, nil
}

// getPath forms the path to the specified block.
func (d *Disk) getPath(hash common.Hash) string {
	return path.Join(d.dbPath, fmt.Sprintf("%s.json", hash.Hex()))
}
