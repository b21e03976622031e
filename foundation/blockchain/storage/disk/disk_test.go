package disk_test

import (
	"testing"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/storage/disk"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/storage/storagetest"
	"github.com/stretchr/testify/require"
)

func Test_Storage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) database.Storage {
		strg, err := disk.New(t.TempDir())
		require.NoError(t, err)
		return strg
	})
}

func Test_Reopen(t *testing.T) {
	dir := t.TempDir()
	block := storagetest.Blocks(t, 1)[0]

	strg, err := disk.New(dir)
	require.NoError(t, err)
	require.NoError(t, strg.Put(database.NewBlockData(block)))
	require.NoError(t, strg.Close())

	strg, err = disk.New(dir)
	require.NoError(t, err)

	blockData, err := strg.Get(block.Hash())
	require.NoError(t, err)
	require.Equal(t, block.Header, blockData.Header)
}
