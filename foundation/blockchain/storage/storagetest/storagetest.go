// Package storagetest provides a conformance suite every database.Storage
// implementation must pass.
package storagetest

import (
	"errors"
	"testing"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

// Blocks constructs a linked chain of n blocks, each carrying one signed
// transaction.
func Blocks(t *testing.T, n int) []database.Block {
	t.Helper()

	pk, err := crypto.HexToECDSA(pkHexKey)
	require.NoError(t, err)

	to := common.HexToAddress("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")

	var blocks []database.Block
	var parent common.Hash
	for i := range n {
		tx, err := database.NewTxBuilder().
			To(to).
			Value(uint256.NewInt(uint64(i + 1))).
			GasPrice(uint256.NewInt(1)).
			GasLimit(21).
			Nonce(uint64(i)).
			Sign(pk)
		require.NoError(t, err)

		trans := []database.Tx{tx}
		root, err := database.TransRoot(trans)
		require.NoError(t, err)

		block := database.Block{
			Header: database.BlockHeader{
				Height:     uint64(i),
				ParentHash: parent,
				TimeStamp:  uint64(1_700_000_000 + i),
				Difficulty: 1 << 60,
				TransRoot:  root,
			},
			Trans: trans,
		}

		blocks = append(blocks, block)
		parent = block.Hash()
	}

	return blocks
}

// Run exercises the storage returned by open against the database.Storage
// contract. The storage is closed when the suite completes.
func Run(t *testing.T, open func(t *testing.T) database.Storage) {
	t.Run("put get", func(t *testing.T) {
		strg := open(t)
		defer strg.Close()

		blocks := Blocks(t, 3)
		for _, block := range blocks {
			require.NoError(t, strg.Put(database.NewBlockData(block)))
		}

		for _, block := range blocks {
			blockData, err := strg.Get(block.Hash())
			require.NoError(t, err)

			got, err := database.ToBlock(blockData)
			require.NoError(t, err)

			assert.Equal(t, block.Hash(), got.Hash())
			require.Len(t, got.Trans, 1)
			assert.Equal(t, block.Trans[0].Hash(), got.Trans[0].Hash())
		}

		size, err := strg.Size()
		require.NoError(t, err)
		assert.Equal(t, 3, size)
	})

	t.Run("missing", func(t *testing.T) {
		strg := open(t)
		defer strg.Close()

		_, err := strg.Get(common.Hash{1})
		assert.True(t, errors.Is(err, database.ErrNotFound), "got %v", err)

		exists, err := strg.Contains(common.Hash{1})
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("put is idempotent", func(t *testing.T) {
		strg := open(t)
		defer strg.Close()

		block := Blocks(t, 1)[0]
		require.NoError(t, strg.Put(database.NewBlockData(block)))
		require.NoError(t, strg.Put(database.NewBlockData(block)))

		size, err := strg.Size()
		require.NoError(t, err)
		assert.Equal(t, 1, size)
	})

	t.Run("remove clear", func(t *testing.T) {
		strg := open(t)
		defer strg.Close()

		blocks := Blocks(t, 3)
		for _, block := range blocks {
			require.NoError(t, strg.Put(database.NewBlockData(block)))
		}

		require.NoError(t, strg.Remove(blocks[1].Hash()))

		exists, err := strg.Contains(blocks[1].Hash())
		require.NoError(t, err)
		assert.False(t, exists)

		exists, err = strg.Contains(blocks[2].Hash())
		require.NoError(t, err)
		assert.True(t, exists)

		require.NoError(t, strg.Clear())

		size, err := strg.Size()
		require.NoError(t, err)
		assert.Zero(t, size)
	})

	t.Run("for each", func(t *testing.T) {
		strg := open(t)
		defer strg.Close()

		blocks := Blocks(t, 4)
		for _, block := range blocks {
			require.NoError(t, strg.Put(database.NewBlockData(block)))
		}

		seen := make(map[common.Hash]bool)
		err := strg.ForEach(func(blockData database.BlockData) error {
			seen[blockData.Hash] = true
			return nil
		})
		require.NoError(t, err)

		assert.Len(t, seen, len(blocks))
		for _, block := range blocks {
			assert.True(t, seen[block.Hash()])
		}

		stop := errors.New("stop")
		var calls int
		err = strg.ForEach(func(database.BlockData) error {
			calls++
			return stop
		})
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 1, calls)
	})
}
