package bolt_test

import (
	"path/filepath"
	"testing"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/storage/bolt"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/storage/storagetest"
	"github.com/stretchr/testify/require"
)

func Test_Storage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) database.Storage {
		strg, err := bolt.New(filepath.Join(t.TempDir(), "blocks.db"))
		require.NoError(t, err)
		return strg
	})
}
