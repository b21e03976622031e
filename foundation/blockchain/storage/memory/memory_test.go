package memory_test

import (
	"testing"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/storage/memory"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/storage/storagetest"
	"github.com/stretchr/testify/require"
)

func Test_Storage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) database.Storage {
		strg, err := memory.New()
		require.NoError(t, err)
		return strg
	})
}
