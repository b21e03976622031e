package commands_test

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/ArthurBonsu/tinc-blockchain/app/tooling/admin/commands"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/genesis"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/state"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/storage/memory"
	"github.com/stretchr/testify/require"
)

const alice = "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"

func newState(t *testing.T) *state.State {
	strg, err := memory.New()
	require.NoError(t, err)

	st, err := state.New(state.Config{
		Genesis: genesis.Genesis{
			Date:          time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
			TransPerBlock: 10,
			Difficulty:    math.MaxUint64,
			Balances:      map[string]uint64{alice: 1_000},
		},
		Storage: strg,
	})
	require.NoError(t, err)

	return st
}

func TestCommands(t *testing.T) {
	st := newState(t)

	var buf bytes.Buffer
	require.NoError(t, commands.Balances(&buf, "", st))
	require.Contains(t, buf.String(), alice)
	require.Contains(t, buf.String(), "Balance: 1000")

	buf.Reset()
	require.Error(t, commands.Balances(&buf, "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32", st))

	buf.Reset()
	require.NoError(t, commands.Blocks(&buf, "", "", st))
	require.Contains(t, buf.String(), "Block: 0")

	buf.Reset()
	require.NoError(t, commands.Verify(&buf, st))
	require.Contains(t, buf.String(), "Chain OK  Blocks: 1")
}
