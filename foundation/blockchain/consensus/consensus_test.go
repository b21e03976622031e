package consensus_test

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/consensus"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/genesis"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/ledger"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/mempool"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/transition"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

// easy is a difficulty almost every hash satisfies.
const easy = math.MaxUint64

var (
	alice = common.HexToAddress("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")
	bob   = common.HexToAddress("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
	miner = common.HexToAddress("0xFef311483Cc040e1A89fb9bb469eeB8A70935EF8")
)

func key(t *testing.T) *ecdsa.PrivateKey {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}
	return pk
}

func transfer(t *testing.T, pk *ecdsa.PrivateKey, nonce uint64, fee uint64) database.Tx {
	tx, err := database.NewTxBuilder().
		To(bob).
		Value(uint256.NewInt(10)).
		GasPrice(uint256.NewInt(fee)).
		GasLimit(21).
		Nonce(nonce).
		Sign(pk)
	if err != nil {
		t.Fatalf("Should be able to sign transaction: %s", err)
	}
	return tx
}

func newEngine() *consensus.Engine {
	return consensus.New(consensus.Config{
		Transition:    transition.New(transition.Config{BlockReward: uint256.NewInt(700)}),
		TransPerBlock: 10,
	})
}

func start(t *testing.T) (database.Block, *ledger.Ledger) {
	gen := genesis.Genesis{
		Date:          time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
		TransPerBlock: 10,
		Difficulty:    easy,
		Balances:      map[string]uint64{alice.Hex(): 1_000_000},
	}

	block, l, err := consensus.Genesis(gen)
	if err != nil {
		t.Fatalf("Should be able to construct the genesis block: %s", err)
	}
	return block, l
}

// =============================================================================

func Test_Genesis(t *testing.T) {
	block, l := start(t)

	t.Log("Given the need to construct the genesis block.")
	{
		if block.Header.Height != 0 || block.Header.ParentHash != (common.Hash{}) || len(block.Trans) != 0 {
			t.Fatalf("\t%s\tShould be an empty block at height zero: %+v", failed, block.Header)
		}
		t.Logf("\t%s\tShould be an empty block at height zero.", success)

		root, _ := l.StateRoot()
		if root != block.Header.StateRoot {
			t.Fatalf("\t%s\tShould commit to the genesis ledger.", failed)
		}
		t.Logf("\t%s\tShould commit to the genesis ledger.", success)
	}
}

func Test_MineValidate(t *testing.T) {
	pk := key(t)
	engine := newEngine()
	head, l := start(t)

	t.Log("Given the need to mine a block and validate it on another node.")
	{
		mp := mempool.New(mempool.Config{})

		// The nonce 1 transaction pays more, so it comes out of the pool first
		// and must be held back until nonce 0 is included.
		for _, tx := range []database.Tx{transfer(t, pk, 0, 1), transfer(t, pk, 1, 5), transfer(t, pk, 7, 9)} {
			if err := mp.Submit(tx); err != nil {
				t.Fatalf("\t%s\tShould be able to submit transaction: %v", failed, err)
			}
		}

		result, err := engine.Mine(context.Background(), consensus.MineArgs{
			Head:       head,
			Miner:      miner,
			Difficulty: easy,
			Mempool:    mp,
			Ledger:     l,
		})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine a block: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to mine a block.", success)

		block := result.Block
		if len(block.Trans) != 2 || block.Trans[0].Nonce() != 0 || block.Trans[1].Nonce() != 1 {
			t.Fatalf("\t%s\tShould include the executable transactions in nonce order: got %d", failed, len(block.Trans))
		}
		t.Logf("\t%s\tShould include the executable transactions in nonce order.", success)

		if mp.Size() != 3 || l.Nonce(alice) != 0 {
			t.Fatalf("\t%s\tShould not modify the mempool or ledger while mining.", failed)
		}
		t.Logf("\t%s\tShould not modify the mempool or ledger while mining.", success)

		// An independent node starting from the same genesis.
		_, other := start(t)
		post, receipts, err := newEngine().Verify(block, head, other)
		if err != nil {
			t.Fatalf("\t%s\tShould validate the mined block: %v", failed, err)
		}
		t.Logf("\t%s\tShould validate the mined block.", success)

		if len(receipts) != 2 {
			t.Fatalf("\t%s\tShould get back a receipt per transaction: got %d", failed, len(receipts))
		}
		t.Logf("\t%s\tShould get back a receipt per transaction.", success)

		if got := post.Balance(miner).Uint64(); got != 700 {
			t.Fatalf("\t%s\tShould credit the miner with the block reward: got %d", failed, got)
		}
		if got := post.Balance(bob).Uint64(); got != 20 {
			t.Fatalf("\t%s\tShould credit the recipient: got %d", failed, got)
		}
		t.Logf("\t%s\tShould apply the block to the post state.", success)

		if other.Nonce(alice) != 0 {
			t.Fatalf("\t%s\tShould not modify the validating ledger.", failed)
		}
		t.Logf("\t%s\tShould not modify the validating ledger.", success)
	}
}

func Test_Reject(t *testing.T) {
	pk := key(t)
	engine := newEngine()
	head, l := start(t)

	mp := mempool.New(mempool.Config{})
	if err := mp.Submit(transfer(t, pk, 0, 1)); err != nil {
		t.Fatalf("Should be able to submit transaction: %s", err)
	}

	result, err := engine.Mine(context.Background(), consensus.MineArgs{Head: head, Miner: miner, Difficulty: easy, Mempool: mp, Ledger: l})
	if err != nil {
		t.Fatalf("Should be able to mine a block: %s", err)
	}
	good := result.Block

	type table struct {
		name   string
		mutate func(b *database.Block)
		err    error
	}

	tt := []table{
		{
			name:   "wrong height",
			mutate: func(b *database.Block) { b.Header.Height = 5 },
			err:    consensus.ErrInvalidHeight,
		},
		{
			name:   "wrong parent",
			mutate: func(b *database.Block) { b.Header.ParentHash = common.Hash{1} },
			err:    consensus.ErrParentHashMismatch,
		},
		{
			name:   "unsolved hash",
			mutate: func(b *database.Block) { b.Header.Difficulty = 1 },
			err:    consensus.ErrProofOfWork,
		},
		{
			name:   "early timestamp",
			mutate: func(b *database.Block) { b.Header.TimeStamp = head.Header.TimeStamp - 1 },
			err:    consensus.ErrTimestamp,
		},
		{
			name:   "missing transaction",
			mutate: func(b *database.Block) { b.Trans = nil },
			err:    consensus.ErrTransRootMismatch,
		},
		{
			name:   "wrong state root",
			mutate: func(b *database.Block) { b.Header.StateRoot = common.Hash{2} },
			err:    consensus.ErrStateRootMismatch,
		},
		{
			name:   "wrong receipt root",
			mutate: func(b *database.Block) { b.Header.ReceiptRoot = common.Hash{3} },
			err:    consensus.ErrReceiptRootMismatch,
		},
		{
			name: "replayed transaction",
			mutate: func(b *database.Block) {
				b.Trans = append(b.Trans, b.Trans[0])
				b.Header.TransRoot, _ = database.TransRoot(b.Trans)
			},
			err: consensus.ErrTxRejected,
		},
	}

	t.Log("Given the need to reject invalid blocks.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a block with a %s.", testID, tst.name)
			{
				f := func(t *testing.T) {
					candidate := good
					candidate.Trans = append([]database.Tx(nil), good.Trans...)
					tst.mutate(&candidate)

					err := engine.Validate(candidate, head, l)
					if !errors.Is(err, tst.err) {
						t.Fatalf("\t%s\tTest %d:\tShould reject the block with %v: got %v", failed, testID, tst.err, err)
					}
					t.Logf("\t%s\tTest %d:\tShould reject the block with %v.", success, testID, tst.err)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_Empty(t *testing.T) {
	pk := key(t)
	engine := newEngine()
	head, l := start(t)

	mp := mempool.New(mempool.Config{})
	if err := mp.Submit(transfer(t, pk, 3, 1)); err != nil {
		t.Fatalf("Should be able to submit transaction: %s", err)
	}

	t.Log("Given the need to skip mining when nothing can be included.")
	{
		_, err := engine.Mine(context.Background(), consensus.MineArgs{Head: head, Miner: miner, Difficulty: easy, Mempool: mp, Ledger: l})
		if !errors.Is(err, consensus.ErrEmptyBlock) {
			t.Fatalf("\t%s\tShould not mine a block without transactions: got %v", failed, err)
		}
		t.Logf("\t%s\tShould not mine a block without transactions.", success)
	}
}

func Test_Cancel(t *testing.T) {
	engine := newEngine()
	head, l := start(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	t.Log("Given the need to abandon mining.")
	{
		_, err := engine.Mine(ctx, consensus.MineArgs{
			Head:       head,
			Miner:      miner,
			Difficulty: 1,
			Mempool:    mempool.New(mempool.Config{}),
			Ledger:     l,
			AllowEmpty: true,
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("\t%s\tShould return the context error: got %v", failed, err)
		}
		t.Logf("\t%s\tShould return the context error.", success)
	}
}
