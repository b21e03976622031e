package consensus

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/ledger"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/mempool"
	"github.com/ethereum/go-ethereum/common"
)

// ErrEmptyBlock is returned when no transaction from the mempool could be
// included and empty blocks were not allowed.
var ErrEmptyBlock = errors.New("no transaction could be included")

// MineArgs represents the set of values required to mine a new block.
type MineArgs struct {
	Head       database.Block
	Miner      common.Address
	Difficulty uint64
	Mempool    *mempool.Mempool
	Ledger     *ledger.Ledger
	AllowEmpty bool
}

// MineResult represents a solved block along with the transactions that
// were left out of it.
type MineResult struct {
	Block    database.Block
	Receipts []database.Receipt
	Rejected []database.Receipt
}

// Mine assembles a candidate block on top of the head and performs the work
// to find a nonce that solves the proof of work. The mempool and ledger are
// never modified, mining works on private copies of both. Cancelling the
// context abandons the search and returns the context error. When nothing
// could be included ErrEmptyBlock is returned along with the rejections.
func (e *Engine) Mine(ctx context.Context, args MineArgs) (MineResult, error) {
	e.evHandler("consensus: Mine: MINING: started: blk[%d]", args.Head.Header.Height+1)
	defer e.evHandler("consensus: Mine: MINING: completed")

	trans, receipts, rejected, post := e.assemble(args.Mempool.Copy(), args.Ledger.Copy())
	if len(trans) == 0 && !args.AllowEmpty {
		return MineResult{Rejected: rejected}, ErrEmptyBlock
	}

	stateRoot, err := e.transition.Finalize(post, args.Miner)
	if err != nil {
		return MineResult{}, err
	}

	transRoot, err := database.TransRoot(trans)
	if err != nil {
		return MineResult{}, err
	}

	receiptRoot, err := database.ReceiptRoot(receipts)
	if err != nil {
		return MineResult{}, err
	}

	// Blocks mined in the same second as the parent share its timestamp.
	timestamp := uint64(e.now().UTC().Unix())
	if timestamp < args.Head.Header.TimeStamp {
		timestamp = args.Head.Header.TimeStamp
	}

	block := database.Block{
		Header: database.BlockHeader{
			Height:      args.Head.Header.Height + 1,
			ParentHash:  args.Head.Hash(),
			Miner:       args.Miner,
			TimeStamp:   timestamp,
			Difficulty:  args.Difficulty,
			TransRoot:   transRoot,
			ReceiptRoot: receiptRoot,
			StateRoot:   stateRoot,
		},
		Trans: trans,
	}

	if err := e.performPOW(ctx, &block); err != nil {
		return MineResult{}, err
	}

	return MineResult{Block: block, Receipts: receipts, Rejected: rejected}, nil
}

// assemble pulls transactions from the pool in priority order and applies
// them to the ledger. Failing transactions are left out. A transaction whose
// nonce is ahead of its sender is held back and retried once an earlier
// transaction from the same sender has been included.
func (e *Engine) assemble(pool *mempool.Mempool, l *ledger.Ledger) ([]database.Tx, []database.Receipt, []database.Receipt, *ledger.Ledger) {
	var trans []database.Tx
	var receipts []database.Receipt
	var rejected []database.Receipt

	deferred := make(map[common.Address][]database.Tx)

	include := func(tx database.Tx) bool {
		receipt := e.transition.ApplyTx(l, tx)
		if receipt.Status == database.TxConfirmed {
			trans = append(trans, tx)
			receipts = append(receipts, receipt)
			return true
		}

		if receipt.Status == database.TxInvalid && tx.Nonce() > l.Nonce(tx.From()) {
			deferred[tx.From()] = append(deferred[tx.From()], tx)
			e.evHandler("consensus: assemble: deferred: tx[%s]", tx)
			return false
		}

		rejected = append(rejected, receipt)
		return false
	}

	for len(trans) < e.transPerBlock {
		tx, ok := pool.TakeNext()
		if !ok {
			break
		}

		if !include(tx) {
			continue
		}

		// Retry held back transactions from this sender in nonce order for
		// as long as they keep lining up.
		from := tx.From()
		for len(trans) < e.transPerBlock && len(deferred[from]) > 0 {
			waiting := deferred[from]
			sort.Slice(waiting, func(i, j int) bool { return waiting[i].Nonce() < waiting[j].Nonce() })

			if waiting[0].Nonce() != l.Nonce(from) {
				break
			}

			next := waiting[0]
			deferred[from] = waiting[1:]

			if !include(next) {
				break
			}
		}
	}

	return trans, receipts, rejected, l
}

// performPOW does the work of mining to find a valid hash for the block.
// Pointer semantics are being used since a nonce is being discovered.
func (e *Engine) performPOW(ctx context.Context, b *database.Block) error {

	// Log the transactions that are a part of this potential block.
	for _, tx := range b.Trans {
		e.evHandler("consensus: performPOW: MINING: tx[%s]", tx)
	}

	// Choose a random starting point for the nonce. After this, the nonce
	// will be incremented by 1 until a solution is found by us or another node.
	nBig, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return fmt.Errorf("random nonce: %w", err)
	}
	b.Header.Nonce = nBig.Uint64()

	// Loop until we or another node finds a solution for the next block.
	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			e.evHandler("consensus: performPOW: MINING: attempts[%d]", attempts)
		}

		// Did we timeout trying to solve the problem.
		if err := ctx.Err(); err != nil {
			e.evHandler("consensus: performPOW: MINING: CANCELLED")
			return err
		}

		// Hash the block and check if we have solved the puzzle.
		hash := b.Hash()
		if !database.HashSolved(hash, b.Header.Difficulty) {
			b.Header.Nonce++
			continue
		}

		e.evHandler("consensus: performPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]", b.Header.ParentHash, hash)
		e.evHandler("consensus: performPOW: MINING: attempts[%d]", attempts)

		return nil
	}
}
