// Package consensus validates candidate blocks against the chain head and
// mines new blocks under the proof of work difficulty rule.
package consensus

import (
	"errors"
	"fmt"
	"time"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/genesis"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/ledger"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/signature"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/transition"
)

// Set of errors returned when a block is rejected.
var (
	ErrInvalidHeight       = errors.New("invalid block height")
	ErrParentHashMismatch  = errors.New("parent hash mismatch")
	ErrProofOfWork         = errors.New("proof of work not satisfied")
	ErrStateRootMismatch   = errors.New("state root mismatch")
	ErrTransRootMismatch   = errors.New("transaction root mismatch")
	ErrReceiptRootMismatch = errors.New("receipt root mismatch")
	ErrTimestamp           = errors.New("block timestamp before parent")
	ErrTxRejected          = errors.New("block transaction rejected")
)

// EventHandler defines a function that is called when events occur in the
// processing of blocks.
type EventHandler func(v string, args ...any)

// Config represents the configuration required to construct an engine.
type Config struct {
	Transition    *transition.Engine
	TransPerBlock int
	EvHandler     EventHandler
}

// Engine validates and mines blocks.
type Engine struct {
	transition    *transition.Engine
	transPerBlock int
	evHandler     EventHandler
	now           func() time.Time
}

// New constructs a consensus engine.
func New(cfg Config) *Engine {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	engine := cfg.Transition
	if engine == nil {
		engine = transition.New(transition.Config{EvHandler: transition.EventHandler(ev)})
	}

	transPerBlock := cfg.TransPerBlock
	if transPerBlock <= 0 {
		transPerBlock = 1
	}

	return &Engine{
		transition:    engine,
		transPerBlock: transPerBlock,
		evHandler:     ev,
		now:           time.Now,
	}
}

// Transition returns the state transition engine used to replay blocks.
func (e *Engine) Transition() *transition.Engine {
	return e.transition
}

// =============================================================================

// Genesis constructs block 0 and the ledger it commits to. The genesis block
// carries no transactions and is not subject to the proof of work rule.
func Genesis(gen genesis.Genesis) (database.Block, *ledger.Ledger, error) {
	l := ledger.New(gen.Accounts())

	root, err := l.StateRoot()
	if err != nil {
		return database.Block{}, nil, err
	}

	block := database.Block{
		Header: database.BlockHeader{
			Height:     0,
			ParentHash: signature.ZeroHash,
			TimeStamp:  uint64(gen.Date.UTC().Unix()),
			Difficulty: gen.Difficulty,
			StateRoot:  root,
		},
	}

	return block, l, nil
}

// =============================================================================

// Validate checks the candidate block can be appended on top of the head.
// The ledger must represent the state at the head and is not modified. A nil
// error means the candidate is valid.
func (e *Engine) Validate(candidate database.Block, head database.Block, l *ledger.Ledger) error {
	_, _, err := e.Verify(candidate, head, l)
	return err
}

// Verify performs the same checks as Validate and on success returns the
// ledger after applying the candidate along with the receipts, so the
// caller can commit without replaying the block again.
func (e *Engine) Verify(candidate database.Block, head database.Block, l *ledger.Ledger) (*ledger.Ledger, []database.Receipt, error) {
	h := candidate.Header
	e.evHandler("consensus: Verify: validate: blk[%d]: started", h.Height)

	e.evHandler("consensus: Verify: validate: blk[%d]: check: block height is the next height", h.Height)

	if next := head.Header.Height + 1; h.Height != next {
		return nil, nil, fmt.Errorf("%w: got %d, exp %d", ErrInvalidHeight, h.Height, next)
	}

	e.evHandler("consensus: Verify: validate: blk[%d]: check: parent hash does match parent block", h.Height)

	if parent := head.Hash(); h.ParentHash != parent {
		return nil, nil, fmt.Errorf("%w: got %s, exp %s", ErrParentHashMismatch, h.ParentHash, parent)
	}

	e.evHandler("consensus: Verify: validate: blk[%d]: check: block timestamp is not before parent", h.Height)

	if h.TimeStamp < head.Header.TimeStamp {
		return nil, nil, fmt.Errorf("%w: parent %d, block %d", ErrTimestamp, head.Header.TimeStamp, h.TimeStamp)
	}

	e.evHandler("consensus: Verify: validate: blk[%d]: check: block hash has been solved", h.Height)

	if hash := candidate.Hash(); !database.HashSolved(hash, h.Difficulty) {
		return nil, nil, fmt.Errorf("%w: hash %s, difficulty %d", ErrProofOfWork, hash, h.Difficulty)
	}

	e.evHandler("consensus: Verify: validate: blk[%d]: check: merkle root does match transactions", h.Height)

	transRoot, err := database.TransRoot(candidate.Trans)
	if err != nil {
		return nil, nil, err
	}
	if transRoot != h.TransRoot {
		return nil, nil, fmt.Errorf("%w: got %s, exp %s", ErrTransRootMismatch, h.TransRoot, transRoot)
	}

	e.evHandler("consensus: Verify: validate: blk[%d]: check: replay transactions", h.Height)

	post := l.Copy()
	result, err := e.transition.ApplyBlock(post, candidate.Trans, h.Miner, transition.ModeValidation)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrTxRejected, err)
	}

	e.evHandler("consensus: Verify: validate: blk[%d]: check: receipt root does match replay", h.Height)

	receiptRoot, err := database.ReceiptRoot(result.Receipts)
	if err != nil {
		return nil, nil, err
	}
	if receiptRoot != h.ReceiptRoot {
		return nil, nil, fmt.Errorf("%w: got %s, exp %s", ErrReceiptRootMismatch, h.ReceiptRoot, receiptRoot)
	}

	e.evHandler("consensus: Verify: validate: blk[%d]: check: state root does match replay", h.Height)

	if result.StateRoot != h.StateRoot {
		return nil, nil, fmt.Errorf("%w: got %s, exp %s", ErrStateRootMismatch, h.StateRoot, result.StateRoot)
	}

	e.evHandler("consensus: Verify: validate: blk[%d]: completed", h.Height)

	return post, result.Receipts, nil
}
