// Package transition applies ordered transactions to the ledger. Every
// transaction is applied under its own snapshot so a failure only rolls back
// its own effects.
package transition

import (
	"errors"
	"fmt"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/ledger"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/vm"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Set of errors that mark a transaction as invalid or failed.
var (
	ErrNonceMismatch       = errors.New("nonce mismatch")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrContractCollision   = errors.New("contract address already in use")
)

// Mode selects how failing transactions are treated when applying a block.
type Mode int

// Set of application modes.
const (
	// ModeMining drops failing transactions from the block being assembled.
	ModeMining Mode = iota

	// ModeValidation rejects the whole block if any transaction fails.
	ModeValidation
)

// String implements the fmt.Stringer interface.
func (m Mode) String() string {
	if m == ModeValidation {
		return "validation"
	}
	return "mining"
}

// EventHandler defines a function that is called when events occur in the
// processing of transactions.
type EventHandler func(v string, args ...any)

// Config represents the configuration required to construct an engine.
type Config struct {
	BlockReward *uint256.Int
	EvHandler   EventHandler
}

// Engine applies transactions and blocks to a ledger.
type Engine struct {
	reward    *uint256.Int
	evHandler EventHandler
}

// New constructs an engine for applying transactions.
func New(cfg Config) *Engine {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	reward := new(uint256.Int)
	if cfg.BlockReward != nil {
		reward.Set(cfg.BlockReward)
	}

	return &Engine{
		reward:    reward,
		evHandler: ev,
	}
}

// BlockReward returns the fixed amount credited to the miner of every block.
func (e *Engine) BlockReward() *uint256.Int {
	return new(uint256.Int).Set(e.reward)
}

// =============================================================================

// Result represents the outcome of applying a set of transactions.
type Result struct {
	Trans     []database.Tx
	Receipts  []database.Receipt
	Rejected  []database.Receipt
	StateRoot common.Hash
}

// ApplyBlock applies the ordered transactions to the ledger, credits the
// miner with the block reward and returns the resulting state root. In
// ModeMining failing transactions are left out of the result. In
// ModeValidation the first failing transaction aborts with an error and the
// ledger is left in an undefined state, so callers validate against a copy.
func (e *Engine) ApplyBlock(l *ledger.Ledger, trans []database.Tx, miner common.Address, mode Mode) (Result, error) {
	e.evHandler("transition: ApplyBlock: started: mode[%s] txs[%d]", mode, len(trans))
	defer e.evHandler("transition: ApplyBlock: completed")

	var result Result

	for _, tx := range trans {
		receipt := e.ApplyTx(l, tx)

		if receipt.Status != database.TxConfirmed {
			if mode == ModeValidation {
				return Result{}, fmt.Errorf("tx[%s] %s: %s", tx.Hash(), receipt.Status, receipt.Err)
			}

			result.Rejected = append(result.Rejected, receipt)
			continue
		}

		result.Trans = append(result.Trans, tx)
		result.Receipts = append(result.Receipts, receipt)
	}

	root, err := e.Finalize(l, miner)
	if err != nil {
		return Result{}, err
	}
	result.StateRoot = root

	return result, nil
}

// Finalize credits the miner with the block reward, makes the ledger changes
// permanent and returns the resulting state root.
func (e *Engine) Finalize(l *ledger.Ledger, miner common.Address) (common.Hash, error) {
	if err := l.AddBalance(miner, e.reward); err != nil {
		return common.Hash{}, fmt.Errorf("miner reward: %w", err)
	}
	l.Finalize()

	e.evHandler("transition: Finalize: reward: miner[%s] amount[%s]", miner, e.reward)

	return l.StateRoot()
}

// ApplyTx applies a single transaction to the ledger and returns its receipt.
// A transaction that is not confirmed leaves the ledger untouched.
func (e *Engine) ApplyTx(l *ledger.Ledger, tx database.Tx) database.Receipt {
	snapshot := l.Snapshot()

	receipt, err := e.applyTx(l, tx)
	if err != nil {
		if rerr := l.RevertToSnapshot(snapshot); rerr != nil {
			e.evHandler("transition: ApplyTx: ERROR: revert: %s", rerr)
		}

		receipt.Err = err.Error()
		e.evHandler("transition: ApplyTx: tx[%s] %s: %s", tx, receipt.Status, err)
		return receipt
	}

	e.evHandler("transition: ApplyTx: tx[%s] %s: gas[%d]", tx, receipt.Status, receipt.GasUsed)
	return receipt
}

// applyTx performs the steps for applying the transaction. Any returned error
// means the caller must roll back.
func (e *Engine) applyTx(l *ledger.Ledger, tx database.Tx) (database.Receipt, error) {
	receipt := database.Receipt{
		TxHash: tx.Hash(),
		Status: database.TxInvalid,
	}

	if err := tx.Validate(); err != nil {
		return receipt, err
	}

	from := tx.From()
	l.CreateAccount(from)

	if nonce := l.Nonce(from); tx.Nonce() != nonce {
		return receipt, fmt.Errorf("%w: got %d, exp %d", ErrNonceMismatch, tx.Nonce(), nonce)
	}

	receipt.Status = database.TxFailed

	cost, err := tx.Cost()
	if err != nil {
		return receipt, err
	}

	if err := l.SubBalance(from, cost); err != nil {
		return receipt, fmt.Errorf("%w: %s", ErrInsufficientBalance, err)
	}
	l.IncrementNonce(from)

	switch to := tx.To(); {
	case to == nil:
		address, err := e.create(l, tx)
		if err != nil {
			return receipt, err
		}
		receipt.ContractAddress = address

	case len(l.Code(*to)) > 0:
		gasUsed, callErr := e.call(l, tx, *to)
		receipt.GasUsed = gasUsed
		if callErr != nil {
			receipt.CallErr = callErr.Error()
		}

	default:
		if err := l.AddBalance(*to, tx.Value()); err != nil {
			return receipt, err
		}
	}

	receipt.Status = database.TxConfirmed
	return receipt, nil
}

// create deploys the payload as code at the address derived from the sender
// and the sender nonce before it was incremented.
func (e *Engine) create(l *ledger.Ledger, tx database.Tx) (common.Address, error) {
	address := database.ContractAddress(tx.From(), tx.Nonce())

	if acct, exists := l.Account(address); exists && (acct.IsContract() || acct.Nonce > 0) {
		return common.Address{}, fmt.Errorf("%w: %s", ErrContractCollision, address)
	}

	l.CreateAccount(address)
	l.SetCode(address, tx.Data())

	if err := l.AddBalance(address, tx.Value()); err != nil {
		return common.Address{}, err
	}

	e.evHandler("transition: create: tx[%s] contract[%s] code[%d]", tx, address, len(tx.Data()))

	return address, nil
}

// call runs the recipient's code with the payload as input. A failing call
// keeps the transaction confirmed with the fee charged, but the value goes
// back to the sender and the call's storage writes are dropped.
func (e *Engine) call(l *ledger.Ledger, tx database.Tx, to common.Address) (uint64, error) {
	snapshot := l.Snapshot()

	if err := l.AddBalance(to, tx.Value()); err != nil {
		l.RevertToSnapshot(snapshot)
		l.AddBalance(tx.From(), tx.Value())
		return 0, err
	}

	res := vm.Execute(l.Code(to), tx.Data(), tx.GasLimit(), l.Storage(to))
	if res.Failed() {
		if err := l.RevertToSnapshot(snapshot); err != nil {
			return res.GasUsed, err
		}

		// The value was debited together with the fee and fits the balance.
		l.AddBalance(tx.From(), tx.Value())

		e.evHandler("transition: call: tx[%s] contract[%s] FAILED: %s", tx, to, res.Err)
		return res.GasUsed, res.Err
	}

	e.evHandler("transition: call: tx[%s] contract[%s] gas[%d]", tx, to, res.GasUsed)
	return res.GasUsed, nil
}
