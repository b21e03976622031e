// Package ledger maintains the world state: the mapping of every address
// to its account. Mutations are journaled so the effects of a single
// transaction can be rolled back without touching the rest of the block.
package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Set of errors returned by ledger mutations.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBalanceOverflow     = errors.New("balance overflows 256 bits")
	ErrInvalidSnapshot     = errors.New("invalid snapshot id")
)

// Account represents the information stored for an individual address.
type Account struct {
	Address common.Address              `json:"address"`
	Nonce   uint64                      `json:"nonce"`
	Balance *uint256.Int                `json:"balance"`
	Code    []byte                      `json:"code,omitempty"`
	Storage map[common.Hash]common.Hash `json:"storage,omitempty"`
}

// IsContract reports whether the account holds code.
func (a Account) IsContract() bool {
	return len(a.Code) > 0
}

// copy performs a deep copy so callers never share memory with the ledger.
func (a *Account) copy() *Account {
	cpy := Account{
		Address: a.Address,
		Nonce:   a.Nonce,
		Balance: new(uint256.Int).Set(a.Balance),
		Code:    bytes.Clone(a.Code),
		Storage: make(map[common.Hash]common.Hash, len(a.Storage)),
	}

	for k, v := range a.Storage {
		cpy.Storage[k] = v
	}

	return &cpy
}

func newAccount(address common.Address) *Account {
	return &Account{
		Address: address,
		Balance: new(uint256.Int),
		Storage: make(map[common.Hash]common.Hash),
	}
}

// =============================================================================

// Ledger manages the set of accounts at a given chain height.
type Ledger struct {
	mu        sync.RWMutex
	accounts  map[common.Address]*Account
	journal   []journalEntry
	snapshots []int
}

// New constructs a ledger with the specified initial balances.
func New(balances map[common.Address]*uint256.Int) *Ledger {
	l := Ledger{
		accounts: make(map[common.Address]*Account),
	}

	for address, balance := range balances {
		acct := newAccount(address)
		if balance != nil {
			acct.Balance.Set(balance)
		}
		l.accounts[address] = acct
	}

	return &l
}

// Copy makes a deep copy of the ledger. The journal of the original is not
// carried over.
func (l *Ledger) Copy() *Ledger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	cpy := Ledger{
		accounts: make(map[common.Address]*Account, len(l.accounts)),
	}

	for address, acct := range l.accounts {
		cpy.accounts[address] = acct.copy()
	}

	return &cpy
}

// Account returns a copy of the account for the specified address.
func (l *Ledger) Account(address common.Address) (Account, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acct, exists := l.accounts[address]
	if !exists {
		return Account{}, false
	}

	return *acct.copy(), true
}

// Accounts returns a copy of every account sorted by address.
func (l *Ledger) Accounts() []Account {
	l.mu.RLock()
	defer l.mu.RUnlock()

	accounts := make([]Account, 0, len(l.accounts))
	for _, acct := range l.sorted() {
		accounts = append(accounts, *acct.copy())
	}

	return accounts
}

// Len returns the number of accounts in the ledger.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.accounts)
}

// Exists reports whether an account exists for the address.
func (l *Ledger) Exists(address common.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, exists := l.accounts[address]
	return exists
}

// Balance returns the balance for the address, zero if absent.
func (l *Ledger) Balance(address common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if acct, exists := l.accounts[address]; exists {
		return new(uint256.Int).Set(acct.Balance)
	}
	return new(uint256.Int)
}

// Nonce returns the nonce for the address, zero if absent.
func (l *Ledger) Nonce(address common.Address) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if acct, exists := l.accounts[address]; exists {
		return acct.Nonce
	}
	return 0
}

// Code returns the code for the address, nil if absent.
func (l *Ledger) Code(address common.Address) []byte {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if acct, exists := l.accounts[address]; exists {
		return bytes.Clone(acct.Code)
	}
	return nil
}

// GetState returns the storage value for the key, zero if absent.
func (l *Ledger) GetState(address common.Address, key common.Hash) common.Hash {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if acct, exists := l.accounts[address]; exists {
		return acct.Storage[key]
	}
	return common.Hash{}
}

// =============================================================================

// CreateAccount creates an empty account for the address if one does not
// already exist. It reports whether an account was created.
func (l *Ledger) CreateAccount(address common.Address) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.accounts[address]; exists {
		return false
	}

	l.getOrCreate(address)
	return true
}

// AddBalance credits the account, creating it if necessary.
func (l *Ledger) AddBalance(address common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	acct := l.getOrCreate(address)

	balance, overflow := new(uint256.Int).AddOverflow(acct.Balance, amount)
	if overflow {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, address)
	}

	l.journal = append(l.journal, balanceChange{address: address, prev: new(uint256.Int).Set(acct.Balance)})
	acct.Balance = balance

	return nil
}

// SubBalance debits the account, creating it if necessary. A balance never
// goes negative.
func (l *Ledger) SubBalance(address common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	acct := l.getOrCreate(address)

	if acct.Balance.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, address, acct.Balance, amount)
	}

	l.journal = append(l.journal, balanceChange{address: address, prev: new(uint256.Int).Set(acct.Balance)})
	acct.Balance = new(uint256.Int).Sub(acct.Balance, amount)

	return nil
}

// IncrementNonce adds one to the account nonce, creating it if necessary.
func (l *Ledger) IncrementNonce(address common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acct := l.getOrCreate(address)

	l.journal = append(l.journal, nonceChange{address: address, prev: acct.Nonce})
	acct.Nonce++
}

// SetCode installs code for the account, creating it if necessary.
func (l *Ledger) SetCode(address common.Address, code []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acct := l.getOrCreate(address)

	l.journal = append(l.journal, codeChange{address: address, prev: acct.Code})
	acct.Code = bytes.Clone(code)
}

// SetState writes a storage value for the account, creating it if
// necessary. Writing the zero value removes the key.
func (l *Ledger) SetState(address common.Address, key common.Hash, value common.Hash) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acct := l.getOrCreate(address)

	prev, existed := acct.Storage[key]
	l.journal = append(l.journal, storageChange{address: address, key: key, prev: prev, existed: existed})

	if value == (common.Hash{}) {
		delete(acct.Storage, key)
		return
	}
	acct.Storage[key] = value
}

// Storage returns a view of the storage for the specified account that can
// be handed to the interpreter.
func (l *Ledger) Storage(address common.Address) *Storage {
	return &Storage{ledger: l, address: address}
}

// =============================================================================

// getOrCreate must be called while holding the write lock.
func (l *Ledger) getOrCreate(address common.Address) *Account {
	acct, exists := l.accounts[address]
	if !exists {
		acct = newAccount(address)
		l.accounts[address] = acct
		l.journal = append(l.journal, createAccount{address: address})
	}
	return acct
}

// sorted must be called while holding a lock.
func (l *Ledger) sorted() []*Account {
	accounts := make([]*Account, 0, len(l.accounts))
	for _, acct := range l.accounts {
		accounts = append(accounts, acct)
	}

	sort.Slice(accounts, func(i, j int) bool {
		return bytes.Compare(accounts[i].Address[:], accounts[j].Address[:]) < 0
	})

	return accounts
}

// =============================================================================

// Storage binds a ledger account's storage to the key/value behavior the
// interpreter works against.
type Storage struct {
	ledger  *Ledger
	address common.Address
}

// Load returns the value stored under the key.
func (s *Storage) Load(key common.Hash) common.Hash {
	return s.ledger.GetState(s.address, key)
}

// Store writes the value under the key.
func (s *Storage) Store(key common.Hash, value common.Hash) {
	s.ledger.SetState(s.address, key, value)
}
