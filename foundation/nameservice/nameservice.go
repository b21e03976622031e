// Package nameservice reads the zblock/accounts folder and creates a name
// service lookup for the known accounts.
package nameservice

import (
	"crypto/ecdsa"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// NameService maintains a map of accounts for name lookup.
type NameService struct {
	accounts map[common.Address]string
	keys     map[string]*ecdsa.PrivateKey
}

// New constructs a Name Service with accounts from the zblock/accounts folder.
// Every file ending in .ecdsa holds a private key and the file name is the
// name of the account.
func New(root string) (*NameService, error) {
	ns := NameService{
		accounts: make(map[common.Address]string),
		keys:     make(map[string]*ecdsa.PrivateKey),
	}

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if path.Ext(fileName) != ".ecdsa" {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return fmt.Errorf("load %s: %w", fileName, err)
		}

		name := strings.TrimSuffix(path.Base(fileName), ".ecdsa")
		ns.accounts[database.PublicKeyToAddress(privateKey.PublicKey)] = name
		ns.keys[name] = privateKey

		return nil
	}

	if err := filepath.Walk(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified account. Unknown accounts
// are returned in hex form.
func (ns *NameService) Lookup(address common.Address) string {
	name, exists := ns.accounts[address]
	if !exists {
		return address.Hex()
	}
	return name
}

// PrivateKey returns the key stored under the specified name.
func (ns *NameService) PrivateKey(name string) (*ecdsa.PrivateKey, error) {
	pk, exists := ns.keys[name]
	if !exists {
		return nil, fmt.Errorf("account %q: %w", name, database.ErrNotFound)
	}
	return pk, nil
}

// Copy returns a copy of the map of names and accounts.
func (ns *NameService) Copy() map[common.Address]string {
	cpy := make(map[common.Address]string, len(ns.accounts))
	for account, name := range ns.accounts {
		cpy[account] = name
	}
	return cpy
}
