// Package commands contains the functionality for the admin tool.
package commands

import (
	"fmt"
	"io"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/ledger"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/state"
)

// Balances writes the current set of balances, or just the one account
// when specified.
func Balances(w io.Writer, onlyAct string, st *state.State) error {
	fmt.Fprintf(w, "LatestBlockHash: %s\n\n", st.QueryLatestBlock().Hash())

	accounts := st.QueryAccounts()
	if onlyAct != "" {
		address, err := database.ToAddress(onlyAct)
		if err != nil {
			return err
		}

		act, err := st.QueryAccount(address)
		if err != nil {
			return err
		}
		accounts = []ledger.Account{act}
	}

	for _, act := range accounts {
		fmt.Fprintf(w, "Account: %s  Balance: %s  Nonce: %d  Contract: %t\n", act.Address, act.Balance.Dec(), act.Nonce, act.IsContract())
	}

	return nil
}
