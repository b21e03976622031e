package cmd

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
)

var (
	nonce    int64
	to       string
	value    uint64
	gasPrice uint64
	gasLimit uint64
	data     []byte
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send transaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !database.IsAddress(to) {
			return fmt.Errorf("invalid to address %q", to)
		}

		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			return err
		}

		b := database.NewTxBuilder().To(common.HexToAddress(to)).Data(data)
		return submit(cmd, privateKey, b)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	txFlags(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address of the recipient.")
	sendCmd.Flags().BytesHexVarP(&data, "data", "d", nil, "Call data to send.")
}

// txFlags binds the flags shared by every command that signs a transaction.
func txFlags(cmd *cobra.Command) {
	cmd.Flags().Int64VarP(&nonce, "nonce", "n", -1, "Nonce for the transaction, the next account nonce when negative.")
	cmd.Flags().Uint64VarP(&value, "value", "v", 0, "Value to send.")
	cmd.Flags().Uint64VarP(&gasPrice, "gas-price", "g", 1, "Price paid per unit of gas.")
	cmd.Flags().Uint64VarP(&gasLimit, "gas-limit", "l", 21, "Maximum gas the transaction may use.")
}

// submit finishes the transaction, signs it and posts it to the node.
func submit(cmd *cobra.Command, privateKey *ecdsa.PrivateKey, b *database.TxBuilder) error {
	n, err := nextNonce(database.PublicKeyToAddress(privateKey.PublicKey))
	if err != nil {
		return err
	}

	tx, err := b.
		Nonce(n).
		Value(uint256.NewInt(value)).
		GasPrice(uint256.NewInt(gasPrice)).
		GasLimit(gasLimit).
		Sign(privateKey)
	if err != nil {
		return err
	}

	var resp struct {
		Status string      `json:"status"`
		Hash   common.Hash `json:"hash"`
	}
	if err := post(fmt.Sprintf("%s/v1/tx/submit", url), tx, &resp); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), resp.Status, resp.Hash)
	return nil
}

// nextNonce returns the nonce flag or, when it was not set, the next nonce
// recorded for the account on chain.
func nextNonce(address common.Address) (uint64, error) {
	if nonce >= 0 {
		return uint64(nonce), nil
	}

	var act struct {
		Nonce uint64 `json:"nonce"`
	}
	err := get(fmt.Sprintf("%s/v1/accounts/%s", url, address), &act)
	switch {
	case errors.Is(err, errNotFound):
		return 0, nil
	case err != nil:
		return 0, err
	}

	return act.Nonce, nil
}
