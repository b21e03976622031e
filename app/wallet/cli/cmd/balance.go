package cmd

import (
	"fmt"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

type balance struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Balance string `json:"balance"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	RunE:  balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) error {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		return err
	}

	address := database.PublicKeyToAddress(privateKey.PublicKey)
	fmt.Fprintln(cmd.OutOrStdout(), "For Account:", address)

	var b balance
	if err := get(fmt.Sprintf("%s/v1/balances/%s", url, address), &b); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), b.Balance)
	return nil
}
