package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var codeFile string

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy contract bytecode read from a hex file",
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(codeFile)
		if err != nil {
			return err
		}

		code, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(string(content)), "0x"))
		if err != nil {
			return fmt.Errorf("decode code: %w", err)
		}

		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			return err
		}

		owner := database.PublicKeyToAddress(privateKey.PublicKey)
		n, err := nextNonce(owner)
		if err != nil {
			return err
		}
		nonce = int64(n)

		fmt.Fprintln(cmd.OutOrStdout(), "contract:", database.ContractAddress(owner, n))

		return submit(cmd, privateKey, database.NewTxBuilder().Create(code))
	},
}

func init() {
	rootCmd.AddCommand(deployCmd)
	txFlags(deployCmd)
	deployCmd.Flags().StringVarP(&codeFile, "code", "c", "", "Path to a file holding the hex encoded bytecode.")
	deployCmd.MarkFlagRequired("code")
}
