package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var receiptCmd = &cobra.Command{
	Use:   "receipt <tx hash>",
	Short: "Print the receipt for a transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var receipt json.RawMessage
		if err := get(fmt.Sprintf("%s/v1/tx/receipt/%s", url, args[0]), &receipt); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(receipt))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(receiptCmd)
}
