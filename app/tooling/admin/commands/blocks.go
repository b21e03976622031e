package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/state"
	"github.com/ethereum/go-ethereum/common"
)

// Blocks writes the blocks in the height range. Missing bounds select the
// whole chain.
func Blocks(w io.Writer, fromStr string, toStr string, st *state.State) error {
	from, to := uint64(0), st.QueryChainLength()-1

	if fromStr != "" {
		n, err := strconv.ParseUint(fromStr, 10, 64)
		if err != nil {
			return err
		}
		from = n
	}
	if toStr != "" {
		n, err := strconv.ParseUint(toStr, 10, 64)
		if err != nil {
			return err
		}
		to = n
	}

	for _, blk := range st.QueryBlocksByNumber(from, to) {
		fmt.Fprintf(w, "Block: %d  Hash: %s  Parent: %s  Miner: %s  Trans: %d  StateRoot: %s\n",
			blk.Header.Height, blk.Hash(), blk.Header.ParentHash, blk.Header.Miner, len(blk.Trans), blk.Header.StateRoot)

		for _, tx := range blk.Trans {
			fmt.Fprintf(w, "    Tx: %s  Value: %s  GasLimit: %d\n", tx, tx.Value().Dec(), tx.GasLimit())
		}
	}

	return nil
}

// Receipt writes the receipt recorded for the transaction.
func Receipt(w io.Writer, hash string, st *state.State) error {
	receipt, err := st.QueryReceipt(common.HexToHash(hash))
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Tx: %s  Status: %s  GasUsed: %d  Contract: %s", receipt.TxHash, receipt.Status, receipt.GasUsed, receipt.ContractAddress)
	if receipt.CallErr != "" {
		fmt.Fprintf(w, "  CallErr: %s", receipt.CallErr)
	}
	fmt.Fprintln(w)

	return nil
}

// Verify writes the head of a chain that replayed cleanly.
func Verify(w io.Writer, st *state.State) error {
	root, err := st.QueryStateRoot()
	if err != nil {
		return err
	}

	head := st.QueryLatestBlock()
	fmt.Fprintf(w, "Chain OK  Blocks: %d  Head: %s  StateRoot: %s\n", st.QueryChainLength(), head.Hash(), root)

	return nil
}
