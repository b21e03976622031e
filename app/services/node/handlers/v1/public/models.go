package public

import (
	"fmt"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/ledger"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/signature"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/nameservice"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// submitTx is what a wallet posts to have a signed transaction mined. A
// missing to address makes the transaction a contract creation with the
// data as the code.
type submitTx struct {
	Hash     common.Hash   `json:"hash"`
	Nonce    uint64        `json:"nonce"`
	From     string        `json:"from" validate:"required,eth_addr"`
	To       string        `json:"to,omitempty" validate:"omitempty,eth_addr"`
	Value    *uint256.Int  `json:"value"`
	GasPrice *uint256.Int  `json:"gas_price"`
	GasLimit uint64        `json:"gas_limit" validate:"gt=0"`
	Data     hexutil.Bytes `json:"data"`
	Sig      hexutil.Bytes `json:"sig" validate:"required"`
}

// toTx rebuilds the immutable transaction from the request.
func toTx(st submitTx) (database.Tx, error) {
	b := database.NewTxBuilder().
		From(common.HexToAddress(st.From)).
		Nonce(st.Nonce).
		Value(st.Value).
		GasPrice(st.GasPrice).
		GasLimit(st.GasLimit)

	switch st.To {
	case "":
		b.Create(st.Data)
	default:
		b.To(common.HexToAddress(st.To)).Data(st.Data)
	}

	tx, err := b.WithSignature(st.Sig)
	if err != nil {
		return database.Tx{}, err
	}

	if st.Hash != (common.Hash{}) && st.Hash != tx.Hash() {
		return database.Tx{}, fmt.Errorf("transaction hash mismatch, got %s, exp %s", st.Hash, tx.Hash())
	}

	return tx, nil
}

// =============================================================================

type tx struct {
	Hash     common.Hash     `json:"hash"`
	From     common.Address  `json:"from"`
	FromName string          `json:"from_name"`
	To       *common.Address `json:"to,omitempty"`
	ToName   string          `json:"to_name,omitempty"`
	Nonce    uint64          `json:"nonce"`
	Value    *uint256.Int    `json:"value"`
	GasPrice *uint256.Int    `json:"gas_price"`
	GasLimit uint64          `json:"gas_limit"`
	Data     hexutil.Bytes   `json:"data"`
	Sig      string          `json:"sig"`
}

func toTxView(ns *nameservice.NameService, t database.Tx) tx {
	v := tx{
		Hash:     t.Hash(),
		From:     t.From(),
		FromName: ns.Lookup(t.From()),
		To:       t.To(),
		Nonce:    t.Nonce(),
		Value:    t.Value(),
		GasPrice: t.GasPrice(),
		GasLimit: t.GasLimit(),
		Data:     t.Data(),
		Sig:      signature.String(t.Signature()),
	}

	if v.To != nil {
		v.ToName = ns.Lookup(*v.To)
	}

	return v
}

type block struct {
	Hash        common.Hash    `json:"hash"`
	Height      uint64         `json:"height"`
	ParentHash  common.Hash    `json:"parent_hash"`
	Miner       common.Address `json:"miner"`
	MinerName   string         `json:"miner_name"`
	TimeStamp   uint64         `json:"timestamp"`
	Difficulty  uint64         `json:"difficulty"`
	Nonce       uint64         `json:"nonce"`
	TransRoot   common.Hash    `json:"trans_root"`
	ReceiptRoot common.Hash    `json:"receipt_root"`
	StateRoot   common.Hash    `json:"state_root"`
	Trans       []tx           `json:"trans"`
}

func toBlockView(ns *nameservice.NameService, blk database.Block) block {
	trans := make([]tx, len(blk.Trans))
	for i, t := range blk.Trans {
		trans[i] = toTxView(ns, t)
	}

	return block{
		Hash:        blk.Hash(),
		Height:      blk.Header.Height,
		ParentHash:  blk.Header.ParentHash,
		Miner:       blk.Header.Miner,
		MinerName:   ns.Lookup(blk.Header.Miner),
		TimeStamp:   blk.Header.TimeStamp,
		Difficulty:  blk.Header.Difficulty,
		Nonce:       blk.Header.Nonce,
		TransRoot:   blk.Header.TransRoot,
		ReceiptRoot: blk.Header.ReceiptRoot,
		StateRoot:   blk.Header.StateRoot,
		Trans:       trans,
	}
}

type account struct {
	Address  common.Address `json:"address"`
	Name     string         `json:"name"`
	Nonce    uint64         `json:"nonce"`
	Balance  *uint256.Int   `json:"balance"`
	Contract bool           `json:"contract"`
	Code     hexutil.Bytes  `json:"code,omitempty"`
}

func toAccountView(ns *nameservice.NameService, act ledger.Account) account {
	return account{
		Address:  act.Address,
		Name:     ns.Lookup(act.Address),
		Nonce:    act.Nonce,
		Balance:  act.Balance,
		Contract: act.IsContract(),
		Code:     act.Code,
	}
}
