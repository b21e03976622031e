package database

import (
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/merkle"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common"
)

// TxStatus represents where a transaction is in its lifecycle.
type TxStatus uint8

// Set of transaction statuses.
const (
	TxPending TxStatus = iota
	TxConfirmed
	TxFailed
	TxInvalid
)

// String implements the fmt.Stringer interface.
func (s TxStatus) String() string {
	switch s {
	case TxPending:
		return "pending"
	case TxConfirmed:
		return "confirmed"
	case TxFailed:
		return "failed"
	case TxInvalid:
		return "invalid"
	}
	return "unknown"
}

// MarshalText implements the encoding.TextMarshaler interface.
func (s TxStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// =============================================================================

// Receipt records the outcome of applying a transaction to the ledger.
// A confirmed contract call that failed inside the interpreter carries the
// interpreter error in CallErr. Err is only set for failed or invalid
// transactions.
type Receipt struct {
	TxHash          common.Hash    `json:"tx_hash"`
	Status          TxStatus       `json:"status"`
	ContractAddress common.Address `json:"contract_address"`
	GasUsed         uint64         `json:"gas_used"`
	CallErr         string         `json:"call_err,omitempty"`
	Err             string         `json:"err,omitempty"`
}

// Hash implements the merkle Hashable interface.
func (r Receipt) Hash() ([]byte, error) {
	h, err := signature.Hash([]any{
		r.TxHash,
		uint64(r.Status),
		r.ContractAddress,
		r.GasUsed,
		r.CallErr,
	})
	if err != nil {
		return nil, err
	}
	return h.Bytes(), nil
}

// Equals implements the merkle Hashable interface.
func (r Receipt) Equals(other Receipt) bool {
	return r.TxHash == other.TxHash && r.Status == other.Status
}

// ReceiptRoot returns the merkle root for the set of receipts.
func ReceiptRoot(receipts []Receipt) (common.Hash, error) {
	return merkle.RootOf(receipts)
}
