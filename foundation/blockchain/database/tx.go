package database

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// Set of errors returned when building or validating a transaction.
var (
	ErrMissingSender    = errors.New("transaction sender is required")
	ErrZeroGasLimit     = errors.New("transaction gas limit must be positive")
	ErrInvalidSignature = errors.New("transaction signature does not belong to the sender")
	ErrCostOverflow     = errors.New("transaction cost overflows 256 bits")
)

// txData is the canonical payload of a transaction. This is what gets
// signed and, together with the signature, what identifies a transaction.
type txData struct {
	Nonce    uint64
	From     common.Address
	To       *common.Address `rlp:"nil"`
	Value    *uint256.Int
	GasPrice *uint256.Int
	GasLimit uint64
	Data     []byte
}

// envelope is the canonical byte encoding of a signed transaction.
type envelope struct {
	Data txData
	Sig  []byte
}

// =============================================================================

// Tx is an immutable, signed transaction. A Tx can only be produced by a
// TxBuilder or by decoding one, and every accessor hands out copies.
type Tx struct {
	data txData
	sig  []byte
	hash common.Hash
}

// newTx finalizes the transaction by computing its content hash.
func newTx(data txData, sig []byte) (Tx, error) {
	tx := Tx{
		data: data,
		sig:  sig,
	}

	hash, err := signature.Hash(envelope{Data: data, Sig: sig})
	if err != nil {
		return Tx{}, err
	}
	tx.hash = hash

	return tx, nil
}

// Hash returns the content hash over the canonical byte encoding.
func (tx Tx) Hash() common.Hash {
	return tx.hash
}

// SigningHash returns the hash of the payload that is signed.
func (tx Tx) SigningHash() common.Hash {
	h, err := signature.Hash(tx.data)
	if err != nil {
		return signature.ZeroHash
	}
	return h
}

// Nonce returns the sender nonce the transaction was created for.
func (tx Tx) Nonce() uint64 {
	return tx.data.Nonce
}

// From returns the claimed sender of the transaction.
func (tx Tx) From() common.Address {
	return tx.data.From
}

// To returns the recipient. A nil recipient signals contract creation.
func (tx Tx) To() *common.Address {
	if tx.data.To == nil {
		return nil
	}
	to := *tx.data.To
	return &to
}

// IsContractCreation reports whether the transaction deploys a contract.
func (tx Tx) IsContractCreation() bool {
	return tx.data.To == nil
}

// Value returns the amount transferred to the recipient.
func (tx Tx) Value() *uint256.Int {
	return new(uint256.Int).Set(tx.data.Value)
}

// GasPrice returns the fee paid per unit of gas.
func (tx Tx) GasPrice() *uint256.Int {
	return new(uint256.Int).Set(tx.data.GasPrice)
}

// GasLimit returns the maximum gas the transaction may consume.
func (tx Tx) GasLimit() uint64 {
	return tx.data.GasLimit
}

// Data returns the payload of the transaction.
func (tx Tx) Data() []byte {
	return bytes.Clone(tx.data.Data)
}

// Signature returns the signature in the [R|S|V] format.
func (tx Tx) Signature() []byte {
	return bytes.Clone(tx.sig)
}

// GasCost returns GasPrice * GasLimit.
func (tx Tx) GasCost() (*uint256.Int, error) {
	gas := new(uint256.Int).SetUint64(tx.data.GasLimit)
	cost, overflow := new(uint256.Int).MulOverflow(tx.data.GasPrice, gas)
	if overflow {
		return nil, ErrCostOverflow
	}
	return cost, nil
}

// Cost returns the full amount debited from the sender, which is
// Value + GasPrice * GasLimit.
func (tx Tx) Cost() (*uint256.Int, error) {
	gasCost, err := tx.GasCost()
	if err != nil {
		return nil, err
	}

	cost, overflow := new(uint256.Int).AddOverflow(tx.data.Value, gasCost)
	if overflow {
		return nil, ErrCostOverflow
	}
	return cost, nil
}

// Validate verifies the transaction has a proper signature that conforms
// to our standards and was produced by the claimed sender.
func (tx Tx) Validate() error {
	if err := signature.VerifySignature(tx.sig); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	publicKey, err := signature.FromPublicKey(tx.SigningHash(), tx.sig)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	if !signature.Verify(tx.sig, tx.SigningHash(), publicKey) || PublicKeyToAddress(*publicKey) != tx.data.From {
		return ErrInvalidSignature
	}

	if _, err := tx.Cost(); err != nil {
		return err
	}

	return nil
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s:%d", tx.data.From.Hex(), tx.data.Nonce)
}

// EncodeRLP implements the rlp.Encoder interface.
func (tx Tx) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, envelope{Data: tx.data, Sig: tx.sig})
}

// DecodeRLP implements the rlp.Decoder interface.
func (tx *Tx) DecodeRLP(s *rlp.Stream) error {
	var env envelope
	if err := s.Decode(&env); err != nil {
		return err
	}

	decoded, err := fromEnvelope(env)
	if err != nil {
		return err
	}

	*tx = decoded
	return nil
}

// =============================================================================

// txJSON is the JSON form of a transaction used by storage and the web api.
type txJSON struct {
	Hash     common.Hash     `json:"hash"`
	Nonce    uint64          `json:"nonce"`
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to,omitempty"`
	Value    *uint256.Int    `json:"value"`
	GasPrice *uint256.Int    `json:"gas_price"`
	GasLimit uint64          `json:"gas_limit"`
	Data     hexutil.Bytes   `json:"data"`
	Sig      hexutil.Bytes   `json:"sig"`
}

// MarshalJSON implements the json.Marshaler interface.
func (tx Tx) MarshalJSON() ([]byte, error) {
	return json.Marshal(txJSON{
		Hash:     tx.hash,
		Nonce:    tx.data.Nonce,
		From:     tx.data.From,
		To:       tx.data.To,
		Value:    tx.data.Value,
		GasPrice: tx.data.GasPrice,
		GasLimit: tx.data.GasLimit,
		Data:     tx.data.Data,
		Sig:      tx.sig,
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface. The decoded
// transaction goes through the same checks as the builder. A hash, when
// provided, must match the decoded content.
func (tx *Tx) UnmarshalJSON(data []byte) error {
	var tj txJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return err
	}

	decoded, err := fromEnvelope(envelope{
		Data: txData{
			Nonce:    tj.Nonce,
			From:     tj.From,
			To:       tj.To,
			Value:    tj.Value,
			GasPrice: tj.GasPrice,
			GasLimit: tj.GasLimit,
			Data:     tj.Data,
		},
		Sig: tj.Sig,
	})
	if err != nil {
		return err
	}

	if tj.Hash != (common.Hash{}) && tj.Hash != decoded.hash {
		return fmt.Errorf("transaction hash mismatch, got %s, exp %s", tj.Hash, decoded.hash)
	}

	*tx = decoded
	return nil
}

// fromEnvelope rebuilds a transaction from its decoded parts.
func fromEnvelope(env envelope) (Tx, error) {
	b := TxBuilder{data: env.Data}
	data, err := b.validate()
	if err != nil {
		return Tx{}, err
	}

	return newTx(data, bytes.Clone(env.Sig))
}

// =============================================================================

// TxBuilder owns and validates every field of a transaction before an
// immutable Tx value is produced.
type TxBuilder struct {
	data txData
}

// NewTxBuilder constructs a builder with zero value and gas price.
func NewTxBuilder() *TxBuilder {
	return &TxBuilder{
		data: txData{
			Value:    new(uint256.Int),
			GasPrice: new(uint256.Int),
		},
	}
}

// From sets the sender of the transaction.
func (b *TxBuilder) From(from common.Address) *TxBuilder {
	b.data.From = from
	return b
}

// To sets the recipient of the transaction.
func (b *TxBuilder) To(to common.Address) *TxBuilder {
	b.data.To = &to
	return b
}

// Create marks the transaction as a contract creation with the specified code.
func (b *TxBuilder) Create(code []byte) *TxBuilder {
	b.data.To = nil
	b.data.Data = bytes.Clone(code)
	return b
}

// Nonce sets the sender nonce.
func (b *TxBuilder) Nonce(nonce uint64) *TxBuilder {
	b.data.Nonce = nonce
	return b
}

// Value sets the amount transferred to the recipient.
func (b *TxBuilder) Value(value *uint256.Int) *TxBuilder {
	b.data.Value = value
	return b
}

// GasPrice sets the fee paid per unit of gas.
func (b *TxBuilder) GasPrice(price *uint256.Int) *TxBuilder {
	b.data.GasPrice = price
	return b
}

// GasLimit sets the maximum gas the transaction may consume.
func (b *TxBuilder) GasLimit(limit uint64) *TxBuilder {
	b.data.GasLimit = limit
	return b
}

// Data sets the payload of the transaction.
func (b *TxBuilder) Data(data []byte) *TxBuilder {
	b.data.Data = bytes.Clone(data)
	return b
}

// Sign validates the fields, signs the payload with the private key and
// returns the immutable transaction. The sender is derived from the key when
// it was not set, otherwise it must match the key.
func (b *TxBuilder) Sign(privateKey *ecdsa.PrivateKey) (Tx, error) {
	signer := PublicKeyToAddress(privateKey.PublicKey)

	switch {
	case b.data.From == (common.Address{}):
		b.data.From = signer
	case b.data.From != signer:
		return Tx{}, fmt.Errorf("sender %s does not match signing key %s", b.data.From, signer)
	}

	data, err := b.validate()
	if err != nil {
		return Tx{}, err
	}

	digest, err := signature.Hash(data)
	if err != nil {
		return Tx{}, err
	}

	sig, err := signature.Sign(digest, privateKey)
	if err != nil {
		return Tx{}, err
	}

	return newTx(data, sig)
}

// Build validates the fields and returns an unsigned transaction. An
// unsigned transaction never passes Tx.Validate.
func (b *TxBuilder) Build() (Tx, error) {
	return b.WithSignature(nil)
}

// WithSignature validates the fields and attaches a signature that was
// produced elsewhere, for example by an external wallet. The signature is
// not checked here, that is the job of Tx.Validate.
func (b *TxBuilder) WithSignature(sig []byte) (Tx, error) {
	data, err := b.validate()
	if err != nil {
		return Tx{}, err
	}

	return newTx(data, bytes.Clone(sig))
}

// validate checks the builder fields and returns a private copy of them.
func (b *TxBuilder) validate() (txData, error) {
	if b.data.From == (common.Address{}) {
		return txData{}, ErrMissingSender
	}

	if b.data.GasLimit == 0 {
		return txData{}, ErrZeroGasLimit
	}

	data := txData{
		Nonce:    b.data.Nonce,
		From:     b.data.From,
		Value:    new(uint256.Int),
		GasPrice: new(uint256.Int),
		GasLimit: b.data.GasLimit,
		Data:     bytes.Clone(b.data.Data),
	}

	if b.data.To != nil {
		to := *b.data.To
		data.To = &to
	}
	if b.data.Value != nil {
		data.Value.Set(b.data.Value)
	}
	if b.data.GasPrice != nil {
		data.GasPrice.Set(b.data.GasPrice)
	}
	if data.Data == nil {
		data.Data = []byte{}
	}

	return data, nil
}
