package database_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	from     = "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"
	to       = "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32"
)

// =============================================================================

func Test_TxBuilder(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	type table struct {
		name    string
		builder *database.TxBuilder
		err     error
	}

	tt := []table{
		{
			name:    "transfer",
			builder: database.NewTxBuilder().To(common.HexToAddress(to)).Value(uint256.NewInt(100)).GasPrice(uint256.NewInt(1)).GasLimit(21),
		},
		{
			name:    "create",
			builder: database.NewTxBuilder().Create([]byte{0x00}).GasLimit(100),
		},
		{
			name:    "zero gas",
			builder: database.NewTxBuilder().To(common.HexToAddress(to)).Value(uint256.NewInt(100)),
			err:     database.ErrZeroGasLimit,
		},
	}

	t.Log("Given the need to build signed transactions.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a %s transaction.", testID, tst.name)
			{
				f := func(t *testing.T) {
					tx, err := tst.builder.Sign(pk)
					if tst.err != nil {
						if !errors.Is(err, tst.err) {
							t.Fatalf("\t%s\tTest %d:\tShould get back the expected error: got %v, exp %v", failed, testID, err, tst.err)
						}
						t.Logf("\t%s\tTest %d:\tShould get back the expected error.", success, testID)
						return
					}

					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to sign the transaction: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to sign the transaction.", success, testID)

					if tx.From().Hex() != from {
						t.Fatalf("\t%s\tTest %d:\tShould derive the sender from the key: got %s", failed, testID, tx.From().Hex())
					}
					t.Logf("\t%s\tTest %d:\tShould derive the sender from the key.", success, testID)

					if err := tx.Validate(); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to validate the transaction: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to validate the transaction.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_TxImmutable(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	value := uint256.NewInt(100)
	data := []byte{1, 2, 3}

	tx, err := database.NewTxBuilder().To(common.HexToAddress(to)).Value(value).GasLimit(10).Data(data).Sign(pk)
	if err != nil {
		t.Fatalf("Should be able to sign the transaction: %s", err)
	}
	hash := tx.Hash()

	value.SetUint64(5)
	data[0] = 9
	tx.Value().SetUint64(7)
	tx.Data()[1] = 9

	if tx.Value().Uint64() != 100 || tx.Data()[0] != 1 || tx.Data()[1] != 2 {
		t.Fatalf("Should not be able to change the transaction after signing.")
	}

	if tx.Hash() != hash {
		t.Fatalf("Should keep the same hash.")
	}
}

func Test_TxWrongSender(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	other, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a second private key: %s", err)
	}

	if _, err := database.NewTxBuilder().From(common.HexToAddress(to)).GasLimit(1).Sign(pk); err == nil {
		t.Fatalf("Should not sign for a sender that does not own the key.")
	}

	signed, err := database.NewTxBuilder().To(common.HexToAddress(to)).GasLimit(1).Sign(other)
	if err != nil {
		t.Fatalf("Should be able to sign the transaction: %s", err)
	}

	forged, err := database.NewTxBuilder().From(common.HexToAddress(from)).To(common.HexToAddress(to)).GasLimit(1).WithSignature(signed.Signature())
	if err != nil {
		t.Fatalf("Should be able to build the transaction: %s", err)
	}

	if err := forged.Validate(); !errors.Is(err, database.ErrInvalidSignature) {
		t.Fatalf("Should reject a signature from another account: %v", err)
	}

	unsigned, err := database.NewTxBuilder().From(common.HexToAddress(from)).GasLimit(1).Build()
	if err != nil {
		t.Fatalf("Should be able to build the transaction: %s", err)
	}

	if err := unsigned.Validate(); !errors.Is(err, database.ErrInvalidSignature) {
		t.Fatalf("Should reject an unsigned transaction: %v", err)
	}
}

func Test_TxEncoding(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	tx, err := database.NewTxBuilder().To(common.HexToAddress(to)).Value(uint256.NewInt(100)).GasPrice(uint256.NewInt(2)).GasLimit(21).Nonce(3).Sign(pk)
	if err != nil {
		t.Fatalf("Should be able to sign the transaction: %s", err)
	}

	t.Log("Given the need to encode transactions.")
	{
		data, err := json.Marshal(tx)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to marshal the transaction: %v", failed, err)
		}

		var got database.Tx
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("\t%s\tShould be able to unmarshal the transaction: %v", failed, err)
		}

		if got.Hash() != tx.Hash() {
			t.Fatalf("\t%s\tShould get back the same hash through json.", failed)
		}
		t.Logf("\t%s\tShould get back the same hash through json.", success)

		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err != nil {
			t.Fatalf("\t%s\tShould be able to unmarshal into a map: %v", failed, err)
		}
		fields["nonce"] = 4
		tampered, _ := json.Marshal(fields)

		if err := json.Unmarshal(tampered, &got); err == nil {
			t.Fatalf("\t%s\tShould reject json with a hash that does not match.", failed)
		}
		t.Logf("\t%s\tShould reject json with a hash that does not match.", success)

		enc, err := rlp.EncodeToBytes(tx)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to rlp encode the transaction: %v", failed, err)
		}

		var dec database.Tx
		if err := rlp.DecodeBytes(enc, &dec); err != nil {
			t.Fatalf("\t%s\tShould be able to rlp decode the transaction: %v", failed, err)
		}

		if dec.Hash() != tx.Hash() || dec.Nonce() != 3 || dec.GasLimit() != 21 {
			t.Fatalf("\t%s\tShould get back the same transaction through rlp.", failed)
		}
		t.Logf("\t%s\tShould get back the same transaction through rlp.", success)
	}
}

func Test_TxCost(t *testing.T) {
	tx, err := database.NewTxBuilder().From(common.HexToAddress(from)).Value(uint256.NewInt(100)).GasPrice(uint256.NewInt(2)).GasLimit(21).Build()
	if err != nil {
		t.Fatalf("Should be able to build the transaction: %s", err)
	}

	cost, err := tx.Cost()
	if err != nil {
		t.Fatalf("Should be able to calculate the cost: %s", err)
	}

	if cost.Uint64() != 142 {
		t.Fatalf("Should get back value + price * limit: got %d, exp %d", cost.Uint64(), 142)
	}

	maxPrice := new(uint256.Int).SetAllOne()
	tx, err = database.NewTxBuilder().From(common.HexToAddress(from)).GasPrice(maxPrice).GasLimit(2).Build()
	if err != nil {
		t.Fatalf("Should be able to build the transaction: %s", err)
	}

	if _, err := tx.Cost(); !errors.Is(err, database.ErrCostOverflow) {
		t.Fatalf("Should detect an overflowing cost: %v", err)
	}
}

func Test_Block(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	tx, err := database.NewTxBuilder().To(common.HexToAddress(to)).Value(uint256.NewInt(100)).GasLimit(21).Sign(pk)
	if err != nil {
		t.Fatalf("Should be able to sign the transaction: %s", err)
	}

	root, err := database.TransRoot([]database.Tx{tx})
	if err != nil {
		t.Fatalf("Should be able to calculate the trans root: %s", err)
	}

	block := database.Block{
		Header: database.BlockHeader{
			Height:     1,
			Miner:      common.HexToAddress(from),
			Difficulty: 1 << 63,
			TransRoot:  root,
		},
		Trans: []database.Tx{tx},
	}

	t.Log("Given the need to hash and store blocks.")
	{
		h1 := block.Hash()
		block.Header.Nonce++
		h2 := block.Hash()

		if h1 == h2 {
			t.Fatalf("\t%s\tShould get a different hash for a different nonce.", failed)
		}
		t.Logf("\t%s\tShould get a different hash for a different nonce.", success)

		data, err := json.Marshal(database.NewBlockData(block))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to marshal the block: %v", failed, err)
		}

		var blockData database.BlockData
		if err := json.Unmarshal(data, &blockData); err != nil {
			t.Fatalf("\t%s\tShould be able to unmarshal the block: %v", failed, err)
		}

		got, err := database.ToBlock(blockData)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to convert the block: %v", failed, err)
		}

		if got.Hash() != block.Hash() || len(got.Trans) != 1 || got.Trans[0].Hash() != tx.Hash() {
			t.Fatalf("\t%s\tShould get back the same block.", failed)
		}
		t.Logf("\t%s\tShould get back the same block.", success)

		blockData.Header.Nonce++
		if _, err := database.ToBlock(blockData); err == nil {
			t.Fatalf("\t%s\tShould reject a block whose hash does not match.", failed)
		}
		t.Logf("\t%s\tShould reject a block whose hash does not match.", success)
	}
}

func Test_HashSolved(t *testing.T) {
	type table struct {
		name       string
		hash       common.Hash
		difficulty uint64
		solved     bool
	}

	tt := []table{
		{name: "zero difficulty", hash: common.Hash{}, difficulty: 0, solved: false},
		{name: "zero hash", hash: common.Hash{}, difficulty: 1, solved: true},
		{name: "equal", hash: common.HexToHash("0x00000000000000ff000000000000000000000000000000000000000000000000"), difficulty: 0xff, solved: false},
		{name: "below", hash: common.HexToHash("0x00000000000000fe000000000000000000000000000000000000000000000000"), difficulty: 0xff, solved: true},
		{name: "tail ignored", hash: common.HexToHash("0x0000000000000000ffffffffffffffffffffffffffffffffffffffffffffffff"), difficulty: 1, solved: true},
	}

	t.Log("Given the need to check a hash against the difficulty.")
	{
		for testID, tst := range tt {
			if got := database.HashSolved(tst.hash, tst.difficulty); got != tst.solved {
				t.Fatalf("\t%s\tTest %d:\t%s: Should get %v, got %v", failed, testID, tst.name, tst.solved, got)
			}
			t.Logf("\t%s\tTest %d:\t%s: Should get %v.", success, testID, tst.name, tst.solved)
		}
	}
}

func Test_ContractAddress(t *testing.T) {
	sender := common.HexToAddress(from)

	a0 := database.ContractAddress(sender, 0)
	a1 := database.ContractAddress(sender, 1)

	if a0 == a1 {
		t.Fatalf("Should get a different address per nonce.")
	}

	if a0 != database.ContractAddress(sender, 0) {
		t.Fatalf("Should get the same address for the same sender and nonce.")
	}

	if !database.IsAddress(a0.Hex()) || database.IsAddress("0x1234") {
		t.Fatalf("Should be able to recognize addresses.")
	}
}
