package transition_test

import (
	"crypto/ecdsa"
	"strings"
	"testing"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/ledger"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/transition"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/vm"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

var (
	alice = common.HexToAddress("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")
	bob   = common.HexToAddress("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
	miner = common.HexToAddress("0xFef311483Cc040e1A89fb9bb469eeB8A70935EF8")
)

// storeCallData writes the first word of the input into slot zero.
var storeCallData = []byte{
	byte(vm.PUSH1), 0,
	byte(vm.PUSH1), 0, byte(vm.CALLDATALOAD),
	byte(vm.SSTORE),
	byte(vm.STOP),
}

// =============================================================================

func Test_Transfer(t *testing.T) {
	pk := key(t)
	l := ledger.New(map[common.Address]*uint256.Int{alice: uint256.NewInt(1000)})
	engine := transition.New(transition.Config{BlockReward: uint256.NewInt(50)})

	tx := sign(t, pk, database.NewTxBuilder().To(bob).Value(uint256.NewInt(100)).GasPrice(uint256.NewInt(1)).GasLimit(21).Nonce(0))

	t.Log("Given the need to apply a plain transfer.")
	{
		result, err := engine.ApplyBlock(l, []database.Tx{tx}, miner, transition.ModeValidation)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to apply the block: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to apply the block.", success)

		if len(result.Receipts) != 1 || result.Receipts[0].Status != database.TxConfirmed {
			t.Fatalf("\t%s\tShould confirm the transaction: %+v", failed, result.Receipts)
		}
		t.Logf("\t%s\tShould confirm the transaction.", success)

		exp := map[common.Address]uint64{alice: 879, bob: 100, miner: 50}
		for addr, balance := range exp {
			if got := l.Balance(addr).Uint64(); got != balance {
				t.Fatalf("\t%s\tShould have the right balance for %s: got %d, exp %d", failed, addr, got, balance)
			}
		}
		t.Logf("\t%s\tShould have the right balances.", success)

		if l.Nonce(alice) != 1 {
			t.Fatalf("\t%s\tShould increment the sender nonce: got %d", failed, l.Nonce(alice))
		}
		t.Logf("\t%s\tShould increment the sender nonce.", success)

		root, _ := l.StateRoot()
		if root != result.StateRoot {
			t.Fatalf("\t%s\tShould return the ledger state root.", failed)
		}
		t.Logf("\t%s\tShould return the ledger state root.", success)
	}
}

func Test_Rejections(t *testing.T) {
	pk := key(t)

	type table struct {
		name    string
		builder *database.TxBuilder
		status  database.TxStatus
		err     string
	}

	tt := []table{
		{
			name:    "nonce too high",
			builder: database.NewTxBuilder().To(bob).Value(uint256.NewInt(1)).GasLimit(1).Nonce(1),
			status:  database.TxInvalid,
			err:     transition.ErrNonceMismatch.Error(),
		},
		{
			name:    "nonce too high with balance",
			builder: database.NewTxBuilder().To(bob).Value(uint256.NewInt(0)).GasLimit(1).Nonce(5),
			status:  database.TxInvalid,
			err:     transition.ErrNonceMismatch.Error(),
		},
		{
			name:    "insufficient balance",
			builder: database.NewTxBuilder().To(bob).Value(uint256.NewInt(990)).GasPrice(uint256.NewInt(1)).GasLimit(11).Nonce(0),
			status:  database.TxFailed,
			err:     transition.ErrInsufficientBalance.Error(),
		},
	}

	t.Log("Given the need to reject bad transactions.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a transaction with %s.", testID, tst.name)
			{
				f := func(t *testing.T) {
					l := ledger.New(map[common.Address]*uint256.Int{alice: uint256.NewInt(1000)})
					before, _ := l.StateRoot()

					engine := transition.New(transition.Config{})
					receipt := engine.ApplyTx(l, sign(t, pk, tst.builder))

					if receipt.Status != tst.status {
						t.Fatalf("\t%s\tTest %d:\tShould get status %s, got %s", failed, testID, tst.status, receipt.Status)
					}
					t.Logf("\t%s\tTest %d:\tShould get status %s.", success, testID, tst.status)

					if !strings.Contains(receipt.Err, tst.err) {
						t.Fatalf("\t%s\tTest %d:\tShould get error %q, got %q", failed, testID, tst.err, receipt.Err)
					}
					t.Logf("\t%s\tTest %d:\tShould get error %q.", success, testID, tst.err)

					after, _ := l.StateRoot()
					if before != after || l.Exists(bob) {
						t.Fatalf("\t%s\tTest %d:\tShould leave the ledger untouched.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould leave the ledger untouched.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_UnknownSender(t *testing.T) {
	pk, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	l := ledger.New(nil)
	engine := transition.New(transition.Config{})

	receipt := engine.ApplyTx(l, sign(t, pk, database.NewTxBuilder().To(bob).Value(uint256.NewInt(1)).GasLimit(1)))

	if receipt.Status != database.TxFailed {
		t.Fatalf("Should fail a transaction from an unfunded sender: got %s", receipt.Status)
	}

	if l.Len() != 0 {
		t.Fatalf("Should not leave the lazily created sender behind: got %d accounts", l.Len())
	}
}

func Test_Contract(t *testing.T) {
	pk := key(t)
	l := ledger.New(map[common.Address]*uint256.Int{alice: uint256.NewInt(1_000_000)})
	engine := transition.New(transition.Config{})

	t.Log("Given the need to deploy and call a contract.")
	{
		deploy := sign(t, pk, database.NewTxBuilder().Create(storeCallData).Value(uint256.NewInt(10)).GasPrice(uint256.NewInt(1)).GasLimit(1).Nonce(0))

		receipt := engine.ApplyTx(l, deploy)
		if receipt.Status != database.TxConfirmed {
			t.Fatalf("\t%s\tShould be able to deploy the contract: %s", failed, receipt.Err)
		}
		t.Logf("\t%s\tShould be able to deploy the contract.", success)

		contract := database.ContractAddress(alice, 0)
		if receipt.ContractAddress != contract {
			t.Fatalf("\t%s\tShould derive the contract address: got %s, exp %s", failed, receipt.ContractAddress, contract)
		}
		t.Logf("\t%s\tShould derive the contract address.", success)

		if string(l.Code(contract)) != string(storeCallData) || l.Balance(contract).Uint64() != 10 {
			t.Fatalf("\t%s\tShould install the code and value at the contract.", failed)
		}
		t.Logf("\t%s\tShould install the code and value at the contract.", success)

		input := uint256.NewInt(77).Bytes32()
		call := sign(t, pk, database.NewTxBuilder().To(contract).Value(uint256.NewInt(5)).GasPrice(uint256.NewInt(1)).GasLimit(30_000).Data(input[:]).Nonce(1))

		receipt = engine.ApplyTx(l, call)
		if receipt.Status != database.TxConfirmed || receipt.CallErr != "" {
			t.Fatalf("\t%s\tShould be able to call the contract: %s %s", failed, receipt.Err, receipt.CallErr)
		}
		t.Logf("\t%s\tShould be able to call the contract.", success)

		if got := l.GetState(contract, common.Hash{}); got != common.Hash(input) {
			t.Fatalf("\t%s\tShould write the input into storage: got %s", failed, got)
		}
		t.Logf("\t%s\tShould write the input into storage.", success)

		if receipt.GasUsed != 2*vm.GasPush+vm.GasCallDataLoad+vm.GasSStore {
			t.Fatalf("\t%s\tShould report the gas used: got %d", failed, receipt.GasUsed)
		}
		t.Logf("\t%s\tShould report the gas used.", success)

		if got := l.Balance(contract).Uint64(); got != 15 {
			t.Fatalf("\t%s\tShould credit the value to the contract: got %d", failed, got)
		}
		t.Logf("\t%s\tShould credit the value to the contract.", success)

		// 1_000_000 - (10 + 1) - (5 + 30_000)
		if got := l.Balance(alice).Uint64(); got != 969_984 {
			t.Fatalf("\t%s\tShould debit the sender value and the full fee: got %d", failed, got)
		}
		t.Logf("\t%s\tShould debit the sender value and the full fee.", success)
	}
}

func Test_ContractOutOfGas(t *testing.T) {
	pk := key(t)
	l := ledger.New(map[common.Address]*uint256.Int{alice: uint256.NewInt(1_000)})
	engine := transition.New(transition.Config{})

	deploy := sign(t, pk, database.NewTxBuilder().Create(storeCallData).GasLimit(1).Nonce(0))
	contract := engine.ApplyTx(l, deploy).ContractAddress

	t.Log("Given the need to handle a contract call running out of gas.")
	{
		input := uint256.NewInt(77).Bytes32()
		call := sign(t, pk, database.NewTxBuilder().To(contract).Value(uint256.NewInt(100)).GasPrice(uint256.NewInt(2)).GasLimit(10).Data(input[:]).Nonce(1))

		receipt := engine.ApplyTx(l, call)
		if receipt.Status != database.TxConfirmed {
			t.Fatalf("\t%s\tShould keep the transaction confirmed: %s", failed, receipt.Status)
		}
		t.Logf("\t%s\tShould keep the transaction confirmed.", success)

		if !strings.Contains(receipt.CallErr, vm.ErrOutOfGas.Error()) || receipt.GasUsed != 10 {
			t.Fatalf("\t%s\tShould report the call ran out of gas: %q gas[%d]", failed, receipt.CallErr, receipt.GasUsed)
		}
		t.Logf("\t%s\tShould report the call ran out of gas.", success)

		if got := l.GetState(contract, common.Hash{}); got != (common.Hash{}) {
			t.Fatalf("\t%s\tShould discard the storage writes: got %s", failed, got)
		}
		t.Logf("\t%s\tShould discard the storage writes.", success)

		if l.Balance(contract).Uint64() != 0 || l.Balance(alice).Uint64() != 980 {
			t.Fatalf("\t%s\tShould charge the full fee without a refund and return the value: sender[%d]", failed, l.Balance(alice).Uint64())
		}
		t.Logf("\t%s\tShould charge the full fee without a refund and return the value.", success)

		if l.Nonce(alice) != 2 {
			t.Fatalf("\t%s\tShould increment the nonce: got %d", failed, l.Nonce(alice))
		}
		t.Logf("\t%s\tShould increment the nonce.", success)
	}
}

func Test_Modes(t *testing.T) {
	pk := key(t)
	engine := transition.New(transition.Config{BlockReward: uint256.NewInt(50)})

	good := sign(t, pk, database.NewTxBuilder().To(bob).Value(uint256.NewInt(1)).GasLimit(1).Nonce(0))
	bad := sign(t, pk, database.NewTxBuilder().To(bob).Value(uint256.NewInt(1)).GasLimit(1).Nonce(7))

	t.Log("Given the need to apply blocks with a failing transaction.")
	{
		l := ledger.New(map[common.Address]*uint256.Int{alice: uint256.NewInt(1000)})

		result, err := engine.ApplyBlock(l, []database.Tx{good, bad}, miner, transition.ModeMining)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine around a failing transaction: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to mine around a failing transaction.", success)

		if len(result.Trans) != 1 || result.Trans[0].Hash() != good.Hash() || len(result.Rejected) != 1 {
			t.Fatalf("\t%s\tShould exclude the failing transaction.", failed)
		}
		t.Logf("\t%s\tShould exclude the failing transaction.", success)

		l = ledger.New(map[common.Address]*uint256.Int{alice: uint256.NewInt(1000)})
		if _, err := engine.ApplyBlock(l, []database.Tx{good, bad}, miner, transition.ModeValidation); err == nil {
			t.Fatalf("\t%s\tShould reject the whole block when validating.", failed)
		}
		t.Logf("\t%s\tShould reject the whole block when validating.", success)
	}
}

func Test_Determinism(t *testing.T) {
	pk := key(t)
	engine := transition.New(transition.Config{BlockReward: uint256.NewInt(50)})

	var trans []database.Tx
	for i := range uint64(5) {
		trans = append(trans, sign(t, pk, database.NewTxBuilder().To(bob).Value(uint256.NewInt(i+1)).GasPrice(uint256.NewInt(1)).GasLimit(10).Nonce(i)))
	}
	trans = append(trans, sign(t, pk, database.NewTxBuilder().Create(storeCallData).GasLimit(1).Nonce(5)))

	genesis := ledger.New(map[common.Address]*uint256.Int{alice: uint256.NewInt(1000)})

	var roots []common.Hash
	for range 3 {
		result, err := engine.ApplyBlock(genesis.Copy(), trans, miner, transition.ModeValidation)
		if err != nil {
			t.Fatalf("Should be able to apply the block: %s", err)
		}
		roots = append(roots, result.StateRoot)
	}

	for _, root := range roots[1:] {
		if root != roots[0] {
			t.Fatalf("Should get the same state root on every replay: %s != %s", root, roots[0])
		}
	}
}

// =============================================================================

func key(t *testing.T) *ecdsa.PrivateKey {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}
	return pk
}

func sign(t *testing.T, pk *ecdsa.PrivateKey, b *database.TxBuilder) database.Tx {
	tx, err := b.Sign(pk)
	if err != nil {
		t.Fatalf("Should be able to sign the transaction: %s", err)
	}
	return tx
}
