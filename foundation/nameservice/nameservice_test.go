package nameservice_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/nameservice"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Lookup(t *testing.T) {
	root := t.TempDir()

	pk, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}
	if err := crypto.SaveECDSA(filepath.Join(root, "miner1.ecdsa"), pk); err != nil {
		t.Fatalf("Should be able to save the private key: %s", err)
	}
	if err := os.WriteFile(filepath.Join(root, "README"), []byte("skip"), 0600); err != nil {
		t.Fatalf("Should be able to write a file: %s", err)
	}

	t.Log("Given the need to resolve account names from key files.")
	{
		ns, err := nameservice.New(root)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to load the accounts: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to load the accounts.", success)

		address := database.PublicKeyToAddress(pk.PublicKey)
		if name := ns.Lookup(address); name != "miner1" {
			t.Fatalf("\t%s\tShould resolve the name of a known account: got %s", failed, name)
		}
		t.Logf("\t%s\tShould resolve the name of a known account.", success)

		unknown := common.HexToAddress("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
		if name := ns.Lookup(unknown); name != unknown.Hex() {
			t.Fatalf("\t%s\tShould fall back to the address: got %s", failed, name)
		}
		t.Logf("\t%s\tShould fall back to the address.", success)

		key, err := ns.PrivateKey("miner1")
		if err != nil || !key.Equal(pk) {
			t.Fatalf("\t%s\tShould return the stored private key: %v", failed, err)
		}
		if _, err := ns.PrivateKey("nobody"); !errors.Is(err, database.ErrNotFound) {
			t.Fatalf("\t%s\tShould not find an unknown name: %v", failed, err)
		}
		t.Logf("\t%s\tShould return the stored private key.", success)

		if len(ns.Copy()) != 1 {
			t.Fatalf("\t%s\tShould only load .ecdsa files.", failed)
		}
		t.Logf("\t%s\tShould only load .ecdsa files.", success)
	}
}
