package nameservice_test

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/learnblock/learnblock/foundation/nameservice"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func Test_NameService(t *testing.T) {
	dir := t.TempDir()

	pk, err := crypto.HexToECDSA("fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959")
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	if err := crypto.SaveECDSA(filepath.Join(dir, "trustee.ecdsa"), pk); err != nil {
		t.Fatalf("Should be able to save the private key: %s", err)
	}

	addr := common.HexToAddress("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")

	t.Log("Given the need to name accounts from a key folder.")
	{
		t.Logf("\tTest 0:\tWhen the folder holds one key.")
		{
			ns, err := nameservice.New(dir)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to load the folder: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to load the folder.", success)

			if name := ns.Lookup(addr); name != "trustee" {
				t.Logf("\t%s\tTest 0:\tgot: %s", failed, name)
				t.Logf("\t%s\tTest 0:\texp: %s", failed, "trustee")
				t.Fatalf("\t%s\tTest 0:\tShould resolve the name.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould resolve the name.", success)

			other := common.HexToAddress("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
			if name := ns.Lookup(other); name != other.Hex() {
				t.Fatalf("\t%s\tTest 0:\tShould fall back to the address: %s", failed, name)
			}
			t.Logf("\t%s\tTest 0:\tShould fall back to the address.", success)

			key, err := ns.PrivateKey("trustee.ecdsa")
			if err != nil || crypto.PubkeyToAddress(key.PublicKey) != addr {
				t.Fatalf("\t%s\tTest 0:\tShould return the key: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould return the key.", success)
		}

		t.Logf("\tTest 1:\tWhen the folder does not exist.")
		{
			ns, err := nameservice.New(filepath.Join(dir, "missing"))
			if err != nil || len(ns.Copy()) != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould return an empty name service: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould return an empty name service.", success)
		}
	}
}
