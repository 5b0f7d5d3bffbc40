// Package nameservice reads a folder of ecdsa key files and provides name
// resolution for the accounts, plus access to the keys for signing.
package nameservice

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeyExtension is the file extension of the key files that are loaded.
const KeyExtension = ".ecdsa"

// NameService maintains a map of accounts for name lookup.
type NameService struct {
	accounts map[common.Address]string
	keys     map[string]*ecdsa.PrivateKey
}

// New constructs a name service with the accounts found in the folder. A
// folder that does not exist produces an empty name service.
func New(root string) (*NameService, error) {
	ns := NameService{
		accounts: make(map[common.Address]string),
		keys:     make(map[string]*ecdsa.PrivateKey),
	}

	fn := func(fileName string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if d.IsDir() || path.Ext(fileName) != KeyExtension {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return fmt.Errorf("load %s: %w", fileName, err)
		}

		name := strings.TrimSuffix(filepath.Base(fileName), KeyExtension)
		ns.accounts[crypto.PubkeyToAddress(privateKey.PublicKey)] = name
		ns.keys[name] = privateKey

		return nil
	}

	if err := filepath.WalkDir(root, fn); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ns, nil
		}
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified account or the hex form of the
// address when the account is unknown.
func (ns *NameService) Lookup(account common.Address) string {
	name, exists := ns.accounts[account]
	if !exists {
		return account.Hex()
	}
	return name
}

// PrivateKey returns the key loaded for the specified name.
func (ns *NameService) PrivateKey(name string) (*ecdsa.PrivateKey, error) {
	pk, exists := ns.keys[strings.TrimSuffix(name, KeyExtension)]
	if !exists {
		return nil, fmt.Errorf("no key named %q", name)
	}
	return pk, nil
}

// Copy returns a copy of the map of names and accounts.
func (ns *NameService) Copy() map[common.Address]string {
	cpy := make(map[common.Address]string, len(ns.accounts))
	for account, name := range ns.accounts {
		cpy[account] = name
	}
	return cpy
}
