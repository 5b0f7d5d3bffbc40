package cmd

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new key pair",
	RunE:  generateRun,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func generateRun(cmd *cobra.Command, args []string) error {
	path := getPrivateKeyPath()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("key %s already exists", path)
	}

	if err := os.MkdirAll(accountPath, 0o700); err != nil {
		return err
	}

	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return err
	}

	if err := crypto.SaveECDSA(path, privateKey); err != nil {
		return err
	}

	fmt.Println(crypto.PubkeyToAddress(privateKey.PublicKey).Hex())
	return nil
}
