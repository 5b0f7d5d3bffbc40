package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Print the address for the specific key",
	RunE:  accountRun,
}

func init() {
	rootCmd.AddCommand(accountCmd)
}

func accountRun(cmd *cobra.Command, args []string) error {
	privateKey, err := loadPrivateKey()
	if err != nil {
		return err
	}

	fmt.Println(crypto.PubkeyToAddress(privateKey.PublicKey).Hex())
	return nil
}
