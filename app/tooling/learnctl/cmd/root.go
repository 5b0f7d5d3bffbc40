// Package cmd contains the learnctl commands.
package cmd

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/learnblock/learnblock/business/core/state"
	"github.com/learnblock/learnblock/foundation/contract"
	"github.com/learnblock/learnblock/foundation/logger"
	"github.com/learnblock/learnblock/foundation/nameservice"
	"github.com/spf13/cobra"
)

var (
	accountName string
	accountPath string
	rpcURL      string
	contractHex string
	timeout     time.Duration
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:          "learnctl",
	Short:        "Operate on the LearnBlock contract",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "private", "Name of the private key file.")
	rootCmd.PersistentFlags().StringVarP(&accountPath, "account-path", "p", "zblock/accounts/", "Path to the directory with private keys.")
	rootCmd.PersistentFlags().StringVarP(&rpcURL, "rpc", "r", os.Getenv("LEARNBLOCK_CHAIN_RPCURL"), "Chain RPC endpoint.")
	rootCmd.PersistentFlags().StringVarP(&contractHex, "contract", "c", os.Getenv("LEARNBLOCK_CHAIN_CONTRACT_ADDRESS"), "LearnBlock contract address.")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 5*time.Minute, "Time to wait for the chain.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log core events.")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// =============================================================================

func getPrivateKeyPath() string {
	name := accountName
	if !strings.HasSuffix(name, nameservice.KeyExtension) {
		name += nameservice.KeyExtension
	}

	return filepath.Join(accountPath, name)
}

func loadPrivateKey() (*ecdsa.PrivateKey, error) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		return nil, fmt.Errorf("loading key %s: %w", getPrivateKeyPath(), err)
	}
	return privateKey, nil
}

// session is a core bound to the chain for the duration of one command.
type session struct {
	state  *state.State
	reader *contract.Reader
	close  func()
}

// open binds the contract and constructs the core. With a signer the core is
// connected to the signer's account and can perform actions.
func open(ctx context.Context, withSigner bool) (*session, error) {
	var privateKey *ecdsa.PrivateKey
	if withSigner {
		var err error
		if privateKey, err = loadPrivateKey(); err != nil {
			return nil, err
		}
	}

	reader, writer, err := contract.Bind(ctx, contract.Config{RPCURL: rpcURL, Address: contractHex}, privateKey)
	if err != nil {
		return nil, err
	}

	ev := func(v string, args ...any) {}
	closeLog := func() {}
	if verbose {
		log, err := logger.New("LEARNCTL")
		if err != nil {
			reader.Close()
			return nil, err
		}
		ev = func(v string, args ...any) {
			log.Infow(fmt.Sprintf(v, args...))
		}
		closeLog = func() { log.Sync() }
	}

	st, err := state.New(state.Config{
		Reader:    reader,
		EvHandler: ev,
	})
	if err != nil {
		reader.Close()
		return nil, err
	}

	if writer != nil {
		if err := st.Connect(ctx, writer.From(), writer); err != nil {
			st.Shutdown()
			reader.Close()
			return nil, err
		}
	}

	s := session{
		state:  st,
		reader: reader,
		close: func() {
			st.Shutdown()
			reader.Close()
			closeLog()
		},
	}

	return &s, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// printResult reports an action result and fails the command when the
// action failed.
func printResult(res state.Result) error {
	if !res.Success {
		return res.Err
	}

	out := struct {
		Success   bool   `json:"success"`
		Pending   bool   `json:"pending,omitempty"`
		TxHash    string `json:"txHash,omitempty"`
		ContentID uint64 `json:"contentId,omitempty"`
	}{
		Success:   true,
		Pending:   res.Pending,
		ContentID: res.ContentID,
	}
	if res.TxHash != (common.Hash{}) {
		out.TxHash = res.TxHash.Hex()
	}

	return printJSON(out)
}
