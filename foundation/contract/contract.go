// Package contract binds the LearnBlock smart contract. It produces a
// read-only handle for queries and a signer-bound handle for transactions.
package contract

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Set of error variables for the binding.
var (
	ErrMisconfigured = errors.New("contract binding misconfigured")
	ErrShapeMismatch = errors.New("contract result shape mismatch")
	ErrNotFound      = errors.New("not found")
	ErrReverted      = errors.New("transaction reverted")
)

// Backend is the subset of the node RPC api the binding needs. The
// ethclient.Client satisfies this interface.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Config represents the settings needed to bind the contract.
type Config struct {
	RPCURL  string
	Address string
}

// ContractAddress validates the configuration and returns the address of
// the contract.
func (cfg Config) ContractAddress() (common.Address, error) {
	if strings.TrimSpace(cfg.RPCURL) == "" {
		return common.Address{}, fmt.Errorf("%w: rpc endpoint is empty", ErrMisconfigured)
	}

	if !common.IsHexAddress(cfg.Address) {
		return common.Address{}, fmt.Errorf("%w: invalid contract address %q", ErrMisconfigured, cfg.Address)
	}

	return common.HexToAddress(cfg.Address), nil
}

// Bind dials the configured endpoint and constructs both handles. The writer
// is nil when no private key is provided.
func Bind(ctx context.Context, cfg Config, privateKey *ecdsa.PrivateKey) (*Reader, *Writer, error) {
	address, err := cfg.ContractAddress()
	if err != nil {
		return nil, nil, err
	}

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", cfg.RPCURL, err)
	}

	reader := NewReader(client, address)
	if privateKey == nil {
		return reader, nil, nil
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("query chain id: %w", err)
	}

	return reader, NewWriter(reader, privateKey, chainID), nil
}
