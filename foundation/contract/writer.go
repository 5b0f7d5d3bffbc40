package contract

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// receiptPollInterval is how often WaitMined asks the node for a receipt.
const receiptPollInterval = time.Second

// Writer is the signer-bound handle to the contract. It provides everything
// the Reader does plus transaction submission.
type Writer struct {
	*Reader
	privateKey   *ecdsa.PrivateKey
	from         common.Address
	signer       types.Signer
	pollInterval time.Duration
}

// NewWriter binds the reader to the private key. A nil key means no wallet
// is connected and a nil Writer is returned.
func NewWriter(reader *Reader, privateKey *ecdsa.PrivateKey, chainID *big.Int) *Writer {
	if privateKey == nil {
		return nil
	}

	return &Writer{
		Reader:       reader,
		privateKey:   privateKey,
		from:         crypto.PubkeyToAddress(privateKey.PublicKey),
		signer:       types.LatestSignerForChainID(chainID),
		pollInterval: receiptPollInterval,
	}
}

// From returns the address transactions are sent from.
func (w *Writer) From() common.Address {
	return w.from
}

// PendingNonce returns the next nonce the node expects from the signer.
func (w *Writer) PendingNonce(ctx context.Context) (uint64, error) {
	nonce, err := w.backend.PendingNonceAt(ctx, w.from)
	if err != nil {
		return 0, fmt.Errorf("pending nonce: %w", err)
	}
	return nonce, nil
}

// Transact signs and broadcasts the call using the specified nonce. A call
// that would revert fails during gas estimation and is never broadcast.
func (w *Writer) Transact(ctx context.Context, nonce uint64, call Call) (*types.Transaction, error) {
	input, err := parsed.Pack(call.Method, call.Args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", call.Method, err)
	}

	gasPrice, err := w.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}

	msg := ethereum.CallMsg{
		From:     w.from,
		To:       &w.address,
		GasPrice: gasPrice,
		Data:     input,
	}

	gas, err := w.backend.EstimateGas(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("estimate gas %s: %w", call.Method, err)
	}

	// Leave headroom since state can change between estimation and inclusion.
	gas += gas / 5

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &w.address,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     input,
	})

	signedTx, err := types.SignTx(tx, w.signer, w.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign %s: %w", call.Method, err)
	}

	if err := w.backend.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("send %s: %w", call.Method, err)
	}

	return signedTx, nil
}

// WaitMined blocks until the transaction is included in a block or the
// context is done. A receipt with a failed status returns ErrReverted.
func (w *Writer) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := w.backend.TransactionReceipt(ctx, tx.Hash())
		switch {
		case err == nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("tx %s: %w", tx.Hash(), ErrReverted)
			}
			return receipt, nil

		case !errors.Is(err, ethereum.NotFound):
			return nil, fmt.Errorf("receipt %s: %w", tx.Hash(), err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
