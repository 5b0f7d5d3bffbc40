package state

import (
	"context"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/learnblock/learnblock/foundation/contract"
)

// ErrSubmitterClosed is returned when a transaction is submitted after the
// submitter was shut down.
var ErrSubmitterClosed = errors.New("submitter closed")

// submitRequest is a call waiting for its turn to be signed and sent.
type submitRequest struct {
	ctx  context.Context
	call contract.Call
	resp chan submitResponse
}

type submitResponse struct {
	tx  *types.Transaction
	err error
}

// Submitter serializes every transaction for one signer through a single
// goroutine. That goroutine owns the local nonce.
type Submitter struct {
	writer    Writer
	evHandler EventHandler
	requests  chan submitRequest
	shut      chan struct{}
	wg        sync.WaitGroup
	once      sync.Once

	nonce  uint64
	synced bool
}

// NewSubmitter starts the submission goroutine for the writer.
func NewSubmitter(writer Writer, evHandler EventHandler) *Submitter {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	s := Submitter{
		writer:    writer,
		evHandler: evHandler,
		requests:  make(chan submitRequest),
		shut:      make(chan struct{}),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.submitOperations()
	}()

	return &s
}

// Shutdown terminates the submission goroutine. Calls already broadcast are
// not affected.
func (s *Submitter) Shutdown() {
	if s == nil {
		return
	}

	s.once.Do(func() {
		s.evHandler("submitter: shutdown: started")
		close(s.shut)
		s.wg.Wait()
		s.evHandler("submitter: shutdown: completed")
	})
}

// Submit queues the call and blocks until it is broadcast. It does not wait
// for the transaction to be mined.
func (s *Submitter) Submit(ctx context.Context, call contract.Call) (*types.Transaction, error) {
	req := submitRequest{
		ctx:  ctx,
		call: call,
		resp: make(chan submitResponse, 1),
	}

	select {
	case s.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.shut:
		return nil, ErrSubmitterClosed
	}

	select {
	case resp := <-req.resp:
		return resp.tx, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// submitOperations handles one request at a time until shutdown.
func (s *Submitter) submitOperations() {
	s.evHandler("submitter: operations: G started")
	defer s.evHandler("submitter: operations: G completed")

	for {
		select {
		case req := <-s.requests:
			tx, err := s.send(req.ctx, req.call)
			req.resp <- submitResponse{tx: tx, err: err}

		case <-s.shut:
			return
		}
	}
}

// send signs and broadcasts the call with the next local nonce. Any failure
// forces the nonce to be read from the node again on the next send.
func (s *Submitter) send(ctx context.Context, call contract.Call) (*types.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !s.synced {
		nonce, err := s.writer.PendingNonce(ctx)
		if err != nil {
			return nil, err
		}
		s.nonce = nonce
		s.synced = true
		s.evHandler("submitter: send: nonce synced: %d", nonce)
	}

	tx, err := s.writer.Transact(ctx, s.nonce, call)
	if err != nil {
		s.synced = false
		s.evHandler("submitter: send: %s: ERROR: %s", call.Method, err)
		return nil, err
	}

	s.evHandler("submitter: send: %s: nonce[%d] tx[%s]", call.Method, s.nonce, tx.Hash())
	s.nonce++

	return tx, nil
}
