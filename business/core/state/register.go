package state

import (
	"context"
	"slices"

	"github.com/learnblock/learnblock/foundation/contract"
)

// RegisterUser registers the connected account. An account that is already
// registered succeeds without a transaction. When no content exists yet to
// anchor the registering read, the account is marked pending and a
// background worker retries on a fixed interval.
func (s *State) RegisterUser(ctx context.Context) Result {
	res := s.perform(ctx, ActionRegister, s.register)

	switch {
	case res.Pending:
		s.startRetry()
	case res.Success:
		s.stopRetry()
	}

	return res
}

// register performs one registration attempt. It is shared by RegisterUser
// and the retry worker and never starts or stops the worker itself. Attempts
// are serialized and the cache is read only after the attempt is admitted.
func (s *State) register(ctx context.Context) Result {
	if _, _, err := s.connection(); err != nil {
		return failure(err)
	}

	select {
	case s.registering <- struct{}{}:
	case <-ctx.Done():
		return failure(ctx.Err())
	}
	defer func() { <-s.registering }()

	snap := s.store.Snapshot()
	if !snap.Connected {
		return failure(ErrNotConnected)
	}

	if snap.Registration == Registered {
		return Result{Success: true}
	}

	registered, err := s.reader.IsRegistered(ctx, snap.Address)
	if err != nil {
		return failure(err)
	}

	if registered {
		s.setRegistration(snap.session, Registered)
		return Result{Success: true}
	}

	ids, err := s.reader.ContentIDs(ctx)
	if err != nil {
		return failure(err)
	}

	if len(ids) == 0 {
		s.setRegistration(snap.session, Pending)
		return Result{Success: true, Pending: true}
	}

	anchor := slices.Min(ids)
	s.evHandler("state: register: anchoring on content[%d]", anchor)

	receipt, err := s.transact(ctx, contract.ReadArticle(anchor))
	if err != nil {
		return failure(err)
	}

	s.setRegistration(snap.session, Registered)

	return Result{Success: true, TxHash: receipt.TxHash}
}

// setRegistration commits the registration state for the session. Nothing
// leaves registered and nothing is committed for an account that is no
// longer connected.
func (s *State) setRegistration(session uint64, rs RegistrationState) {
	s.store.Update(func(snap *Snapshot) bool {
		if snap.session != session || !snap.Connected {
			return false
		}
		if snap.Registration == rs || snap.Registration == Registered {
			return false
		}
		snap.Registration = rs
		return true
	})
}
