package state

import (
	"context"
	"time"
)

// retryWorker is the background registration retry for a pending account.
type retryWorker struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// stop terminates the worker and waits for it to return.
func (rw *retryWorker) stop() {
	if rw == nil {
		return
	}
	rw.cancel()
	<-rw.done
}

// startRetry starts the retry worker unless one is already running.
func (s *State) startRetry() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retry != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	rw := retryWorker{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.retry = &rw

	go s.retryOperations(ctx, &rw)
}

// stopRetry stops the retry worker if one is running. It must not be called
// from the worker goroutine.
func (s *State) stopRetry() {
	s.mu.Lock()
	rw := s.retry
	s.retry = nil
	s.mu.Unlock()

	rw.stop()
}

// retryOperations attempts registration on every tick while the account is
// pending. It returns on success, once the account is no longer pending or
// when cancelled.
func (s *State) retryOperations(ctx context.Context, rw *retryWorker) {
	s.evHandler("state: retryOperations: G started")
	defer s.evHandler("state: retryOperations: G completed")

	defer func() {
		s.mu.Lock()
		if s.retry == rw {
			s.retry = nil
		}
		s.mu.Unlock()
		close(rw.done)
	}()

	ticker := time.NewTicker(s.retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if s.store.Snapshot().Registration != Pending {
			s.evHandler("state: retryOperations: no longer pending")
			return
		}

		if s.ActionStatus(ActionRegister).InFlight {
			s.evHandler("state: retryOperations: attempt in flight, skipping tick")
			continue
		}

		res := s.perform(ctx, ActionRegister, s.register)
		switch {
		case res.Err != nil:
			continue
		case res.Pending:
			s.evHandler("state: retryOperations: still pending")
			continue
		}

		s.RefreshUserProfile(ctx)
		return
	}
}
