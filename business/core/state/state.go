// Package state is the core API for the LearnBlock client. It owns the cached
// view of on-chain state for the connected account and implements the query
// and action operations against the contract.
package state

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/learnblock/learnblock/business/sys/metrics"
	"github.com/learnblock/learnblock/foundation/contract"
)

// Set of default values for the configuration.
const (
	DefaultRetryInterval = 30 * time.Second
	DefaultFetchLimit    = 8
)

// Set of error variables for the core.
var (
	ErrNotConnected   = errors.New("wallet not connected")
	ErrNotTrustee     = errors.New("account is not a trustee")
	ErrSignerMismatch = errors.New("signer does not match the connected address")
)

// =============================================================================

// EventHandler defines a function that is called when events occur in the
// processing of queries and actions.
type EventHandler func(v string, args ...any)

// Reader is the read-only view of the contract the core queries.
type Reader interface {
	UserProfile(ctx context.Context, user common.Address) (contract.UserProfile, error)
	IsRegistered(ctx context.Context, user common.Address) (bool, error)
	IsTrustee(ctx context.Context, account common.Address) (bool, error)
	Content(ctx context.Context, contentID uint64) (contract.Content, error)
	ContentIDs(ctx context.Context) ([]uint64, error)
	QuizQuestions(ctx context.Context, contentID uint64) ([]contract.QuizQuestion, error)
	UnredeemedPoints(ctx context.Context, user common.Address) (*big.Int, error)
	BadgeIDs(ctx context.Context, user common.Address) ([]uint64, error)
	CompletedContent(ctx context.Context, user common.Address) ([]uint64, error)
}

// Writer is the signer-bound handle the core submits transactions through.
type Writer interface {
	From() common.Address
	PendingNonce(ctx context.Context) (uint64, error)
	Transact(ctx context.Context, nonce uint64, call contract.Call) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
	ContentCreatedID(receipt *types.Receipt) (uint64, error)
}

// =============================================================================

// Config represents the configuration required to construct the core.
type Config struct {
	Reader        Reader
	RetryInterval time.Duration
	FetchLimit    int
	Metrics       *metrics.Metrics
	EvHandler     EventHandler
	OnCommit      func(Snapshot)
}

// State manages the cached view of the contract for one connected account.
type State struct {
	reader        Reader
	retryInterval time.Duration
	fetchLimit    int
	metrics       *metrics.Metrics
	evHandler     EventHandler
	store         *Store

	// registering admits one registration attempt at a time.
	registering chan struct{}

	mu        sync.Mutex
	writer    Writer
	submitter *Submitter
	retry     *retryWorker
	actions   map[string]ActionStatus
}

// New constructs the core with nothing connected.
func New(cfg Config) (*State, error) {
	if cfg.Reader == nil {
		return nil, errors.New("reader is required")
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	retryInterval := cfg.RetryInterval
	if retryInterval <= 0 {
		retryInterval = DefaultRetryInterval
	}

	fetchLimit := cfg.FetchLimit
	if fetchLimit <= 0 {
		fetchLimit = DefaultFetchLimit
	}

	onCommit := func(snap Snapshot) {
		cfg.Metrics.Snapshot(snap.Version, int(snap.Registration), len(snap.Contents))
		if cfg.OnCommit != nil {
			cfg.OnCommit(snap)
		}
	}

	s := State{
		reader:        cfg.Reader,
		retryInterval: retryInterval,
		fetchLimit:    fetchLimit,
		metrics:       cfg.Metrics,
		evHandler:     ev,
		store:         NewStore(onCommit),
		registering:   make(chan struct{}, 1),
		actions:       make(map[string]ActionStatus),
	}

	return &s, nil
}

// Snapshot returns a copy of the currently cached state.
func (s *State) Snapshot() Snapshot {
	return s.store.Snapshot()
}

// Connect makes the address the active account and eagerly loads content
// and the profile. A different address than the current one clears the
// cache first. The writer may be nil for a read-only connection.
func (s *State) Connect(ctx context.Context, addr common.Address, writer Writer) error {
	if addr == (common.Address{}) {
		return errors.New("connect: zero address")
	}

	if writer != nil && writer.From() != addr {
		return ErrSignerMismatch
	}

	s.evHandler("state: connect: started: %s", addr)
	defer s.evHandler("state: connect: completed: %s", addr)

	s.mu.Lock()
	snap := s.store.Snapshot()
	changed := !snap.Connected || snap.Address != addr

	var retry *retryWorker
	var submitter *Submitter
	if changed || s.writer != writer {
		submitter = s.submitter
		s.submitter = nil
		s.writer = writer
		if writer != nil {
			s.submitter = NewSubmitter(writer, s.evHandler)
		}
	}
	if changed {
		retry = s.retry
		s.retry = nil
		s.actions = make(map[string]ActionStatus)

		s.store.Reset(func(snap *Snapshot) {
			snap.Address = addr
			snap.Connected = true
		})
	}
	s.mu.Unlock()

	retry.stop()
	submitter.Shutdown()

	s.LoadAllContentIDs(ctx)
	s.RefreshUserProfile(ctx)

	return nil
}

// Disconnect clears everything cached for the current account and stops the
// registration retry and transaction submission.
func (s *State) Disconnect() {
	s.evHandler("state: disconnect: started")
	defer s.evHandler("state: disconnect: completed")

	s.mu.Lock()
	retry := s.retry
	submitter := s.submitter
	s.retry = nil
	s.submitter = nil
	s.writer = nil
	s.actions = make(map[string]ActionStatus)
	s.store.Reset(nil)
	s.mu.Unlock()

	retry.stop()
	submitter.Shutdown()
}

// Shutdown stops all background work. The cache is left as is.
func (s *State) Shutdown() {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	s.mu.Lock()
	retry := s.retry
	submitter := s.submitter
	s.retry = nil
	s.submitter = nil
	s.writer = nil
	s.mu.Unlock()

	retry.stop()
	submitter.Shutdown()
}

// connection returns the writer and submitter for the connected account.
func (s *State) connection() (Writer, *Submitter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writer == nil || s.submitter == nil {
		return nil, nil, ErrNotConnected
	}

	return s.writer, s.submitter, nil
}
