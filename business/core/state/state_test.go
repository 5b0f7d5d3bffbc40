package state_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/learnblock/learnblock/business/core/state"
	"github.com/learnblock/learnblock/foundation/contract"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

var (
	alice = common.HexToAddress("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
	bob   = common.HexToAddress("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")
)

var errRPC = errors.New("rpc unavailable")

// =============================================================================

// chain is an in-memory contract used by both the fake reader and writer.
type chain struct {
	mu         sync.Mutex
	contents   map[uint64]contract.Content
	profiles   map[common.Address]contract.UserProfile
	registered map[common.Address]bool
	trustees   map[common.Address]bool
	badges     map[common.Address][]uint64
	failing    map[string]error
	calls      map[string]int
	block      chan struct{}
}

func newChain() *chain {
	return &chain{
		contents:   make(map[uint64]contract.Content),
		profiles:   make(map[common.Address]contract.UserProfile),
		registered: make(map[common.Address]bool),
		trustees:   make(map[common.Address]bool),
		badges:     make(map[common.Address][]uint64),
		failing:    make(map[string]error),
		calls:      make(map[string]int),
	}
}

func (c *chain) enter(method string) error {
	c.mu.Lock()
	c.calls[method]++
	err := c.failing[method]
	block := c.block
	c.mu.Unlock()

	if block != nil && method == "UserProfile" {
		<-block
	}
	return err
}

func (c *chain) addContent(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contents[id] = contract.Content{ID: id, Title: "Content", Body: "Body", Points: 10}
}

func (c *chain) setProfile(addr common.Address, earned, redeemed int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles[addr] = contract.UserProfile{
		UserID:              big.NewInt(1),
		ArticlesRead:        big.NewInt(2),
		QuizzesTaken:        big.NewInt(1),
		TotalPointsEarned:   big.NewInt(earned),
		TotalPointsRedeemed: big.NewInt(redeemed),
		BadgeCount:          big.NewInt(1),
	}
	c.registered[addr] = true
}

func (c *chain) fail(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failing[method] = err
}

func (c *chain) count(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

func (c *chain) UserProfile(ctx context.Context, user common.Address) (contract.UserProfile, error) {
	if err := c.enter("UserProfile"); err != nil {
		return contract.UserProfile{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, exists := c.profiles[user]; exists {
		return p, nil
	}
	zero := big.NewInt(0)
	return contract.UserProfile{UserID: zero, ArticlesRead: zero, QuizzesTaken: zero, TotalPointsEarned: zero, TotalPointsRedeemed: zero, BadgeCount: zero}, nil
}

func (c *chain) IsRegistered(ctx context.Context, user common.Address) (bool, error) {
	if err := c.enter("IsRegistered"); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registered[user], nil
}

func (c *chain) IsTrustee(ctx context.Context, account common.Address) (bool, error) {
	if err := c.enter("IsTrustee"); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trustees[account], nil
}

func (c *chain) Content(ctx context.Context, contentID uint64) (contract.Content, error) {
	if err := c.enter("Content"); err != nil {
		return contract.Content{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	content, exists := c.contents[contentID]
	if !exists {
		return contract.Content{}, contract.ErrNotFound
	}
	return content, nil
}

func (c *chain) ContentIDs(ctx context.Context) ([]uint64, error) {
	if err := c.enter("ContentIDs"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]uint64, 0, len(c.contents))
	for id := range c.contents {
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *chain) QuizQuestions(ctx context.Context, contentID uint64) ([]contract.QuizQuestion, error) {
	if err := c.enter("QuizQuestions"); err != nil {
		return nil, err
	}
	return []contract.QuizQuestion{{Question: "Q?", Options: [4]string{"a", "b", "c", "d"}, CorrectOption: 2}}, nil
}

func (c *chain) UnredeemedPoints(ctx context.Context, user common.Address) (*big.Int, error) {
	if err := c.enter("UnredeemedPoints"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, exists := c.profiles[user]; exists {
		return p.Unredeemed(), nil
	}
	return big.NewInt(0), nil
}

func (c *chain) BadgeIDs(ctx context.Context, user common.Address) ([]uint64, error) {
	if err := c.enter("BadgeIDs"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint64{}, c.badges[user]...), nil
}

func (c *chain) CompletedContent(ctx context.Context, user common.Address) ([]uint64, error) {
	if err := c.enter("CompletedContent"); err != nil {
		return nil, err
	}
	return []uint64{}, nil
}

// =============================================================================

// wallet is a fake signer that applies calls to the chain when mined.
type wallet struct {
	chain *chain
	from  common.Address

	mu        sync.Mutex
	nonce     uint64
	sent      []uint64
	methods   []string
	sendErr   error
	pending   map[common.Hash]contract.Call
	nonceHits int
	mineDelay time.Duration
}

func newWallet(c *chain, from common.Address) *wallet {
	return &wallet{chain: c, from: from, pending: make(map[common.Hash]contract.Call)}
}

func (w *wallet) From() common.Address {
	return w.from
}

func (w *wallet) PendingNonce(ctx context.Context) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nonceHits++
	return w.nonce, nil
}

func (w *wallet) Transact(ctx context.Context, nonce uint64, call contract.Call) (*types.Transaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sendErr != nil {
		err := w.sendErr
		w.sendErr = nil
		return nil, err
	}
	if nonce != w.nonce {
		return nil, errors.New("nonce too low")
	}

	tx := types.NewTx(&types.LegacyTx{Nonce: nonce, Gas: 21000, GasPrice: big.NewInt(1), Data: []byte(call.Method)})
	w.nonce++
	w.sent = append(w.sent, nonce)
	w.methods = append(w.methods, call.Method)
	w.pending[tx.Hash()] = call
	return tx, nil
}

func (w *wallet) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	w.mu.Lock()
	call := w.pending[tx.Hash()]
	delay := w.mineDelay
	w.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if call.Method == "readArticle" {
		w.chain.setProfile(w.from, 10, 0)
	}

	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash()}, nil
}

func (w *wallet) ContentCreatedID(receipt *types.Receipt) (uint64, error) {
	return 42, nil
}

func (w *wallet) txCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.sent)
}

func (w *wallet) sentMethods() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string{}, w.methods...)
}

// =============================================================================

func newState(t *testing.T, c *chain, onCommit func(state.Snapshot)) *state.State {
	s, err := state.New(state.Config{
		Reader:        c,
		RetryInterval: 20 * time.Millisecond,
		EvHandler: func(v string, args ...any) {
			t.Logf("\t\t"+v, args...)
		},
		OnCommit: onCommit,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %s", failed, err)
	}
	t.Cleanup(s.Shutdown)
	return s
}

func waitFor(t *testing.T, timeout time.Duration, fn func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return fn()
}

// =============================================================================

func Test_Register(t *testing.T) {
	t.Log("Given the need to register an account.")
	{
		t.Logf("\tTest 0:\tWhen the account is already registered.")
		{
			ctx := context.Background()
			c := newChain()
			c.addContent(1)
			c.setProfile(alice, 50, 10)
			w := newWallet(c, alice)

			s := newState(t, c, nil)
			if err := s.Connect(ctx, alice, w); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to connect: %s", failed, err)
			}

			for i := 0; i < 2; i++ {
				res := s.RegisterUser(ctx)
				if !res.Success || res.Pending || res.Err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould succeed: %+v", failed, res)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould succeed.", success)

			if n := w.txCount(); n != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould not submit a transaction: %d sent", failed, n)
			}
			t.Logf("\t%s\tTest 0:\tShould not submit a transaction.", success)
		}

		t.Logf("\tTest 1:\tWhen content exists to anchor the registration.")
		{
			ctx := context.Background()
			c := newChain()
			c.addContent(3)
			c.addContent(1)
			w := newWallet(c, alice)

			s := newState(t, c, nil)
			s.Connect(ctx, alice, w)

			res := s.RegisterUser(ctx)
			if !res.Success || res.Pending {
				t.Fatalf("\t%s\tTest 1:\tShould register: %+v", failed, res)
			}
			t.Logf("\t%s\tTest 1:\tShould register.", success)

			if w.txCount() != 1 || w.methods[0] != "readArticle" {
				t.Fatalf("\t%s\tTest 1:\tShould send one readArticle: %v", failed, w.methods)
			}
			t.Logf("\t%s\tTest 1:\tShould send one readArticle.", success)

			if got := s.Snapshot().Registration; got != state.Registered {
				t.Fatalf("\t%s\tTest 1:\tShould be registered: %s", failed, got)
			}
			t.Logf("\t%s\tTest 1:\tShould be registered.", success)
		}

		t.Logf("\tTest 2:\tWhen no wallet is connected.")
		{
			ctx := context.Background()
			c := newChain()

			s := newState(t, c, nil)
			s.Connect(ctx, alice, nil)
			before := c.count("IsRegistered")

			res := s.RegisterUser(ctx)
			if res.Success || !errors.Is(res.Err, state.ErrNotConnected) {
				t.Fatalf("\t%s\tTest 2:\tShould fail as not connected: %+v", failed, res)
			}
			t.Logf("\t%s\tTest 2:\tShould fail as not connected.", success)

			if st := s.ActionStatus(state.ActionRegister); st.InFlight || !errors.Is(st.Err, state.ErrNotConnected) {
				t.Fatalf("\t%s\tTest 2:\tShould expose the error: %+v", failed, st)
			}
			t.Logf("\t%s\tTest 2:\tShould expose the error.", success)

			if n := c.count("IsRegistered") - before; n != 0 {
				t.Fatalf("\t%s\tTest 2:\tShould not call the network: %d calls", failed, n)
			}
			t.Logf("\t%s\tTest 2:\tShould not call the network.", success)
		}
	}
}

func Test_PendingRegistration(t *testing.T) {
	t.Log("Given the need to register before any content exists.")
	{
		t.Logf("\tTest 0:\tWhen content is added after the attempt.")
		{
			ctx := context.Background()
			c := newChain()
			w := newWallet(c, alice)

			s := newState(t, c, nil)
			s.Connect(ctx, alice, w)

			res := s.RegisterUser(ctx)
			if !res.Success || !res.Pending {
				t.Fatalf("\t%s\tTest 0:\tShould report pending success: %+v", failed, res)
			}
			t.Logf("\t%s\tTest 0:\tShould report pending success.", success)

			if got := s.Snapshot().Registration; got != state.Pending {
				t.Fatalf("\t%s\tTest 0:\tShould be pending: %s", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould be pending.", success)

			c.addContent(1)

			registered := waitFor(t, 2*time.Second, func() bool {
				return s.Snapshot().Registration == state.Registered
			})
			if !registered {
				t.Fatalf("\t%s\tTest 0:\tShould resolve to registered: %s", failed, s.Snapshot().Registration)
			}
			t.Logf("\t%s\tTest 0:\tShould resolve to registered.", success)

			if n := w.txCount(); n != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould anchor with one transaction: %d", failed, n)
			}
			t.Logf("\t%s\tTest 0:\tShould anchor with one transaction.", success)
		}

		t.Logf("\tTest 1:\tWhen the account disconnects while pending.")
		{
			ctx := context.Background()
			c := newChain()
			w := newWallet(c, alice)

			s := newState(t, c, nil)
			s.Connect(ctx, alice, w)
			s.RegisterUser(ctx)

			s.Disconnect()
			c.addContent(1)
			time.Sleep(100 * time.Millisecond)

			if n := w.txCount(); n != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould stop retrying: %d sent", failed, n)
			}
			t.Logf("\t%s\tTest 1:\tShould stop retrying.", success)
		}

		t.Logf("\tTest 2:\tWhen the user retries while the anchor is being mined.")
		{
			ctx := context.Background()
			c := newChain()
			w := newWallet(c, alice)
			w.mineDelay = 150 * time.Millisecond

			s := newState(t, c, nil)
			s.Connect(ctx, alice, w)

			if res := s.RegisterUser(ctx); !res.Pending {
				t.Fatalf("\t%s\tTest 2:\tShould start pending: %+v", failed, res)
			}
			t.Logf("\t%s\tTest 2:\tShould start pending.", success)

			c.addContent(1)

			res := s.RegisterUser(ctx)
			if !res.Success || res.Pending || res.Err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould register: %+v", failed, res)
			}
			t.Logf("\t%s\tTest 2:\tShould register.", success)

			time.Sleep(200 * time.Millisecond)

			if got := w.sentMethods(); len(got) != 1 || got[0] != "readArticle" {
				t.Fatalf("\t%s\tTest 2:\tShould anchor exactly once: %v", failed, got)
			}
			t.Logf("\t%s\tTest 2:\tShould anchor exactly once.", success)

			if got := s.Snapshot().Registration; got != state.Registered {
				t.Fatalf("\t%s\tTest 2:\tShould be registered: %s", failed, got)
			}
			t.Logf("\t%s\tTest 2:\tShould be registered.", success)
		}
	}
}

func Test_Refresh(t *testing.T) {
	t.Log("Given the need to refresh the cached profile.")
	{
		t.Logf("\tTest 0:\tWhen every fetch succeeds.")
		{
			ctx := context.Background()
			c := newChain()
			c.setProfile(alice, 150, 40)
			c.badges[alice] = []uint64{1, 2}

			var mu sync.Mutex
			var commits []state.Snapshot
			s := newState(t, c, func(snap state.Snapshot) {
				mu.Lock()
				commits = append(commits, snap)
				mu.Unlock()
			})
			s.Connect(ctx, alice, nil)

			mu.Lock()
			before := len(commits)
			mu.Unlock()

			snap := s.RefreshUserProfile(ctx)

			mu.Lock()
			n := len(commits) - before
			mu.Unlock()
			if n != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould commit once: %d commits", failed, n)
			}
			t.Logf("\t%s\tTest 0:\tShould commit once.", success)

			if snap.Profile.UnredeemedPoints != "110" || snap.UnredeemedPoints != "110" {
				t.Fatalf("\t%s\tTest 0:\tShould hold earned minus redeemed: %s %s", failed, snap.Profile.UnredeemedPoints, snap.UnredeemedPoints)
			}
			t.Logf("\t%s\tTest 0:\tShould hold earned minus redeemed.", success)

			if snap.Registration != state.Registered || len(snap.BadgeIDs) != 2 || snap.Profile.UserID != "1" {
				t.Fatalf("\t%s\tTest 0:\tShould reflect one fetch cycle: %+v", failed, snap)
			}
			t.Logf("\t%s\tTest 0:\tShould reflect one fetch cycle.", success)
		}

		t.Logf("\tTest 1:\tWhen the profile query fails.")
		{
			ctx := context.Background()
			c := newChain()
			c.setProfile(alice, 150, 40)
			c.fail("UserProfile", errRPC)

			s := newState(t, c, nil)
			s.Connect(ctx, alice, nil)

			snap := s.RefreshUserProfile(ctx)
			if snap.Profile != state.DefaultProfile() {
				t.Fatalf("\t%s\tTest 1:\tShould fall back to the default profile: %+v", failed, snap.Profile)
			}
			t.Logf("\t%s\tTest 1:\tShould fall back to the default profile.", success)

			if snap.Profile.UserID != "0" || snap.Profile.ArticlesRead != "0" {
				t.Fatalf("\t%s\tTest 1:\tShould zero the numeric fields: %+v", failed, snap.Profile)
			}
			t.Logf("\t%s\tTest 1:\tShould zero the numeric fields.", success)
		}

		t.Logf("\tTest 2:\tWhen the account changes during the refresh.")
		{
			ctx := context.Background()
			c := newChain()
			c.setProfile(alice, 150, 40)

			s := newState(t, c, nil)
			s.Connect(ctx, alice, nil)

			c.mu.Lock()
			c.block = make(chan struct{})
			block := c.block
			c.mu.Unlock()

			done := make(chan state.Snapshot)
			go func() {
				done <- s.RefreshUserProfile(ctx)
			}()

			time.Sleep(20 * time.Millisecond)
			s.Disconnect()

			c.mu.Lock()
			c.block = nil
			c.mu.Unlock()
			close(block)
			<-done

			snap := s.Snapshot()
			if snap.Connected || snap.Profile.UserID != "0" {
				t.Fatalf("\t%s\tTest 2:\tShould drop the stale refresh: %+v", failed, snap)
			}
			t.Logf("\t%s\tTest 2:\tShould drop the stale refresh.", success)
		}

		t.Logf("\tTest 3:\tWhen the registration reads fail for a registered account.")
		{
			ctx := context.Background()
			c := newChain()
			c.setProfile(alice, 150, 40)

			s := newState(t, c, nil)
			s.Connect(ctx, alice, nil)

			if got := s.Snapshot().Registration; got != state.Registered {
				t.Fatalf("\t%s\tTest 3:\tShould start registered: %s", failed, got)
			}
			t.Logf("\t%s\tTest 3:\tShould start registered.", success)

			c.fail("UserProfile", errRPC)
			c.fail("IsRegistered", errRPC)

			if got := s.RefreshUserProfile(ctx).Registration; got != state.Registered {
				t.Fatalf("\t%s\tTest 3:\tShould stay registered: %s", failed, got)
			}
			t.Logf("\t%s\tTest 3:\tShould stay registered.", success)
		}

		t.Logf("\tTest 4:\tWhen the registration read fails for a new account.")
		{
			ctx := context.Background()
			c := newChain()
			c.fail("IsRegistered", errRPC)

			s := newState(t, c, nil)
			s.Connect(ctx, alice, nil)

			if got := s.RefreshUserProfile(ctx).Registration; got != state.Unregistered {
				t.Fatalf("\t%s\tTest 4:\tShould keep the cached state: %s", failed, got)
			}
			t.Logf("\t%s\tTest 4:\tShould keep the cached state.", success)
		}
	}
}

func Test_Content(t *testing.T) {
	t.Log("Given the need to load content.")
	{
		t.Logf("\tTest 0:\tWhen the id set changes between loads.")
		{
			ctx := context.Background()
			c := newChain()
			c.addContent(1)
			c.addContent(2)
			c.addContent(3)

			s := newState(t, c, nil)
			if got := s.LoadAllContentIDs(ctx); len(got) != 3 || got[0].ID != 1 || got[2].ID != 3 {
				t.Fatalf("\t%s\tTest 0:\tShould load every item in order: %+v", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould load every item in order.", success)

			c.mu.Lock()
			delete(c.contents, 1)
			delete(c.contents, 2)
			c.mu.Unlock()
			c.addContent(7)

			s.LoadAllContentIDs(ctx)
			got := s.Snapshot().Contents
			if len(got) != 2 || got[0].ID != 3 || got[1].ID != 7 {
				t.Fatalf("\t%s\tTest 0:\tShould match the second set exactly: %+v", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould match the second set exactly.", success)

			if len(got[0].Questions) != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould fetch questions alongside: %+v", failed, got[0])
			}
			t.Logf("\t%s\tTest 0:\tShould fetch questions alongside.", success)
		}

		t.Logf("\tTest 1:\tWhen a single item fails to load.")
		{
			ctx := context.Background()
			c := newChain()
			c.addContent(1)

			s := newState(t, c, nil)
			if got := s.GetContent(ctx, 9); got != nil {
				t.Fatalf("\t%s\tTest 1:\tShould return nil: %+v", failed, got)
			}
			t.Logf("\t%s\tTest 1:\tShould return nil.", success)
		}

		t.Logf("\tTest 2:\tWhen a trustee creates content.")
		{
			ctx := context.Background()
			c := newChain()
			c.trustees[alice] = true
			w := newWallet(c, alice)

			s := newState(t, c, nil)
			s.Connect(ctx, alice, w)

			meta := state.ContentMeta{ReadTime: "5 min", Difficulty: "easy", Category: "basics"}
			res := s.CreateContent(ctx, contract.NewContent{Title: "T", Body: "B", Points: 10}, meta)
			if !res.Success || res.ContentID != 42 {
				t.Fatalf("\t%s\tTest 2:\tShould return the new id: %+v", failed, res)
			}
			t.Logf("\t%s\tTest 2:\tShould return the new id.", success)

			if got := s.Snapshot().Meta[42]; got != meta {
				t.Fatalf("\t%s\tTest 2:\tShould keep the metadata: %+v", failed, got)
			}
			t.Logf("\t%s\tTest 2:\tShould keep the metadata.", success)
		}

		t.Logf("\tTest 3:\tWhen a non trustee creates content.")
		{
			ctx := context.Background()
			c := newChain()
			w := newWallet(c, bob)

			s := newState(t, c, nil)
			s.Connect(ctx, bob, w)

			res := s.CreateContent(ctx, contract.NewContent{Title: "T", Body: "B", Points: 10}, state.ContentMeta{})
			if res.Success || !errors.Is(res.Err, state.ErrNotTrustee) || w.txCount() != 0 {
				t.Fatalf("\t%s\tTest 3:\tShould refuse without a transaction: %+v", failed, res)
			}
			t.Logf("\t%s\tTest 3:\tShould refuse without a transaction.", success)
		}
	}
}

func Test_Submitter(t *testing.T) {
	t.Log("Given the need to serialize transactions for one signer.")
	{
		t.Logf("\tTest 0:\tWhen many actions are submitted concurrently.")
		{
			ctx := context.Background()
			c := newChain()
			w := newWallet(c, alice)
			w.nonce = 5

			sub := state.NewSubmitter(w, nil)
			defer sub.Shutdown()

			const n = 20
			var wg sync.WaitGroup
			wg.Add(n)
			errs := make(chan error, n)
			for i := 0; i < n; i++ {
				go func() {
					defer wg.Done()
					if _, err := sub.Submit(ctx, contract.ReadArticle(1)); err != nil {
						errs <- err
					}
				}()
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				t.Fatalf("\t%s\tTest 0:\tShould submit every transaction: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould submit every transaction.", success)

			for i, nonce := range w.sent {
				if nonce != uint64(5+i) {
					t.Fatalf("\t%s\tTest 0:\tShould use consecutive nonces: %v", failed, w.sent)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould use consecutive nonces.", success)

			if w.nonceHits != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould read the nonce once: %d", failed, w.nonceHits)
			}
			t.Logf("\t%s\tTest 0:\tShould read the nonce once.", success)
		}

		t.Logf("\tTest 1:\tWhen a send fails.")
		{
			ctx := context.Background()
			c := newChain()
			w := newWallet(c, alice)

			sub := state.NewSubmitter(w, nil)
			defer sub.Shutdown()

			sub.Submit(ctx, contract.ReadArticle(1))

			w.mu.Lock()
			w.sendErr = errRPC
			w.mu.Unlock()

			if _, err := sub.Submit(ctx, contract.ReadArticle(1)); !errors.Is(err, errRPC) {
				t.Fatalf("\t%s\tTest 1:\tShould return the send error: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould return the send error.", success)

			if _, err := sub.Submit(ctx, contract.ReadArticle(1)); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould recover on the next send: %s", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould recover on the next send.", success)

			if w.nonceHits != 2 {
				t.Fatalf("\t%s\tTest 1:\tShould resync the nonce: %d reads", failed, w.nonceHits)
			}
			t.Logf("\t%s\tTest 1:\tShould resync the nonce.", success)
		}

		t.Logf("\tTest 2:\tWhen the submitter is shut down.")
		{
			c := newChain()
			sub := state.NewSubmitter(newWallet(c, alice), nil)
			sub.Shutdown()

			if _, err := sub.Submit(context.Background(), contract.ReadArticle(1)); !errors.Is(err, state.ErrSubmitterClosed) {
				t.Fatalf("\t%s\tTest 2:\tShould refuse the call: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould refuse the call.", success)
		}
	}
}

func Test_Disconnect(t *testing.T) {
	t.Log("Given the need to isolate accounts.")
	{
		t.Logf("\tTest 0:\tWhen the account disconnects or switches.")
		{
			ctx := context.Background()
			c := newChain()
			c.addContent(1)
			c.setProfile(alice, 80, 0)
			c.badges[alice] = []uint64{9}

			s := newState(t, c, nil)
			s.Connect(ctx, alice, nil)

			if snap := s.Snapshot(); snap.Profile.TotalPointsEarned != "80" || len(snap.Contents) != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould load eagerly on connect: %+v", failed, snap)
			}
			t.Logf("\t%s\tTest 0:\tShould load eagerly on connect.", success)

			s.Connect(ctx, bob, nil)
			snap := s.Snapshot()
			if snap.Address != bob || snap.Profile.TotalPointsEarned != "0" || len(snap.BadgeIDs) != 0 || snap.Registration != state.Unregistered {
				t.Fatalf("\t%s\tTest 0:\tShould not leak the previous account: %+v", failed, snap)
			}
			t.Logf("\t%s\tTest 0:\tShould not leak the previous account.", success)

			s.Disconnect()
			snap = s.Snapshot()
			if snap.Connected || len(snap.Contents) != 0 || snap.Profile != state.DefaultProfile() {
				t.Fatalf("\t%s\tTest 0:\tShould clear the cache: %+v", failed, snap)
			}
			t.Logf("\t%s\tTest 0:\tShould clear the cache.", success)
		}

		t.Logf("\tTest 1:\tWhen the signer does not match the address.")
		{
			c := newChain()
			s := newState(t, c, nil)

			if err := s.Connect(context.Background(), alice, newWallet(c, bob)); !errors.Is(err, state.ErrSignerMismatch) {
				t.Fatalf("\t%s\tTest 1:\tShould refuse the connection: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould refuse the connection.", success)
		}
	}
}
