package state

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// GetContent returns the content with its quiz questions, or nil if it
// could not be read.
func (s *State) GetContent(ctx context.Context, contentID uint64) *Content {
	c, err := s.fetchContent(ctx, contentID)
	if err != nil {
		s.evHandler("state: GetContent: %d: ERROR: %s", contentID, err)
		return nil
	}

	if meta, exists := s.store.Snapshot().Meta[contentID]; exists {
		c.Meta = meta
	}

	return &c
}

// LoadAllContentIDs reads the list of content ids and fetches every item
// concurrently. Items that fail to load are left out. The result replaces
// the cached content list.
func (s *State) LoadAllContentIDs(ctx context.Context) []Content {
	s.evHandler("state: LoadAllContentIDs: started")
	defer s.evHandler("state: LoadAllContentIDs: completed")

	start := s.store.Snapshot()

	ids, err := s.reader.ContentIDs(ctx)
	if err != nil {
		s.evHandler("state: LoadAllContentIDs: ids: ERROR: %s", err)
		return start.Contents
	}

	results := make([]*Content, len(ids))

	var g errgroup.Group
	g.SetLimit(s.fetchLimit)

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			c, err := s.fetchContent(ctx, id)
			if err != nil {
				s.evHandler("state: LoadAllContentIDs: content[%d]: ERROR: %s", id, err)
				return nil
			}
			results[i] = &c
			return nil
		})
	}
	g.Wait()

	contents := make([]Content, 0, len(ids))
	for _, c := range results {
		if c != nil {
			contents = append(contents, *c)
		}
	}
	slices.SortFunc(contents, func(a, b Content) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	snap, ok := s.store.Update(func(snap *Snapshot) bool {
		if snap.session != start.session {
			return false
		}
		for i := range contents {
			contents[i].Meta = snap.Meta[contents[i].ID]
		}
		snap.Contents = contents
		return true
	})

	if !ok {
		s.evHandler("state: LoadAllContentIDs: account changed, dropped %d items", len(contents))
		return snap.Contents
	}

	s.evHandler("state: LoadAllContentIDs: loaded %d of %d items", len(contents), len(ids))

	return snap.Contents
}

// GetUserProfile returns the normalized profile for the address, or the
// zeroed default if the address has none or it could not be read.
func (s *State) GetUserProfile(ctx context.Context, addr common.Address) Profile {
	p, err := s.fetchProfile(ctx, addr)
	if err != nil {
		s.evHandler("state: GetUserProfile: %s: ERROR: %s", addr, err)
		return DefaultProfile()
	}
	return p
}

// GetUnredeemedPoints returns the unredeemed point balance, "0" on failure.
func (s *State) GetUnredeemedPoints(ctx context.Context, addr common.Address) string {
	points, err := s.reader.UnredeemedPoints(ctx, addr)
	if err != nil {
		s.evHandler("state: GetUnredeemedPoints: %s: ERROR: %s", addr, err)
		return "0"
	}
	return formatPoints(points)
}

// GetUserBadgeIDs returns the badge ids owned by the address.
func (s *State) GetUserBadgeIDs(ctx context.Context, addr common.Address) []uint64 {
	ids, err := s.reader.BadgeIDs(ctx, addr)
	if err != nil {
		s.evHandler("state: GetUserBadgeIDs: %s: ERROR: %s", addr, err)
		return []uint64{}
	}
	return ids
}

// GetUserCompletedContent returns the content ids the address completed.
func (s *State) GetUserCompletedContent(ctx context.Context, addr common.Address) []uint64 {
	ids, err := s.reader.CompletedContent(ctx, addr)
	if err != nil {
		s.evHandler("state: GetUserCompletedContent: %s: ERROR: %s", addr, err)
		return []uint64{}
	}
	return ids
}

// GetIsTrustee reports whether the address may manage content, false on
// failure.
func (s *State) GetIsTrustee(ctx context.Context, addr common.Address) bool {
	trustee, err := s.reader.IsTrustee(ctx, addr)
	if err != nil {
		s.evHandler("state: GetIsTrustee: %s: ERROR: %s", addr, err)
		return false
	}
	return trustee
}

// =============================================================================

// RefreshUserProfile fetches everything cached for the connected account
// concurrently and commits the results at once. A fetch that fails falls
// back to its default. Nothing is committed when the account changed while
// fetching.
func (s *State) RefreshUserProfile(ctx context.Context) Snapshot {
	start := s.store.Snapshot()
	if !start.Connected {
		return start
	}

	addr := start.Address

	s.evHandler("state: RefreshUserProfile: started: %s", addr)
	defer s.evHandler("state: RefreshUserProfile: completed: %s", addr)

	var (
		profile    = DefaultProfile()
		points     = "0"
		registered bool
		regKnown   bool
		trustee    bool
		badges     = []uint64{}
		completed  = []uint64{}

		mu     sync.Mutex
		failed []string
	)

	fetch := func(name string, fn func() error) func() error {
		return func() error {
			if err := fn(); err != nil {
				s.evHandler("state: RefreshUserProfile: %s: ERROR: %s", name, err)
				mu.Lock()
				failed = append(failed, name)
				mu.Unlock()
			}
			return nil
		}
	}

	var g errgroup.Group
	g.SetLimit(s.fetchLimit)

	g.Go(fetch("profile", func() error {
		p, err := s.fetchProfile(ctx, addr)
		if err != nil {
			return err
		}
		profile = p
		return nil
	}))

	g.Go(fetch("points", func() error {
		v, err := s.reader.UnredeemedPoints(ctx, addr)
		if err != nil {
			return err
		}
		points = formatPoints(v)
		return nil
	}))

	g.Go(fetch("registered", func() error {
		v, err := s.reader.IsRegistered(ctx, addr)
		if err != nil {
			return err
		}
		registered = v
		regKnown = true
		return nil
	}))

	g.Go(fetch("trustee", func() error {
		v, err := s.reader.IsTrustee(ctx, addr)
		if err != nil {
			return err
		}
		trustee = v
		return nil
	}))

	g.Go(fetch("badges", func() error {
		v, err := s.reader.BadgeIDs(ctx, addr)
		if err != nil {
			return err
		}
		badges = v
		return nil
	}))

	g.Go(fetch("completed", func() error {
		v, err := s.reader.CompletedContent(ctx, addr)
		if err != nil {
			return err
		}
		completed = v
		return nil
	}))

	g.Wait()

	if profile.Exists() {
		registered = true
	}

	snap, ok := s.store.Update(func(snap *Snapshot) bool {
		if snap.session != start.session {
			return false
		}

		snap.Profile = profile
		snap.UnredeemedPoints = points
		snap.IsTrustee = trustee
		snap.BadgeIDs = badges
		snap.CompletedContent = completed
		snap.RefreshedAt = time.Now().UTC()

		// A failed registration read leaves the cached state alone and
		// nothing leaves registered.
		switch {
		case registered:
			snap.Registration = Registered
		case snap.Registration == Registered, snap.Registration == Pending:
		case regKnown:
			snap.Registration = Unregistered
		}

		return true
	})

	if !ok {
		s.evHandler("state: RefreshUserProfile: account changed, refresh dropped")
		return snap
	}

	s.metrics.Refresh(len(failed) > 0)

	return snap
}

// =============================================================================

// fetchContent reads the content and its quiz questions.
func (s *State) fetchContent(ctx context.Context, contentID uint64) (Content, error) {
	c, err := s.reader.Content(ctx, contentID)
	if err != nil {
		return Content{}, err
	}

	questions, err := s.reader.QuizQuestions(ctx, contentID)
	if err != nil {
		return Content{}, fmt.Errorf("content[%d] questions: %w", contentID, err)
	}

	return newContent(c, questions), nil
}

// fetchProfile reads and normalizes the profile. An address without a
// profile yields the default profile.
func (s *State) fetchProfile(ctx context.Context, addr common.Address) (Profile, error) {
	p, err := s.reader.UserProfile(ctx, addr)
	if err != nil {
		return Profile{}, err
	}

	if !p.Exists() {
		return DefaultProfile(), nil
	}

	return newProfile(p), nil
}
