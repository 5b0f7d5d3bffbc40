package state

import "sync"

// Store holds the single shared snapshot. All mutation is funneled through
// Update so every change is one ordered, versioned commit.
type Store struct {
	mu       sync.RWMutex
	snap     Snapshot
	onCommit func(Snapshot)
}

// NewStore constructs an empty store. The onCommit function, if provided,
// is called with a copy of every committed snapshot.
func NewStore(onCommit func(Snapshot)) *Store {
	return &Store{
		snap:     emptySnapshot(),
		onCommit: onCommit,
	}
}

// Snapshot returns a copy of the current cached state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snap.clone()
}

// Update applies the function to a copy of the current state and commits
// the copy as the next version. If the function returns false nothing is
// committed and the current state is returned.
func (s *Store) Update(fn func(snap *Snapshot) bool) (Snapshot, bool) {
	var out Snapshot

	s.mu.Lock()
	{
		next := s.snap.clone()
		if !fn(&next) {
			out = s.snap.clone()
			s.mu.Unlock()
			return out, false
		}

		next.Version = s.snap.Version + 1
		s.snap = next
		out = next.clone()
	}
	s.mu.Unlock()

	if s.onCommit != nil {
		s.onCommit(out)
	}

	return out, true
}

// Reset clears everything cached for the previous account. Content metadata
// is kept since it describes content, not the account.
func (s *Store) Reset(fn func(snap *Snapshot)) Snapshot {
	snap, _ := s.Update(func(snap *Snapshot) bool {
		meta := snap.Meta
		session := snap.session

		*snap = emptySnapshot()
		snap.Meta = meta
		snap.session = session + 1

		if fn != nil {
			fn(snap)
		}
		return true
	})

	return snap
}
