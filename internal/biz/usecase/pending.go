package usecase

import (
	"sync"

	"github.com/devricklin/chatguard/internal/biz/domain"
)

// Disposition tells the pending store what to do with an entry after an update
type Disposition int

const (
	// Keep leaves the entry and its timer as they are
	Keep Disposition = iota
	// Reissue gives the entry a new instance and re-arms its timer
	Reissue
	// Remove deletes the entry and stops its timer
	Remove
)

type pendingEntry struct {
	pv    domain.PendingVerification
	timer Timer
}

// PendingStore indexes outstanding challenges by member. Every read-modify-
// write runs under one lock, so whichever of an answer or a timeout takes
// an entry first wins and the other finds nothing.
type PendingStore struct {
	mu      sync.Mutex
	entries map[domain.MemberKey]*pendingEntry
	seq     uint64
	arm     func(key domain.MemberKey, instance uint64) Timer
}

// NewPendingStore creates a store. arm schedules the timeout of one
// challenge instance and is called with the store lock held.
func NewPendingStore(arm func(key domain.MemberKey, instance uint64) Timer) *PendingStore {
	return &PendingStore{
		entries: make(map[domain.MemberKey]*pendingEntry),
		arm:     arm,
	}
}

// Issue stores pv and arms its timeout. It returns false, leaving the
// existing entry alone, if the member already has a challenge outstanding.
func (s *PendingStore) Issue(pv domain.PendingVerification) (domain.PendingVerification, bool) {
	key := pv.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; ok {
		return domain.PendingVerification{}, false
	}
	s.seq++
	pv.Instance = s.seq
	s.entries[key] = &pendingEntry{pv: pv, timer: s.arm(key, pv.Instance)}
	return pv, true
}

// Get returns a snapshot of the outstanding challenge for key
func (s *PendingStore) Get(key domain.MemberKey) (domain.PendingVerification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return domain.PendingVerification{}, false
	}
	return e.pv, true
}

// Take removes the entry for key if present and stops its timer
func (s *PendingStore) Take(key domain.MemberKey) (domain.PendingVerification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.removeLocked(key)
}

// TakeInstance removes the entry only while instance is still its current
// challenge. Timers use it so a timer armed for a replaced challenge is inert.
func (s *PendingStore) TakeInstance(key domain.MemberKey, instance uint64) (domain.PendingVerification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.pv.Instance != instance {
		return domain.PendingVerification{}, false
	}
	return s.removeLocked(key)
}

// Resolve applies fn to the entry for key under the store lock and carries
// out the returned disposition. It returns the entry as left by fn and
// false if there was no entry.
func (s *PendingStore) Resolve(key domain.MemberKey, fn func(pv *domain.PendingVerification) Disposition) (domain.PendingVerification, Disposition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return domain.PendingVerification{}, Keep, false
	}

	pv := e.pv
	d := fn(&pv)
	if pv.Key() != key {
		panic("pending verification key changed during resolve: " + key.String())
	}

	switch d {
	case Remove:
		e.pv = pv
		removed, _ := s.removeLocked(key)
		return removed, d, true
	case Reissue:
		if e.timer != nil {
			e.timer.Stop()
		}
		s.seq++
		pv.Instance = s.seq
		e.pv = pv
		e.timer = s.arm(key, pv.Instance)
	default:
		pv.Instance = e.pv.Instance
		e.pv = pv
	}
	return e.pv, d, true
}

// SetPrompt records the prompt message of a challenge instance. It returns
// false if that instance is no longer outstanding.
func (s *PendingStore) SetPrompt(key domain.MemberKey, instance uint64, messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.pv.Instance != instance {
		return false
	}
	e.pv.PromptMessageID = messageID
	return true
}

// Len returns the number of outstanding challenges
func (s *PendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Drain removes every entry and stops all timers
func (s *PendingStore) Drain() []domain.PendingVerification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.PendingVerification, 0, len(s.entries))
	for key := range s.entries {
		pv, _ := s.removeLocked(key)
		out = append(out, pv)
	}
	return out
}

func (s *PendingStore) removeLocked(key domain.MemberKey) (domain.PendingVerification, bool) {
	e, ok := s.entries[key]
	if !ok {
		return domain.PendingVerification{}, false
	}
	delete(s.entries, key)
	if e.timer != nil {
		e.timer.Stop()
	}
	return e.pv, true
}
