package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/devricklin/chatguard/internal/biz/domain"
)

// Mock implementations

var errStoreDown = errors.New("store unavailable")

type mockWhitelistRepo struct {
	mu      sync.Mutex
	entries map[string]*domain.WhitelistEntry
	fail    bool
}

func newMockWhitelistRepo(userIDs ...string) *mockWhitelistRepo {
	m := &mockWhitelistRepo{entries: make(map[string]*domain.WhitelistEntry)}
	for _, id := range userIDs {
		m.entries[id] = &domain.WhitelistEntry{UserID: id}
	}
	return m
}

func (m *mockWhitelistRepo) Add(ctx context.Context, entry *domain.WhitelistEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errStoreDown
	}
	m.entries[entry.UserID] = entry
	return nil
}

func (m *mockWhitelistRepo) Remove(ctx context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return false, errStoreDown
	}
	_, ok := m.entries[userID]
	delete(m.entries, userID)
	return ok, nil
}

func (m *mockWhitelistRepo) List(ctx context.Context) ([]*domain.WhitelistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.WhitelistEntry
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}

func (m *mockWhitelistRepo) IsWhitelisted(ctx context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return false, errStoreDown
	}
	_, ok := m.entries[userID]
	return ok, nil
}

type mockMemberRepo struct {
	mu      sync.Mutex
	records map[domain.MemberKey]domain.MemberRecord
	fail    bool
}

func newMockMemberRepo() *mockMemberRepo {
	return &mockMemberRepo{records: make(map[domain.MemberKey]domain.MemberRecord)}
}

func (m *mockMemberRepo) Get(ctx context.Context, chatID, userID string) (*domain.MemberRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errStoreDown
	}
	rec, ok := m.records[domain.MemberKey{ChatID: chatID, UserID: userID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (m *mockMemberRepo) Insert(ctx context.Context, rec *domain.MemberRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errStoreDown
	}
	key := domain.MemberKey{ChatID: rec.ChatID, UserID: rec.UserID}
	if _, ok := m.records[key]; !ok {
		m.records[key] = *rec
	}
	return nil
}

type mockVerifiedRepo struct {
	mu      sync.Mutex
	records map[domain.MemberKey]*domain.VerifiedRecord
	fail    bool
}

func newMockVerifiedRepo() *mockVerifiedRepo {
	return &mockVerifiedRepo{records: make(map[domain.MemberKey]*domain.VerifiedRecord)}
}

func (m *mockVerifiedRepo) IsVerified(ctx context.Context, chatID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return false, errStoreDown
	}
	_, ok := m.records[domain.MemberKey{ChatID: chatID, UserID: userID}]
	return ok, nil
}

func (m *mockVerifiedRepo) MarkVerified(ctx context.Context, rec *domain.VerifiedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errStoreDown
	}
	m.records[domain.MemberKey{ChatID: rec.ChatID, UserID: rec.UserID}] = rec
	return nil
}

type mockKeywordRepo struct {
	mu      sync.Mutex
	entries []*domain.LearnedKeyword
	nextID  int64
	fail    bool
}

func (m *mockKeywordRepo) Insert(ctx context.Context, kw *domain.LearnedKeyword) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return 0, errStoreDown
	}
	for _, e := range m.entries {
		if e.Active && e.Keyword == kw.Keyword {
			return 0, fmt.Errorf("keyword %q: %w", kw.Keyword, domain.ErrDuplicate)
		}
	}
	m.nextID++
	cp := *kw
	cp.ID = m.nextID
	m.entries = append([]*domain.LearnedKeyword{&cp}, m.entries...)
	return cp.ID, nil
}

func (m *mockKeywordRepo) Deactivate(ctx context.Context, keyword string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return false, errStoreDown
	}
	for _, e := range m.entries {
		if e.Active && e.Keyword == keyword {
			e.Active = false
			return true, nil
		}
	}
	return false, nil
}

func (m *mockKeywordRepo) List(ctx context.Context) ([]*domain.LearnedKeyword, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errStoreDown
	}
	out := make([]*domain.LearnedKeyword, len(m.entries))
	for i, e := range m.entries {
		cp := *e
		out[i] = &cp
	}
	return out, nil
}

type sentMessage struct {
	ChatID string
	Text   string
	TTL    time.Duration
}

// recordingSink captures platform actions. Sent messages get IDs msg-1,
// msg-2, ... and onSent runs inline unless holdSent is set.
type recordingSink struct {
	mu       sync.Mutex
	deleted  []string
	sent     []sentMessage
	removed  []string
	nextID   int
	holdSent bool
	held     []func()
}

func (s *recordingSink) DeleteMessage(chatID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, chatID+"/"+messageID)
}

func (s *recordingSink) SendMessage(chatID, text string, ttl time.Duration, onSent func(messageID string)) {
	s.mu.Lock()
	s.nextID++
	id := fmt.Sprintf("msg-%d", s.nextID)
	s.sent = append(s.sent, sentMessage{ChatID: chatID, Text: text, TTL: ttl})
	if onSent != nil && s.holdSent {
		s.held = append(s.held, func() { onSent(id) })
		onSent = nil
	}
	s.mu.Unlock()

	if onSent != nil {
		onSent(id)
	}
}

func (s *recordingSink) RemoveMember(chatID, userID, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, chatID+"/"+userID)
}

func (s *recordingSink) releaseHeld() {
	s.mu.Lock()
	held := s.held
	s.held = nil
	s.mu.Unlock()
	for _, f := range held {
		f()
	}
}

func (s *recordingSink) removedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.removed)
}

func (s *recordingSink) deletedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

func (s *recordingSink) sentTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	for i, m := range s.sent {
		out[i] = m.Text
	}
	return out
}

type recordingRecorder struct {
	mu            sync.Mutex
	verifications []domain.VerificationEvent
}

func (r *recordingRecorder) Message(domain.MessageLog) {}
func (r *recordingRecorder) Spam(domain.SpamReport) {}
func (r *recordingRecorder) MediaBlock(domain.MediaBlock) {}

func (r *recordingRecorder) Verification(ev domain.VerificationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verifications = append(r.verifications, ev)
}

func (r *recordingRecorder) outcomes() []domain.VerificationOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.VerificationOutcome
	for _, ev := range r.verifications {
		out = append(out, ev.Outcome)
	}
	return out
}

// fakeClock fires timers only when advanced
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward and runs the timers that came due
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []func()
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t.f)
		}
	}
	c.mu.Unlock()

	for _, f := range due {
		f()
	}
}

// fireAll runs every timer callback, stopped or not, as a late timer would
func (c *fakeClock) fireAll() {
	c.mu.Lock()
	fs := make([]func(), len(c.timers))
	for i, t := range c.timers {
		fs[i] = t.f
	}
	c.mu.Unlock()

	for _, f := range fs {
		f()
	}
}

func (c *fakeClock) activeTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Fixtures

func testSignals() *domain.SignalSet {
	return domain.NewSignalSet(
		[]string{"casino", "airdrop", "bonus", "giveaway", "crypto", "pump"},
		[]string{"bit.ly", "t.me/joinchat"},
		domain.Thresholds{
			KeywordDefault:   3,
			KeywordNewMember: 2,
			KeywordWithMedia: 2,
			Emoji:            10,
			SpamCutoff:       50,
		},
		time.Hour,
	)
}

func testProfile() *Profile {
	return &Profile{
		Signals: testSignals(),
		Verification: domain.VerificationPolicy{
			Timeout:     120 * time.Second,
			MaxAttempts: 3,
			Challenges: []domain.Challenge{
				{Question: "What is 2 + 2?", Answer: "4"},
				{Question: "What color is a clear daytime sky?", Answer: "Blue"},
			},
		},
	}
}
