package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/devricklin/chatguard/internal/biz/domain"
	"github.com/devricklin/chatguard/internal/biz/usecase"
)

type platformCall struct {
	Op     string
	ChatID string
	Arg    string
}

// fakePlatform records calls; sent messages get IDs p1, p2, ...
type fakePlatform struct {
	mu      sync.Mutex
	calls   []platformCall
	nextID  int
	failAll bool
}

func (p *fakePlatform) SendMessage(ctx context.Context, chatID, text string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAll {
		return "", errors.New("platform down")
	}
	p.nextID++
	p.calls = append(p.calls, platformCall{Op: "send", ChatID: chatID, Arg: text})
	return fmt.Sprintf("p%d", p.nextID), nil
}

func (p *fakePlatform) DeleteMessage(ctx context.Context, chatID, messageID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAll {
		return errors.New("platform down")
	}
	p.calls = append(p.calls, platformCall{Op: "delete", ChatID: chatID, Arg: messageID})
	return nil
}

func (p *fakePlatform) RemoveMember(ctx context.Context, chatID, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAll {
		return errors.New("platform down")
	}
	p.calls = append(p.calls, platformCall{Op: "remove", ChatID: chatID, Arg: userID})
	return nil
}

func (p *fakePlatform) args(op string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, c := range p.calls {
		if c.Op == op {
			out = append(out, c.Arg)
		}
	}
	return out
}

func (p *fakePlatform) lastSent() string {
	sent := p.args("send")
	if len(sent) == 0 {
		return ""
	}
	return sent[len(sent)-1]
}

type fakeClassifier struct {
	mu    sync.Mutex
	spam  bool
	texts []string
}

func (c *fakeClassifier) IsSpam(ctx context.Context, text string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, text)
	return c.spam, nil
}

// fakeClock fires timers only when advanced
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock *fakeClock
	at    time.Time
	f     func()
	done  bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) usecase.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []func()
	for _, t := range c.timers {
		if !t.done && !t.at.After(c.now) {
			t.done = true
			due = append(due, t.f)
		}
	}
	c.mu.Unlock()
	for _, f := range due {
		f()
	}
}

func testProfile() *usecase.Profile {
	return &usecase.Profile{
		Signals: domain.NewSignalSet(
			[]string{"casino", "airdrop", "bonus", "giveaway", "crypto"},
			[]string{"bit.ly"},
			domain.Thresholds{KeywordDefault: 3, KeywordNewMember: 2, KeywordWithMedia: 2, Emoji: 10, SpamCutoff: 50},
			time.Hour,
		),
		Verification: domain.VerificationPolicy{
			Timeout:     2 * time.Minute,
			MaxAttempts: 3,
			Challenges:  []domain.Challenge{{Question: "What is 2 + 2?", Answer: "4"}},
		},
	}
}
