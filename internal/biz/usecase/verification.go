package usecase

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/devricklin/chatguard/internal/biz/domain"
	"github.com/devricklin/chatguard/internal/biz/repo"
)

// AnswerOutcome is the result of checking a challenged member's message
type AnswerOutcome int

const (
	// AnswerNoChallenge means nothing was outstanding for the member
	AnswerNoChallenge AnswerOutcome = iota
	// AnswerCorrect means the member is now verified
	AnswerCorrect
	// AnswerRetry means the answer was wrong and a new challenge was issued
	AnswerRetry
	// AnswerRejected means the attempts ran out and the member is removed
	AnswerRejected
	// AnswerRemoved means the member was already removed and the message
	// arrived before the removal took effect
	AnswerRemoved
)

func (o AnswerOutcome) String() string {
	switch o {
	case AnswerCorrect:
		return "correct"
	case AnswerRetry:
		return "retry"
	case AnswerRejected:
		return "rejected"
	case AnswerRemoved:
		return "removed"
	default:
		return "no_challenge"
	}
}

var fallbackChallenge = domain.Challenge{Question: "What is 2 + 3?", Answer: "5"}

// removed members are remembered until they join again or this passes
const (
	removedMemoryTTL  = 10 * time.Minute
	removedMemorySize = 10000
)

// VerificationOptions configures a VerificationUsecase
type VerificationOptions struct {
	Clock     Clock
	Recorder  Recorder
	Rand      func(n int) int
	NoticeTTL time.Duration
	Logger    *zap.Logger
}

// VerificationUsecase runs the join challenge for each member.
//
// A member is UNVERIFIED until a challenge is issued, CHALLENGED while a
// pending entry exists, and leaves that state exactly once: VERIFIED on a
// correct answer, REMOVED after too many wrong answers or on timeout.
type VerificationUsecase struct {
	pending   *PendingStore
	members   *MemberUsecase
	whitelist *WhitelistUsecase
	verified  repo.VerifiedRepo
	profiles  *ProfileProvider
	actions   ActionSink
	recorder  Recorder
	clock     Clock
	rand      func(n int) int
	noticeTTL time.Duration
	bg        *Background
	logger    *zap.Logger

	verifiedMu  sync.RWMutex
	verifiedSet map[domain.MemberKey]struct{}

	removed *expirable.LRU[domain.MemberKey, struct{}]
}

// NewVerificationUsecase creates the verification state machine
func NewVerificationUsecase(
	members *MemberUsecase,
	whitelist *WhitelistUsecase,
	verified repo.VerifiedRepo,
	profiles *ProfileProvider,
	actions ActionSink,
	bg *Background,
	opts VerificationOptions,
) *VerificationUsecase {
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.Recorder == nil {
		opts.Recorder = NopRecorder()
	}
	if opts.Rand == nil {
		opts.Rand = rand.IntN
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	u := &VerificationUsecase{
		members:     members,
		whitelist:   whitelist,
		verified:    verified,
		profiles:    profiles,
		actions:     actions,
		recorder:    opts.Recorder,
		clock:       opts.Clock,
		rand:        opts.Rand,
		noticeTTL:   opts.NoticeTTL,
		bg:          bg,
		logger:      opts.Logger.Named("verification"),
		verifiedSet: make(map[domain.MemberKey]struct{}),
		removed:     expirable.NewLRU[domain.MemberKey, struct{}](removedMemorySize, nil, removedMemoryTTL),
	}
	u.pending = NewPendingStore(u.armTimeout)
	return u
}

// IsGated reports whether the member must pass the challenge before posting
func (u *VerificationUsecase) IsGated(ctx context.Context, chatID, userID string) bool {
	if u.isVerified(ctx, domain.MemberKey{ChatID: chatID, UserID: userID}) {
		return false
	}
	return !u.whitelist.IsWhitelisted(ctx, userID)
}

// OnJoin challenges a member that joined the chat. It returns false when
// the member is exempt or already challenged.
func (u *VerificationUsecase) OnJoin(ctx context.Context, chatID, userID, username string) bool {
	key := domain.MemberKey{ChatID: chatID, UserID: userID}
	// a rejoin starts over
	u.removed.Remove(key)
	if u.isVerified(ctx, key) || u.whitelist.IsWhitelisted(ctx, userID) {
		return false
	}

	now := u.clock.Now()
	u.members.Observe(ctx, key, now)
	return u.issue(key, username, now)
}

// OnMessageWhileChallenged checks a message from a gated member as an
// answer. The message is always deleted. A gated member without a
// challenge gets one.
func (u *VerificationUsecase) OnMessageWhileChallenged(ctx context.Context, chatID, userID, username, messageID, answer string) AnswerOutcome {
	key := domain.MemberKey{ChatID: chatID, UserID: userID}
	if messageID != "" {
		u.actions.DeleteMessage(chatID, messageID)
	}

	policy := u.profiles.Current().Verification
	now := u.clock.Now()

	outcome := AnswerNoChallenge
	var stalePrompt string
	pv, _, ok := u.pending.Resolve(key, func(pv *domain.PendingVerification) Disposition {
		pv.Attempts++
		if answerMatches(answer, pv.Challenge.Answer) {
			outcome = AnswerCorrect
			// visible to IsGated before the entry disappears
			u.setVerified(key)
			return Remove
		}
		if pv.Attempts < maxAttempts(policy) {
			outcome = AnswerRetry
			stalePrompt = pv.PromptMessageID
			pv.PromptMessageID = ""
			pv.Challenge = u.pickChallenge(policy, pv.Challenge.Question)
			pv.IssuedAt = now
			return Reissue
		}
		outcome = AnswerRejected
		// visible before the entry disappears, like setVerified above
		u.removed.Add(key, struct{}{})
		return Remove
	})

	if !ok {
		if u.isVerified(ctx, key) {
			return AnswerNoChallenge
		}
		if u.removed.Contains(key) {
			// the kick has not landed yet
			return AnswerRemoved
		}
		// gated but never challenged, e.g. joined before the bot was running
		u.members.Observe(ctx, key, now)
		u.issue(key, username, now)
		return AnswerNoChallenge
	}

	log := u.logger.With(zap.String("chat_id", chatID), zap.String("user_id", userID), zap.Int("attempts", pv.Attempts))
	switch outcome {
	case AnswerCorrect:
		log.Info("member verified")
		u.persistVerified(key, pv.Username, now)
		u.deletePrompt(pv)
		u.actions.SendMessage(chatID,
			fmt.Sprintf("✅ %s verified. Welcome!", domain.DisplayName(userID, pv.Username)), u.noticeTTL, nil)
		u.record(pv, domain.OutcomeVerified, now)
	case AnswerRetry:
		log.Info("wrong answer, challenge reissued")
		if stalePrompt != "" {
			u.actions.DeleteMessage(chatID, stalePrompt)
		}
		remaining := maxAttempts(policy) - pv.Attempts
		u.sendPrompt(pv, fmt.Sprintf("❌ Wrong answer, %d attempt(s) left.\n%s", remaining, u.promptText(pv, policy)))
	case AnswerRejected:
		log.Info("member failed verification")
		u.remove(pv, fmt.Sprintf("failed verification after %d attempts", pv.Attempts), domain.OutcomeFailed, now)
	}
	return outcome
}

// OnTimeout expires the outstanding challenge of a member. It is a no-op
// when the challenge was already resolved.
func (u *VerificationUsecase) OnTimeout(chatID, userID string) bool {
	pv, ok := u.takeExpired(domain.MemberKey{ChatID: chatID, UserID: userID}, 0)
	if !ok {
		return false
	}
	u.expire(pv)
	return true
}

// Pending returns the outstanding challenge of a member
func (u *VerificationUsecase) Pending(chatID, userID string) (domain.PendingVerification, bool) {
	return u.pending.Get(domain.MemberKey{ChatID: chatID, UserID: userID})
}

// PendingCount returns the number of outstanding challenges
func (u *VerificationUsecase) PendingCount() int {
	return u.pending.Len()
}

// Shutdown stops every timer and forgets outstanding challenges
func (u *VerificationUsecase) Shutdown() {
	dropped := u.pending.Drain()
	if len(dropped) > 0 {
		u.logger.Info("dropped outstanding challenges", zap.Int("count", len(dropped)))
	}
}

func (u *VerificationUsecase) issue(key domain.MemberKey, username string, now time.Time) bool {
	policy := u.profiles.Current().Verification
	pv, ok := u.pending.Issue(domain.PendingVerification{
		ChatID:    key.ChatID,
		UserID:    key.UserID,
		Username:  username,
		Challenge: u.pickChallenge(policy, ""),
		IssuedAt:  now,
	})
	if !ok {
		return false
	}
	u.logger.Info("challenge issued", zap.String("chat_id", key.ChatID), zap.String("user_id", key.UserID))
	u.sendPrompt(pv, fmt.Sprintf("👋 Welcome %s!\n%s", domain.DisplayName(pv.UserID, pv.Username), u.promptText(pv, policy)))
	return true
}

func (u *VerificationUsecase) promptText(pv domain.PendingVerification, policy domain.VerificationPolicy) string {
	return fmt.Sprintf("Please answer within %s to stay in this chat:\n\n%s", domain.FormatWindow(policy.Timeout), pv.Challenge.Question)
}

// sendPrompt posts the challenge and attaches the prompt to its instance.
// A prompt that arrives after its challenge was resolved is deleted.
func (u *VerificationUsecase) sendPrompt(pv domain.PendingVerification, text string) {
	key, instance := pv.Key(), pv.Instance
	u.actions.SendMessage(pv.ChatID, text, 0, func(messageID string) {
		if !u.pending.SetPrompt(key, instance, messageID) {
			u.actions.DeleteMessage(key.ChatID, messageID)
		}
	})
}

func (u *VerificationUsecase) deletePrompt(pv domain.PendingVerification) {
	if pv.PromptMessageID != "" {
		u.actions.DeleteMessage(pv.ChatID, pv.PromptMessageID)
	}
}

func (u *VerificationUsecase) armTimeout(key domain.MemberKey, instance uint64) Timer {
	timeout := u.profiles.Current().Verification.Timeout
	return u.clock.AfterFunc(timeout, func() {
		pv, ok := u.takeExpired(key, instance)
		if !ok {
			return
		}
		u.expire(pv)
	})
}

// takeExpired removes the challenge of key, only while instance is current
// unless instance is zero, and marks the member removed under the same lock
func (u *VerificationUsecase) takeExpired(key domain.MemberKey, instance uint64) (domain.PendingVerification, bool) {
	pv, d, ok := u.pending.Resolve(key, func(pv *domain.PendingVerification) Disposition {
		if instance != 0 && pv.Instance != instance {
			return Keep
		}
		u.removed.Add(key, struct{}{})
		return Remove
	})
	return pv, ok && d == Remove
}

func (u *VerificationUsecase) expire(pv domain.PendingVerification) {
	u.logger.Info("verification timed out", zap.String("chat_id", pv.ChatID), zap.String("user_id", pv.UserID))
	u.remove(pv, "verification timed out", domain.OutcomeTimeout, u.clock.Now())
}

func (u *VerificationUsecase) remove(pv domain.PendingVerification, reason string, outcome domain.VerificationOutcome, now time.Time) {
	u.deletePrompt(pv)
	u.actions.RemoveMember(pv.ChatID, pv.UserID, reason)
	u.actions.SendMessage(pv.ChatID,
		fmt.Sprintf("🚫 %s was removed: %s.", domain.DisplayName(pv.UserID, pv.Username), reason), u.noticeTTL, nil)
	u.record(pv, outcome, now)
}

func (u *VerificationUsecase) record(pv domain.PendingVerification, outcome domain.VerificationOutcome, now time.Time) {
	u.recorder.Verification(domain.VerificationEvent{
		ChatID:    pv.ChatID,
		UserID:    pv.UserID,
		Username:  pv.Username,
		Outcome:   outcome,
		Attempts:  pv.Attempts,
		CreatedAt: now,
	})
}

func (u *VerificationUsecase) isVerified(ctx context.Context, key domain.MemberKey) bool {
	u.verifiedMu.RLock()
	_, ok := u.verifiedSet[key]
	u.verifiedMu.RUnlock()
	if ok {
		return true
	}

	ok, err := u.verified.IsVerified(ctx, key.ChatID, key.UserID)
	if err != nil {
		u.logger.Warn("verified lookup failed, treating member as unverified",
			zap.String("chat_id", key.ChatID), zap.String("user_id", key.UserID), zap.Error(err))
		return false
	}
	if ok {
		u.setVerified(key)
	}
	return ok
}

func (u *VerificationUsecase) setVerified(key domain.MemberKey) {
	u.verifiedMu.Lock()
	u.verifiedSet[key] = struct{}{}
	u.verifiedMu.Unlock()
}

func (u *VerificationUsecase) persistVerified(key domain.MemberKey, username string, now time.Time) {
	rec := &domain.VerifiedRecord{ChatID: key.ChatID, UserID: key.UserID, Username: username, VerifiedAt: now}
	u.bg.Go("verified.mark", func(ctx context.Context) error {
		return u.verified.MarkVerified(ctx, rec)
	})
}

// pickChallenge draws a random challenge, avoiding exclude when the pool
// has an alternative
func (u *VerificationUsecase) pickChallenge(policy domain.VerificationPolicy, exclude string) domain.Challenge {
	pool := policy.Challenges
	if len(pool) == 0 {
		return fallbackChallenge
	}
	i := u.rand(len(pool))
	if len(pool) > 1 && pool[i].Question == exclude {
		i = (i + 1) % len(pool)
	}
	return pool[i]
}

func maxAttempts(policy domain.VerificationPolicy) int {
	if policy.MaxAttempts <= 0 {
		return 1
	}
	return policy.MaxAttempts
}

func answerMatches(candidate, expected string) bool {
	return strings.EqualFold(strings.TrimSpace(candidate), strings.TrimSpace(expected))
}
