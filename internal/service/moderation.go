package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/devricklin/chatguard/internal/biz/domain"
	"github.com/devricklin/chatguard/internal/biz/repo"
	"github.com/devricklin/chatguard/internal/biz/usecase"
)

// Decision is what the coordinator did with an event
type Decision string

const (
	DecisionIgnored      Decision = "ignored"
	DecisionCommand      Decision = "command"
	DecisionWhitelisted  Decision = "whitelisted"
	DecisionChallenge    Decision = "challenge"
	DecisionMediaBlocked Decision = "media_blocked"
	DecisionSpam         Decision = "spam"
	DecisionAllowed      Decision = "allowed"
)

// SourceRules and SourceClassifier tell which detector flagged a message
const (
	SourceRules      = "rules"
	SourceClassifier = "classifier"
)

// ModerationDeps wires the coordinator
type ModerationDeps struct {
	Verification *usecase.VerificationUsecase
	Members      *usecase.MemberUsecase
	Whitelist    *usecase.WhitelistUsecase
	Keywords     *usecase.KeywordUsecase
	Profiles     *usecase.ProfileProvider
	Actions      usecase.ActionSink
	Recorder     usecase.Recorder
	Classifier   repo.ClassifierRepo // optional
	Commands     *CommandHandler     // optional
	Background   *usecase.Background
	Clock        usecase.Clock
	NoticeTTL    time.Duration
	Logger       *zap.Logger
}

// ModerationService routes every inbound event through verification, the
// media gate and the spam scorer, and turns verdicts into actions
type ModerationService struct {
	ModerationDeps
	logger *zap.Logger
}

// NewModerationService creates the coordinator
func NewModerationService(deps ModerationDeps) *ModerationService {
	if deps.Recorder == nil {
		deps.Recorder = usecase.NopRecorder()
	}
	if deps.Clock == nil {
		deps.Clock = usecase.SystemClock()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &ModerationService{ModerationDeps: deps, logger: deps.Logger.Named("moderation")}
}

// HandleEvent processes one inbound event. It never blocks on platform
// calls or persistence.
func (s *ModerationService) HandleEvent(ctx context.Context, ev *domain.Event) Decision {
	start := time.Now()
	decision := s.handle(ctx, ev)
	eventProcessCount.WithLabelValues(string(ev.Type)).Inc()
	eventProcessDuration.WithLabelValues(string(ev.Type)).Observe(time.Since(start).Seconds())
	pendingVerifications.Set(float64(s.Verification.PendingCount()))
	return decision
}

func (s *ModerationService) handle(ctx context.Context, ev *domain.Event) Decision {
	if ev.IsBot || ev.ChatID == "" || ev.UserID == "" {
		return DecisionIgnored
	}

	switch ev.Type {
	case domain.EventMemberJoined:
		return s.handleJoin(ctx, ev)
	case domain.EventMessage:
		return s.handleMessage(ctx, ev)
	default:
		return DecisionIgnored
	}
}

func (s *ModerationService) handleJoin(ctx context.Context, ev *domain.Event) Decision {
	now := s.Clock.Now()
	s.Members.Observe(ctx, ev.Key(), now)
	if s.Verification.OnJoin(ctx, ev.ChatID, ev.UserID, ev.Username) {
		return DecisionChallenge
	}
	return DecisionAllowed
}

func (s *ModerationService) handleMessage(ctx context.Context, ev *domain.Event) Decision {
	now := s.Clock.Now()
	s.Recorder.Message(domain.MessageLog{
		ChatID:    ev.ChatID,
		UserID:    ev.UserID,
		Username:  ev.Username,
		MessageID: ev.MessageID,
		Text:      excerpt(ev.Text, 500),
		HasMedia:  ev.HasMedia,
		CreatedAt: now,
	})

	whitelisted := s.Whitelist.IsWhitelisted(ctx, ev.UserID)
	gated := !whitelisted && s.Verification.IsGated(ctx, ev.ChatID, ev.UserID)

	// a gated member's command is only another answer attempt
	if s.Commands != nil && (!gated || s.Commands.IsAdmin(ev.UserID)) && s.Commands.Handle(ctx, ev) {
		return DecisionCommand
	}

	if whitelisted {
		return DecisionWhitelisted
	}

	if gated {
		outcome := s.Verification.OnMessageWhileChallenged(ctx, ev.ChatID, ev.UserID, ev.Username, ev.MessageID, ev.Text)
		s.logger.Debug("message from gated member",
			zap.String("chat_id", ev.ChatID), zap.String("user_id", ev.UserID), zap.Stringer("outcome", outcome))
		return DecisionChallenge
	}

	signals := CurrentSignals(s.Profiles, s.Keywords)
	rec := s.Members.Get(ctx, ev.Key())

	if ev.HasMedia && strings.TrimSpace(ev.Text) == "" {
		if usecase.AllowsMedia(rec, now, signals) {
			return DecisionAllowed
		}
		s.blockMedia(ev, signals, now)
		return DecisionMediaBlocked
	}

	res := usecase.Evaluate(ev.Text, ev.HasMedia, usecase.IsNewMember(rec, now, signals), false, signals)
	if res.TotalScore > 0 {
		spamScore.Observe(float64(res.TotalScore))
	}
	if res.IsSpam {
		s.removeSpam(ev, res.TotalScore, res.Reasons, SourceRules, now)
		return DecisionSpam
	}

	if s.Classifier != nil && res.TotalScore > 0 {
		s.classify(ev, res)
	}
	return DecisionAllowed
}

func (s *ModerationService) blockMedia(ev *domain.Event, signals *domain.SignalSet, now time.Time) {
	s.Actions.DeleteMessage(ev.ChatID, ev.MessageID)
	s.Actions.SendMessage(ev.ChatID, fmt.Sprintf("⚠️ %s, new members cannot post photos or videos during their first %s.",
		domain.DisplayName(ev.UserID, ev.Username), domain.FormatWindow(signals.NewMemberWindow)), s.NoticeTTL, nil)
	s.Recorder.MediaBlock(domain.MediaBlock{
		ChatID:    ev.ChatID,
		UserID:    ev.UserID,
		Username:  ev.Username,
		MessageID: ev.MessageID,
		CreatedAt: now,
	})
}

func (s *ModerationService) removeSpam(ev *domain.Event, score int, reasons []string, source string, now time.Time) {
	s.Actions.DeleteMessage(ev.ChatID, ev.MessageID)
	s.Actions.SendMessage(ev.ChatID, fmt.Sprintf("🚫 Spam from %s was removed.", domain.DisplayName(ev.UserID, ev.Username)), s.NoticeTTL, nil)
	s.Recorder.Spam(domain.SpamReport{
		ChatID:    ev.ChatID,
		UserID:    ev.UserID,
		Username:  ev.Username,
		MessageID: ev.MessageID,
		Text:      excerpt(ev.Text, 200),
		Score:     score,
		Reasons:   reasons,
		Source:    source,
		CreatedAt: now,
	})
}

// classify asks the external classifier about a message that fired some
// signals without crossing the cutoff
func (s *ModerationService) classify(ev *domain.Event, res domain.ScoreResult) {
	evCopy := *ev
	s.Background.Go("classifier.check", func(ctx context.Context) error {
		spam, err := s.Classifier.IsSpam(ctx, evCopy.Text)
		if err != nil {
			classifierCount.WithLabelValues("error").Inc()
			return err
		}
		if !spam {
			classifierCount.WithLabelValues("ham").Inc()
			return nil
		}
		classifierCount.WithLabelValues("spam").Inc()
		reasons := append(append([]string(nil), res.Reasons...), SourceClassifier)
		s.removeSpam(&evCopy, res.TotalScore, reasons, SourceClassifier, s.Clock.Now())
		return nil
	})
}

// CurrentSignals returns the active profile's signals with the learned
// keywords merged in; keywords may be nil
func CurrentSignals(profiles *usecase.ProfileProvider, keywords *usecase.KeywordUsecase) *domain.SignalSet {
	signals := profiles.Current().Signals
	if keywords != nil {
		signals = signals.WithLearned(keywords.ActiveKeywords())
	}
	return signals
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
