package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/devricklin/chatguard/internal/biz/domain"
	"github.com/devricklin/chatguard/internal/biz/usecase"
)

// CommandHandler serves the operator chat commands. Admin commands are
// consumed; everything a non-admin sends stays subject to moderation,
// although /start and /help are answered for anyone the caller lets through.
type CommandHandler struct {
	isAdmin   func(userID string) bool
	whitelist *usecase.WhitelistUsecase
	keywords  *usecase.KeywordUsecase
	profiles  *usecase.ProfileProvider
	stats     *StatsService
	actions   usecase.ActionSink
	logger    *zap.Logger
}

// NewCommandHandler creates a command handler
func NewCommandHandler(
	isAdmin func(userID string) bool,
	whitelist *usecase.WhitelistUsecase,
	keywords *usecase.KeywordUsecase,
	profiles *usecase.ProfileProvider,
	stats *StatsService,
	actions usecase.ActionSink,
	logger *zap.Logger,
) *CommandHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandHandler{
		isAdmin:   isAdmin,
		whitelist: whitelist,
		keywords:  keywords,
		profiles:  profiles,
		stats:     stats,
		actions:   actions,
		logger:    logger.Named("commands"),
	}
}

// IsAdmin reports whether userID may run admin commands
func (h *CommandHandler) IsAdmin(userID string) bool {
	return h.isAdmin != nil && h.isAdmin(userID)
}

// Handle runs ev as a command and reports whether it was consumed
func (h *CommandHandler) Handle(ctx context.Context, ev *domain.Event) bool {
	cmd, args, ok := parseCommand(ev.Text)
	if !ok {
		return false
	}
	admin := h.IsAdmin(ev.UserID)
	if cmd == "start" || cmd == "help" {
		h.actions.SendMessage(ev.ChatID, helpText(admin), 0, nil)
		return admin
	}
	if !admin {
		return false
	}

	var reply string
	switch cmd {
	case "stats":
		reply = h.statsText(ctx, ev.ChatID)
	case "config":
		reply = h.configText()
	case "whitelist":
		reply = h.whitelistCmd(ctx, ev, args)
	case "learn":
		reply = h.learn(ctx, ev, args)
	case "unlearn":
		reply = h.unlearn(ctx, args)
	case "keywords":
		reply = h.keywordsText()
	case "reload":
		reply = h.reload(ctx)
	default:
		return false
	}

	h.logger.Info("admin command", zap.String("command", cmd), zap.String("user_id", ev.UserID))
	h.actions.SendMessage(ev.ChatID, reply, 0, nil)
	return true
}

// parseCommand splits "/cmd@bot a b" into "cmd" and its arguments
func parseCommand(text string) (string, []string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	cmd := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	if cmd == "" {
		return "", nil, false
	}
	return cmd, fields[1:], true
}

func helpText(admin bool) string {
	var sb strings.Builder
	sb.WriteString("🛡 chatguard keeps this chat free of spam.\n\n")
	sb.WriteString("New members answer a short question before they can post, and cannot post bare media during their first days.\n")
	if admin {
		sb.WriteString("\nAdmin commands:\n")
		sb.WriteString("/stats - today's moderation counters\n")
		sb.WriteString("/config - active thresholds\n")
		sb.WriteString("/whitelist list|add <id> [name]|remove <id> (or reply to a message)\n")
		sb.WriteString("/learn <keyword> [#category] - reply to a spam message to keep it as the source\n")
		sb.WriteString("/unlearn <keyword>\n")
		sb.WriteString("/keywords - learned keywords\n")
		sb.WriteString("/reload - reload the signals profile and learned keywords\n")
	}
	return sb.String()
}

func (h *CommandHandler) statsText(ctx context.Context, chatID string) string {
	if h.stats == nil {
		return "Statistics are not available."
	}
	chat, err := h.stats.Today(ctx, chatID)
	if err != nil {
		h.logger.Warn("failed to read stats", zap.Error(err))
		return "❌ Statistics are unavailable right now."
	}
	return fmt.Sprintf("📊 Today (%s)\nMessages: %d\nSpam blocked: %d\nMedia blocked: %d\nVerified: %d\nRemoved by verification: %d\nSpam rate: %.2f%%",
		chat.Date, chat.MessagesTotal, chat.SpamBlocked, chat.MediaBlocks, chat.Verified, chat.CaptchaKicks, chat.SpamRate)
}

func (h *CommandHandler) configText() string {
	p := h.profiles.Current()
	th := p.Signals.Thresholds
	learned := 0
	if h.keywords != nil {
		learned = len(h.keywords.ActiveKeywords())
	}
	return fmt.Sprintf("⚙️ Configuration\nKeywords: %d static, %d learned\nSuspicious domains: %d\nKeyword threshold: %d (new member %d, with media %d)\nEmoji threshold: %d\nSpam cutoff: %d\nNew member window: %s\nVerification: %s, %d attempts, %d questions",
		len(p.Signals.Keywords), learned, len(p.Signals.SuspiciousDomains),
		th.KeywordDefault, th.KeywordNewMember, th.KeywordWithMedia, th.Emoji, th.SpamCutoff,
		domain.FormatWindow(p.Signals.NewMemberWindow),
		domain.FormatWindow(p.Verification.Timeout), p.Verification.MaxAttempts, len(p.Verification.Challenges))
}

func (h *CommandHandler) whitelistCmd(ctx context.Context, ev *domain.Event, args []string) string {
	action := "list"
	if len(args) > 0 {
		action = strings.ToLower(args[0])
		args = args[1:]
	}

	target, name := ev.ReplyToUserID, ev.ReplyToUsername
	if len(args) > 0 {
		target, name = args[0], ""
		if len(args) > 1 {
			name = args[1]
		}
	}

	switch action {
	case "list":
		entries, err := h.whitelist.List(ctx)
		if err != nil {
			return "❌ Could not read the whitelist."
		}
		if len(entries) == 0 {
			return "📝 The whitelist is empty."
		}
		var sb strings.Builder
		sb.WriteString("📝 Whitelist\n")
		for _, e := range entries {
			fmt.Fprintf(&sb, "• %s (%s), added %s\n", domain.DisplayName(e.UserID, e.Username), e.UserID, e.CreatedAt.Format("2006-01-02"))
		}
		return sb.String()
	case "add":
		if target == "" {
			return "Usage: /whitelist add <user id> [name], or reply to a message with /whitelist add"
		}
		if err := h.whitelist.Add(ctx, target, name, ev.UserID); err != nil {
			return "❌ Could not update the whitelist."
		}
		return fmt.Sprintf("✅ %s is now whitelisted.", domain.DisplayName(target, strings.TrimPrefix(name, "@")))
	case "remove":
		if target == "" {
			return "Usage: /whitelist remove <user id>, or reply to a message with /whitelist remove"
		}
		removed, err := h.whitelist.Remove(ctx, target)
		if err != nil {
			return "❌ Could not update the whitelist."
		}
		if !removed {
			return fmt.Sprintf("%s was not whitelisted.", target)
		}
		return fmt.Sprintf("✅ %s removed from the whitelist.", target)
	default:
		return "Usage: /whitelist list|add|remove"
	}
}

func (h *CommandHandler) learn(ctx context.Context, ev *domain.Event, args []string) string {
	category := "manual"
	if n := len(args); n > 0 && strings.HasPrefix(args[n-1], "#") && len(args[n-1]) > 1 {
		category = strings.TrimPrefix(args[n-1], "#")
		args = args[:n-1]
	}
	keyword := strings.Join(args, " ")
	if strings.TrimSpace(keyword) == "" {
		return "Usage: /learn <keyword> [#category]"
	}
	if !h.keywords.Add(ctx, keyword, category, ev.UserID, excerpt(ev.ReplyToText, 200)) {
		return fmt.Sprintf("\"%s\" is already learned.", domain.NormalizeKeyword(keyword))
	}
	return fmt.Sprintf("🧠 Learned \"%s\" (%s).", domain.NormalizeKeyword(keyword), category)
}

func (h *CommandHandler) unlearn(ctx context.Context, args []string) string {
	keyword := strings.Join(args, " ")
	if strings.TrimSpace(keyword) == "" {
		return "Usage: /unlearn <keyword>"
	}
	if !h.keywords.Deactivate(ctx, keyword) {
		return fmt.Sprintf("\"%s\" is not an active learned keyword.", domain.NormalizeKeyword(keyword))
	}
	return fmt.Sprintf("🗑 Forgot \"%s\".", domain.NormalizeKeyword(keyword))
}

func (h *CommandHandler) keywordsText() string {
	active := h.keywords.ActiveKeywords()
	if len(active) == 0 {
		return "No learned keywords."
	}
	return fmt.Sprintf("🧠 Learned keywords (%d):\n%s", len(active), strings.Join(active, ", "))
}

func (h *CommandHandler) reload(ctx context.Context) string {
	// learned keywords may have been changed by the CLI
	learned := "learned keywords unchanged"
	if err := h.keywords.Load(ctx); err != nil {
		h.logger.Warn("failed to reload learned keywords", zap.Error(err))
	} else {
		learned = fmt.Sprintf("%d learned keywords", len(h.keywords.ActiveKeywords()))
	}
	if err := h.profiles.Reload(); err != nil {
		return fmt.Sprintf("❌ Reload failed, the previous profile stays active: %v (%s)", err, learned)
	}
	p := h.profiles.Current()
	return fmt.Sprintf("🔄 Profile reloaded: %d keywords, %d domains, %s.", len(p.Signals.Keywords), len(p.Signals.SuspiciousDomains), learned)
}
