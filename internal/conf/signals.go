package conf

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devricklin/chatguard/internal/biz/domain"
	"github.com/devricklin/chatguard/internal/biz/usecase"
)

// SignalsConfig is the YAML rule profile: scorer signals plus the join check
type SignalsConfig struct {
	Keywords          []string           `yaml:"keywords"`
	SuspiciousDomains []string           `yaml:"suspicious_domains"`
	Thresholds        ThresholdsConfig   `yaml:"thresholds"`
	Verification      VerificationConfig `yaml:"verification"`
}

// ThresholdsConfig holds scorer thresholds
type ThresholdsConfig struct {
	KeywordDefault         int `yaml:"keyword_default"`
	KeywordNewMember       int `yaml:"keyword_new_member"`
	KeywordWithMedia       int `yaml:"keyword_with_media"`
	Emoji                  int `yaml:"emoji"`
	SpamCutoff             int `yaml:"spam_cutoff"`
	NewMemberWindowSeconds int `yaml:"new_member_window_seconds"`
}

// VerificationConfig holds the join check settings
type VerificationConfig struct {
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	MaxAttempts    int               `yaml:"max_attempts"`
	Challenges     []ChallengeConfig `yaml:"challenges"`
}

// ChallengeConfig is one question/answer pair
type ChallengeConfig struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// DefaultSignals returns the built-in profile
func DefaultSignals() *SignalsConfig {
	return &SignalsConfig{
		Keywords: []string{
			"pump", "pumpfun", "airdrop", "claim", "bonus", "solana", "usdt",
			"giveaway", "presale", "whitelist spot", "free mint", "memecoin",
			"casino", "jackpot", "betting", "slots",
			"crypto", "bitcoin", "ethereum", "nft", "token", "wallet", "profit",
			"investment", "earn money", "passive income", "guaranteed",
			"dm me", "whatsapp", "limited offer", "act now",
		},
		SuspiciousDomains: []string{
			"clck.ru", "bit.ly", "tinyurl.com", "short.link", "cutt.ly",
			"clk.li", "is.gd", "goo.gl", "rebrand.ly", "shorturl.at",
			"free-crypto", "get-airdrop", "claim-tokens", "casino-promo",
		},
		Thresholds: ThresholdsConfig{
			KeywordDefault:         3,
			KeywordNewMember:       2,
			KeywordWithMedia:       2,
			Emoji:                  10,
			SpamCutoff:             50,
			NewMemberWindowSeconds: 3600,
		},
		Verification: VerificationConfig{
			TimeoutSeconds: 120,
			MaxAttempts:    3,
			Challenges: []ChallengeConfig{
				{Question: "What is 3 + 4?", Answer: "7"},
				{Question: "What is 10 - 6?", Answer: "4"},
				{Question: "Type the word 'human' to continue.", Answer: "human"},
				{Question: "What color is a clear daytime sky?", Answer: "blue"},
			},
		},
	}
}

// LoadSignals loads the rule profile. An explicit path must exist; without
// one the default locations are searched and the built-in profile is used
// when none is found.
func LoadSignals(path string) (*SignalsConfig, error) {
	candidates := []string{"./signals.yaml", "./config/signals.yaml"}
	if path != "" {
		candidates = []string{path}
	}

	var data []byte
	for _, p := range candidates {
		b, err := os.ReadFile(p)
		if err == nil {
			data = b
			break
		}
		if path != "" {
			return nil, fmt.Errorf("failed to read signals config %s: %w", p, err)
		}
	}
	if data == nil {
		return DefaultSignals(), nil
	}

	var cfg SignalsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse signals config: %w", err)
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *SignalsConfig) fillDefaults() {
	def := DefaultSignals()
	if c.Keywords == nil {
		c.Keywords = def.Keywords
	}
	if c.SuspiciousDomains == nil {
		c.SuspiciousDomains = def.SuspiciousDomains
	}
	th := &c.Thresholds
	if th.KeywordDefault == 0 {
		th.KeywordDefault = def.Thresholds.KeywordDefault
	}
	if th.KeywordNewMember == 0 {
		th.KeywordNewMember = def.Thresholds.KeywordNewMember
	}
	if th.KeywordWithMedia == 0 {
		th.KeywordWithMedia = def.Thresholds.KeywordWithMedia
	}
	if th.Emoji == 0 {
		th.Emoji = def.Thresholds.Emoji
	}
	if th.SpamCutoff == 0 {
		th.SpamCutoff = def.Thresholds.SpamCutoff
	}
	if th.NewMemberWindowSeconds == 0 {
		th.NewMemberWindowSeconds = def.Thresholds.NewMemberWindowSeconds
	}
	v := &c.Verification
	if v.TimeoutSeconds == 0 {
		v.TimeoutSeconds = def.Verification.TimeoutSeconds
	}
	if v.MaxAttempts == 0 {
		v.MaxAttempts = def.Verification.MaxAttempts
	}
	if len(v.Challenges) == 0 {
		v.Challenges = def.Verification.Challenges
	}
}

// Validate rejects profiles the engine cannot run with
func (c *SignalsConfig) Validate() error {
	th := c.Thresholds
	for field, v := range map[string]int{
		"thresholds.keyword_default":           th.KeywordDefault,
		"thresholds.keyword_new_member":        th.KeywordNewMember,
		"thresholds.keyword_with_media":        th.KeywordWithMedia,
		"thresholds.spam_cutoff":               th.SpamCutoff,
		"thresholds.new_member_window_seconds": th.NewMemberWindowSeconds,
		"verification.timeout_seconds":         c.Verification.TimeoutSeconds,
		"verification.max_attempts":            c.Verification.MaxAttempts,
	} {
		if v < 1 {
			return &ConfigError{Field: field, Message: "must be positive"}
		}
	}
	if th.Emoji < 0 {
		return &ConfigError{Field: "thresholds.emoji", Message: "must not be negative"}
	}
	for i, ch := range c.Verification.Challenges {
		if ch.Question == "" || ch.Answer == "" {
			return &ConfigError{Field: fmt.Sprintf("verification.challenges[%d]", i), Message: "question and answer are required"}
		}
	}
	return nil
}

// ToProfile converts the YAML profile into the engine's runtime profile
func (c *SignalsConfig) ToProfile() *usecase.Profile {
	th := c.Thresholds
	signals := domain.NewSignalSet(c.Keywords, c.SuspiciousDomains, domain.Thresholds{
		KeywordDefault:   th.KeywordDefault,
		KeywordNewMember: th.KeywordNewMember,
		KeywordWithMedia: th.KeywordWithMedia,
		Emoji:            th.Emoji,
		SpamCutoff:       th.SpamCutoff,
	}, time.Duration(th.NewMemberWindowSeconds)*time.Second)

	challenges := make([]domain.Challenge, len(c.Verification.Challenges))
	for i, ch := range c.Verification.Challenges {
		challenges[i] = domain.Challenge{Question: ch.Question, Answer: ch.Answer}
	}
	return &usecase.Profile{
		Signals: signals,
		Verification: domain.VerificationPolicy{
			Timeout:     time.Duration(c.Verification.TimeoutSeconds) * time.Second,
			MaxAttempts: c.Verification.MaxAttempts,
			Challenges:  challenges,
		},
	}
}

// ApplyEnvOverrides lets VERIFICATION_TIMEOUT_SECONDS and
// VERIFICATION_MAX_ATTEMPTS override the file values
func (c *SignalsConfig) ApplyEnvOverrides() {
	c.Verification.TimeoutSeconds = envInt("VERIFICATION_TIMEOUT_SECONDS", c.Verification.TimeoutSeconds)
	c.Verification.MaxAttempts = envInt("VERIFICATION_MAX_ATTEMPTS", c.Verification.MaxAttempts)
}

// ProfileLoader returns a loader for usecase.ProfileProvider that rereads
// path on every call
func ProfileLoader(path string) func() (*usecase.Profile, error) {
	return func() (*usecase.Profile, error) {
		cfg, err := LoadSignals(path)
		if err != nil {
			return nil, err
		}
		cfg.ApplyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg.ToProfile(), nil
	}
}
