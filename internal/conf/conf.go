package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Supported platforms
const (
	PlatformTelegram = "telegram"
	PlatformFeishu   = "feishu"
)

// Config represents application configuration
type Config struct {
	// Platform selects the messaging adapter: telegram or feishu
	Platform string

	Telegram TelegramConfig
	Feishu   FeishuConfig

	// Admins may run mutating chat commands
	Admin AdminConfig

	Store StoreConfig
	HTTP  HTTPConfig

	// Classifier configuration (optional)
	Classifier ClassifierConfig

	Log LogConfig

	// NoticeTTL is how long bot notices stay in the chat
	NoticeTTL time.Duration

	// SignalsPath points at the YAML rule profile
	SignalsPath string
}

// TelegramConfig contains Telegram configuration
type TelegramConfig struct {
	Token       string
	PollTimeout int // long-poll timeout in seconds
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID     string
	AppSecret string
}

// AdminConfig contains the operator allow-list
type AdminConfig struct {
	UserIDs []string
}

// IsAdmin reports whether userID may run admin commands
func (c AdminConfig) IsAdmin(userID string) bool {
	for _, id := range c.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// StoreConfig contains persistence configuration
type StoreConfig struct {
	DBPath       string
	RedisURL     string // empty keeps counters in memory
	LogRetention time.Duration
}

// HTTPConfig contains the health/admin HTTP server configuration
type HTTPConfig struct {
	Host string
	Port int
}

// ClassifierConfig contains the external classifier configuration
type ClassifierConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Enabled reports whether the classifier is configured
func (c ClassifierConfig) Enabled() bool {
	return c.APIKey != ""
}

// LogConfig contains logger configuration
type LogConfig struct {
	Level  string
	Format string // json or console
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".chatguard", "chatguard.db")
	}

	platform := strings.ToLower(os.Getenv("PLATFORM"))
	if platform == "" {
		platform = PlatformTelegram
	}

	return &Config{
		Platform: platform,
		Telegram: TelegramConfig{
			Token:       os.Getenv("TELEGRAM_TOKEN"),
			PollTimeout: envInt("TELEGRAM_POLL_TIMEOUT", 30),
		},
		Feishu: FeishuConfig{
			AppID:     os.Getenv("FEISHU_APP_ID"),
			AppSecret: os.Getenv("FEISHU_APP_SECRET"),
		},
		Admin: AdminConfig{
			UserIDs: splitList(os.Getenv("ADMIN_USER_IDS")),
		},
		Store: StoreConfig{
			DBPath:       dbPath,
			RedisURL:     os.Getenv("REDIS_URL"),
			LogRetention: time.Duration(envInt("LOG_RETENTION_DAYS", 30)) * 24 * time.Hour,
		},
		HTTP: HTTPConfig{
			Host: envString("HTTP_HOST", "127.0.0.1"),
			Port: envInt("PORT", 8000),
		},
		Classifier: ClassifierConfig{
			APIKey:  os.Getenv("CLASSIFIER_API_KEY"),
			BaseURL: os.Getenv("CLASSIFIER_BASE_URL"),
			Model:   os.Getenv("CLASSIFIER_MODEL"),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "json"),
		},
		NoticeTTL:   time.Duration(envInt("NOTICE_TTL_SECONDS", 10)) * time.Second,
		SignalsPath: os.Getenv("SIGNALS_CONFIG_PATH"),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Platform {
	case PlatformTelegram:
		// an empty token runs the Telegram adapter in dry-run mode
	case PlatformFeishu:
		if c.Feishu.AppID == "" || c.Feishu.AppSecret == "" {
			return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required for the feishu platform"}
		}
	default:
		return &ConfigError{Field: "PLATFORM", Message: "must be telegram or feishu, got " + strconv.Quote(c.Platform)}
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return &ConfigError{Field: "PORT", Message: "must be between 1 and 65535"}
	}
	if c.NoticeTTL < 0 {
		return &ConfigError{Field: "NOTICE_TTL_SECONDS", Message: "must not be negative"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

func envString(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
