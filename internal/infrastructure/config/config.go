// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml), with ${ENV_VAR} expansion
//  2. Environment variables (fallback)
//
// The loaded Config is constructed once at startup and passed explicitly
// into each collaborator constructor; nothing reads configuration
// ambiently after that.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Script   ScriptConfig   `yaml:"script"`
	EasySlip EasySlipConfig `yaml:"easyslip"`
	Telegram TelegramConfig `yaml:"telegram"`
	Payments PaymentsConfig `yaml:"payments"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// AuthConfig holds token-signing settings.
type AuthConfig struct {
	JWTSecret    string `yaml:"jwt_secret"`
	TokenTTLDays int    `yaml:"token_ttl_days"`
}

// ScriptConfig holds the spreadsheet scripting service settings.
type ScriptConfig struct {
	URL string `yaml:"url"`
}

// EasySlipConfig holds the slip verification provider settings.
type EasySlipConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// TelegramConfig holds default chat-bot credentials. Both values can also
// be managed at runtime through the settings store; these are fallbacks.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// PaymentsConfig holds slip reconciliation policy knobs.
type PaymentsConfig struct {
	// MaxSlipAgeHours is how old a slip may be before it is rejected.
	MaxSlipAgeHours int `yaml:"max_slip_age_hours"`
}

// StorageConfig selects the ledger backend.
//
// Backend "script" forwards all ledger reads/writes to the scripting
// service; "sqlite" keeps them in a local database instead.
type StorageConfig struct {
	Backend      string `yaml:"backend"`
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	BackendScript = "script"
	BackendSQLite = "sqlite"
)

// Load reads and parses the config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${EASYSLIP_API_KEY})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvInt("PORT", 3000),
			AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
		},
		Auth: AuthConfig{
			JWTSecret:    os.Getenv("JWT_SECRET"),
			TokenTTLDays: getEnvInt("TOKEN_TTL_DAYS", 7),
		},
		Script: ScriptConfig{
			URL: os.Getenv("GOOGLE_SCRIPT_URL"),
		},
		EasySlip: EasySlipConfig{
			BaseURL: getEnv("EASYSLIP_BASE_URL", "https://developer.easyslip.com"),
			APIKey:  os.Getenv("EASYSLIP_API_KEY"),
		},
		Telegram: TelegramConfig{
			BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
			ChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		},
		Payments: PaymentsConfig{
			MaxSlipAgeHours: getEnvInt("MAX_SLIP_AGE_HOURS", 24),
		},
		Storage: StorageConfig{
			Backend:      getEnv("STORAGE_BACKEND", BackendScript),
			DatabasePath: getEnv("STOCK_DB_PATH", "stockpanel.db"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables.
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from the specified path, falls back to
// environment variables.
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// Validate reports configuration that cannot possibly work.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	switch c.Storage.Backend {
	case BackendScript:
		if c.Script.URL == "" {
			return fmt.Errorf("script.url is required when storage.backend is %q", BackendScript)
		}
	case BackendSQLite:
		if c.Storage.DatabasePath == "" {
			return fmt.Errorf("storage.database_path is required when storage.backend is %q", BackendSQLite)
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Auth.TokenTTLDays == 0 {
		c.Auth.TokenTTLDays = 7
	}
	if c.EasySlip.BaseURL == "" {
		c.EasySlip.BaseURL = "https://developer.easyslip.com"
	}
	if c.Payments.MaxSlipAgeHours == 0 {
		c.Payments.MaxSlipAgeHours = 24
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendScript
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "stockpanel.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// getEnv retrieves an environment variable with a fallback default.
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default.
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
