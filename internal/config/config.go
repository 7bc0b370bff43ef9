package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultModel            = "claude-sonnet-4-5-20250929"
	DefaultMaxTokens        = 1024
	DefaultHost             = "0.0.0.0"
	DefaultPort             = 18890
	DefaultBufSize          = 100
	DefaultPersona          = "mira"
	DefaultCrisisHotline    = "8-800-2000-122"
	DefaultFreeMemoryDepth  = 10
	DefaultPremiumDepth     = 30
	DefaultDailySweep       = "03:30"
	DefaultMemoryExpiryDays = 180
)

type Config struct {
	Persona   string          `json:"persona"` // "mira" or "mark"
	Provider  ProviderConfig  `json:"provider"`
	Channels  ChannelsConfig  `json:"channels"`
	Gateway   GatewayConfig   `json:"gateway"`
	Memory    MemoryConfig    `json:"memory"`
	Crisis    CrisisConfig    `json:"crisis"`
	Scheduler SchedulerConfig `json:"scheduler"`
}

type ProviderConfig struct {
	APIKey    string `json:"apiKey"`
	BaseURL   string `json:"baseUrl,omitempty"`
	Model     string `json:"model"`
	MaxTokens int    `json:"maxTokens"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	WebUI    WebUIConfig    `json:"webui"`
}

type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom"`
	Proxy     string   `json:"proxy,omitempty"`
}

type WebUIConfig struct {
	Enabled   bool     `json:"enabled"`
	AllowFrom []string `json:"allowFrom"`
}

type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type MemoryConfig struct {
	DBPath       string `json:"dbPath,omitempty"`
	FreeDepth    int    `json:"freeDepth"`    // recent-history depth for free users
	PremiumDepth int    `json:"premiumDepth"` // recent-history depth, plus long-term memory
	ExpiryDays   int    `json:"expiryDays"`   // expiry horizon for expiring entries
}

type CrisisConfig struct {
	Hotline string `json:"hotline"`
}

type SchedulerConfig struct {
	DailySweep string `json:"dailySweep"` // HH:MM for summarization flush + expiry sweep
}

func DefaultConfig() *Config {
	return &Config{
		Persona: DefaultPersona,
		Provider: ProviderConfig{
			Model:     DefaultModel,
			MaxTokens: DefaultMaxTokens,
		},
		Channels: ChannelsConfig{},
		Gateway: GatewayConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Memory: MemoryConfig{
			FreeDepth:    DefaultFreeMemoryDepth,
			PremiumDepth: DefaultPremiumDepth,
			ExpiryDays:   DefaultMemoryExpiryDays,
		},
		Crisis: CrisisConfig{
			Hotline: DefaultCrisisHotline,
		},
		Scheduler: SchedulerConfig{
			DailySweep: DefaultDailySweep,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".mira")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if key := os.Getenv("MIRA_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
	}
	if url := os.Getenv("MIRA_BASE_URL"); url != "" {
		cfg.Provider.BaseURL = url
	}
	if model := os.Getenv("MIRA_MODEL"); model != "" {
		cfg.Provider.Model = model
	}
	if token := os.Getenv("MIRA_TELEGRAM_TOKEN"); token != "" {
		cfg.Channels.Telegram.Token = token
	}
	if persona := os.Getenv("MIRA_PERSONA"); persona != "" {
		cfg.Persona = persona
	}
	if hotline := os.Getenv("MIRA_CRISIS_HOTLINE"); hotline != "" {
		cfg.Crisis.Hotline = hotline
	}
	if dbPath := os.Getenv("MIRA_DB_PATH"); dbPath != "" {
		cfg.Memory.DBPath = dbPath
	}
	if depth := os.Getenv("MIRA_PREMIUM_DEPTH"); depth != "" {
		if parsed, err := strconv.Atoi(depth); err == nil {
			cfg.Memory.PremiumDepth = parsed
		}
	}

	if cfg.Persona != "mira" && cfg.Persona != "mark" {
		cfg.Persona = DefaultPersona
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = DefaultModel
	}
	if cfg.Provider.MaxTokens <= 0 {
		cfg.Provider.MaxTokens = DefaultMaxTokens
	}
	if cfg.Memory.FreeDepth <= 0 {
		cfg.Memory.FreeDepth = DefaultFreeMemoryDepth
	}
	if cfg.Memory.PremiumDepth <= 0 {
		cfg.Memory.PremiumDepth = DefaultPremiumDepth
	}
	if cfg.Memory.ExpiryDays <= 0 {
		cfg.Memory.ExpiryDays = DefaultMemoryExpiryDays
	}
	if cfg.Crisis.Hotline == "" {
		cfg.Crisis.Hotline = DefaultCrisisHotline
	}
	if cfg.Scheduler.DailySweep == "" {
		cfg.Scheduler.DailySweep = DefaultDailySweep
	}

	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
