package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Discord DiscordConfig
	Busy    BusyConfig
	Redis   RedisConfig
	Logging LoggingConfig
	Metrics MetricsConfig
	Plugins PluginsConfig
	Bot     BotConfig
}

type DiscordConfig struct {
	Token    string
	AppID    string
	GuildIDs []string
}

type BusyConfig struct {
	Backend string
	TTL     time.Duration
}

type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

type LoggingConfig struct {
	Level string
	File  string
}

type MetricsConfig struct {
	Addr string
}

type PluginsConfig struct {
	File string
}

type BotConfig struct {
	AdminUserID string
	Timezone    string
}

const (
	BusyBackendMemory = "memory"
	BusyBackendRedis  = "redis"
)

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Discord: DiscordConfig{
			Token:    getEnv("DISCORD_TOKEN", ""),
			AppID:    getEnv("DISCORD_APP_ID", ""),
			GuildIDs: parseCommaSeparated(getEnv("DISCORD_GUILD_IDS", "")),
		},
		Busy: BusyConfig{
			Backend: strings.ToLower(getEnv("BUSY_BACKEND", BusyBackendMemory)),
			TTL:     time.Duration(getEnvInt("BUSY_TTL_SECONDS", 900)) * time.Second,
		},
		Redis: RedisConfig{
			Host:      getEnv("REDIS_HOST", "localhost"),
			Port:      getEnvInt("REDIS_PORT", 6379),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "bot:busy:"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", "logs/bot.log"),
		},
		Metrics: MetricsConfig{
			Addr: getEnv("METRICS_ADDR", ""),
		},
		Plugins: PluginsConfig{
			File: getEnv("PLUGIN_CONFIG", "config/plugins.yaml"),
		},
		Bot: BotConfig{
			AdminUserID: getEnv("ADMIN_USER_ID", ""),
			Timezone:    getEnv("TIMEZONE", "UTC"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	if c.Discord.AppID == "" {
		return fmt.Errorf("DISCORD_APP_ID is required")
	}
	switch c.Busy.Backend {
	case BusyBackendMemory, BusyBackendRedis:
	default:
		return fmt.Errorf("BUSY_BACKEND must be %q or %q, got %q", BusyBackendMemory, BusyBackendRedis, c.Busy.Backend)
	}
	if c.Busy.TTL < 0 {
		return fmt.Errorf("BUSY_TTL_SECONDS must not be negative")
	}
	if _, err := time.LoadLocation(c.Bot.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE is invalid: %w", err)
	}
	return nil
}

// Location returns the configured time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Bot.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AdminMention renders the admin user as a mention, or "" when unset.
func (c *Config) AdminMention() string {
	if c.Bot.AdminUserID == "" {
		return ""
	}
	return "<@" + c.Bot.AdminUserID + ">"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func parseCommaSeparated(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
