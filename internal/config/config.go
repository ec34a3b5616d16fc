package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName       = "Telefetch"
	defaultAppEnv        = "development"
	defaultPort          = "8080"
	defaultLogLevel      = "info"
	defaultShutdownDelay = 10 * time.Second
	defaultLoginTimeout  = 300 * time.Second
	defaultFreeTierLimit = 50 << 20 // 50 MiB
	defaultDownloadDir   = "/tmp/telefetch"

	loginTimeoutSecondsEnvVar = "LOGIN_TIMEOUT_SECONDS"
	loginTimeoutDurEnvVar     = "LOGIN_TIMEOUT"
	shutdownSecondsEnvVar     = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar    = "SHUTDOWN_TIMEOUT"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	BotToken       string
	APIID          int
	APIHash        string
	LogChannelID   int64
	AdminToken     string
	AdminUserIDs   []int64
	SessionSecret  []byte
	FreeTierLimit  int64
	DownloadDir    string
	LoginTimeout   time.Duration
	ShutdownPeriod time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		BotToken:       os.Getenv("BOT_TOKEN"),
		APIHash:        os.Getenv("API_HASH"),
		AdminToken:     os.Getenv("ADMIN_TOKEN"),
		DownloadDir:    getEnv("DOWNLOAD_DIR", defaultDownloadDir),
		FreeTierLimit:  defaultFreeTierLimit,
		LoginTimeout:   defaultLoginTimeout,
		ShutdownPeriod: defaultShutdownDelay,
	}

	if v := os.Getenv("API_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid API_ID: %w", err)
		}
		cfg.APIID = id
	}

	if v := os.Getenv("LOG_CHANNEL_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_CHANNEL_ID: %w", err)
		}
		cfg.LogChannelID = id
	}

	if v := os.Getenv("ADMIN_USER_IDS"); v != "" {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return Config{}, fmt.Errorf("invalid ADMIN_USER_IDS entry %q: %w", part, err)
			}
			cfg.AdminUserIDs = append(cfg.AdminUserIDs, id)
		}
	}

	if v := os.Getenv("FREE_TIER_LIMIT_BYTES"); v != "" {
		limit, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid FREE_TIER_LIMIT_BYTES: %w", err)
		}
		cfg.FreeTierLimit = limit
	}

	if v := os.Getenv(loginTimeoutSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", loginTimeoutSecondsEnvVar, err)
		}
		cfg.LoginTimeout = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(loginTimeoutDurEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", loginTimeoutDurEnvVar, err)
		}
		cfg.LoginTimeout = d
	}

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv("SESSION_SECRET"); v != "" {
		key, err := hex.DecodeString(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SESSION_SECRET: %w", err)
		}
		if len(key) != 32 {
			return Config{}, fmt.Errorf("SESSION_SECRET must decode to 32 bytes, got %d", len(key))
		}
		cfg.SessionSecret = key
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}

	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}

	if cfg.BotToken == "" {
		return Config{}, fmt.Errorf("BOT_TOKEN must be set")
	}

	if len(cfg.SessionSecret) == 0 {
		return Config{}, fmt.Errorf("SESSION_SECRET must be set")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsAdmin reports whether the given user id is configured as an administrator.
func (c Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
