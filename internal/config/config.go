// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every variable name, e.g. RELAY_DATABASE_URL.
const EnvPrefix = "RELAY"

type Config struct {
	HTTPAddr  string `envconfig:"HTTP_ADDR" default:":8080"`
	APIPrefix string `envconfig:"API_PREFIX" default:"/api"`
	Env       string `envconfig:"ENV" default:"production"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL  string        `envconfig:"DATABASE_URL" required:"true"`
	StoreTimeout time.Duration `envconfig:"STORE_TIMEOUT" default:"5s"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	PubSubEnabled bool   `envconfig:"PUBSUB_ENABLED" default:"false"`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"720h"`

	OTPTTL            time.Duration `envconfig:"OTP_TTL" default:"5m"`
	OTPTestCode       string        `envconfig:"OTP_TEST_CODE"`
	GuestLoginEnabled bool          `envconfig:"GUEST_LOGIN_ENABLED" default:"false"`

	SMSAPIID   string        `envconfig:"SMS_API_ID"`
	SMSBaseURL string        `envconfig:"SMS_BASE_URL" default:"https://sms.ru"`
	SMSTimeout time.Duration `envconfig:"SMS_TIMEOUT" default:"10s"`

	UploadDir      string `envconfig:"UPLOAD_DIR" default:"uploads"`
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"20971520"`

	// CloseSuperseded force-closes an older socket when the same user connects again.
	CloseSuperseded bool `envconfig:"CLOSE_SUPERSEDED" default:"true"`

	AuthRatePerMinute int `envconfig:"AUTH_RATE_PER_MINUTE" default:"20"`
	AuthRateBurst     int `envconfig:"AUTH_RATE_BURST" default:"5"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded", "err", err)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// IsDevelopment reports whether internal error detail may be exposed to clients.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
