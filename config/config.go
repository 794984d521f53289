package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Daraja   DarajaConfig
	Poll     PollConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
	Issuer       string
}

// DarajaConfig holds the M-Pesa Daraja credentials. ConsumerKey, ConsumerSecret
// and Passkey have no defaults: with any of them empty the integration counts
// as not configured and checkout is refused.
type DarajaConfig struct {
	Env             string // sandbox | production
	ConsumerKey     string
	ConsumerSecret  string
	ShortCode       string
	Passkey         string
	CallbackBaseURL string // callback URL will be CallbackBaseURL + /api/v1/webhooks/mpesa
}

// PollConfig bounds the server-assisted wait on the status endpoint.
type PollConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         envOr("PORT", "8080"),
			Env:          envOr("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 150 * time.Second, // must outlive the 2m status wait
		},
		Database: DatabaseConfig{
			DSN:             envOr("DATABASE_DSN", "beathaus:beathaus@tcp(localhost:3306)/beathaus?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret: envOr("JWT_ACCESS_SECRET", "change-me-in-production"),
			AccessExpiry: 15 * time.Minute,
			Issuer:       "beathaus",
		},
		Daraja: DarajaConfig{
			Env:            envOr("MPESA_ENV", "sandbox"),
			ConsumerKey:    os.Getenv("MPESA_CONSUMER_KEY"),
			ConsumerSecret: os.Getenv("MPESA_CONSUMER_SECRET"),
			// 174379 is Safaricom's documented sandbox short-code.
			ShortCode:       envOr("MPESA_SHORTCODE", "174379"),
			Passkey:         os.Getenv("MPESA_PASSKEY"),
			CallbackBaseURL: os.Getenv("MPESA_CALLBACK_BASE_URL"),
		},
		Poll: PollConfig{
			Interval: envDurationSec("PAYMENT_POLL_INTERVAL_SEC", 3),
			Timeout:  envDurationSec("PAYMENT_POLL_TIMEOUT_SEC", 120),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationSec(key string, fallback int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(fallback) * time.Second
}
