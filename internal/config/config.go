// Package config handles application configuration from environment variables
package config

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Challenge settings
	Domain  string // expected host in signed messages, e.g. "dashboard.example.com"
	URI     string // origin URI embedded in challenges
	ChainID uint64

	// Session settings
	SessionKeyHex string // hex DER-encoded P-256 private key; generated if empty
	ChallengeTTL  time.Duration
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	// Backends
	RedisURL   string // optional; memory adapters when empty
	AnomalyURL string // scoring backend base URL
}

const (
	DefaultPort         = "9000"
	DefaultEnv          = "development"
	DefaultLogLevel     = "info"
	DefaultChainID      = 1
	DefaultChallengeTTL = 5 * time.Minute
	DefaultAccessTTL    = 5 * time.Minute
	DefaultRefreshTTL   = 120 * time.Hour
	DefaultAnomalyURL   = "http://localhost:8000"
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", DefaultPort),
		Env:           getEnv("ENV", DefaultEnv),
		LogLevel:      getEnv("LOG_LEVEL", DefaultLogLevel),
		Domain:        os.Getenv("AUTH_DOMAIN"), // Required, no default
		URI:           os.Getenv("AUTH_URI"),
		ChainID:       getEnvUint64("CHAIN_ID", DefaultChainID),
		SessionKeyHex: os.Getenv("SESSION_KEY"),
		ChallengeTTL:  getEnvDuration("CHALLENGE_TTL", DefaultChallengeTTL),
		AccessTTL:     getEnvDuration("ACCESS_TTL", DefaultAccessTTL),
		RefreshTTL:    getEnvDuration("REFRESH_TTL", DefaultRefreshTTL),
		RedisURL:      os.Getenv("REDIS_URL"),
		AnomalyURL:    getEnv("ANOMALY_API_URL", DefaultAnomalyURL),
	}

	if cfg.URI == "" {
		cfg.URI = "https://" + cfg.Domain
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.Domain == "" {
		return fmt.Errorf("AUTH_DOMAIN is required")
	}
	if c.ChallengeTTL <= 0 || c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	return nil
}

// SessionKey returns the configured ES256 signing key, or generates an
// ephemeral one when SESSION_KEY is unset (sessions then do not survive a
// restart).
func (c *Config) SessionKey() (*ecdsa.PrivateKey, error) {
	if c.SessionKeyHex == "" {
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}

	der, err := hex.DecodeString(c.SessionKeyHex)
	if err != nil {
		return nil, fmt.Errorf("SESSION_KEY must be hex-encoded DER: %w", err)
	}
	key, err := x509.ParseECPrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("SESSION_KEY is not a valid EC private key: %w", err)
	}
	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("SESSION_KEY must be a P-256 key")
	}
	return key, nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvUint64(key string, fallback uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
