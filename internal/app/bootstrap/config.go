package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration. It merges file defaults and
// environment overrides so local and deployed runs share one code path.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string
	AMQPURL     string

	TokenIssuer     string
	TokenSecret     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	GoogleClientID  string
	GoogleIssuers   []string
	GoogleJWKSURL   string
	KeysetTTL       time.Duration

	SignInRateLimitIPThreshold    int
	SignInRateLimitEmailThreshold int
	SignInRateLimitWindow         time.Duration

	MaxDBConns         int32
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxRetries   int
}

// configFile mirrors the YAML schema used by configs/default.yaml.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
		AMQPURL     string `yaml:"amqp_url"`
	} `yaml:"dependencies"`
	Auth struct {
		Issuer              string `yaml:"issuer"`
		AccessTTLSeconds    int    `yaml:"access_ttl_seconds"`
		RefreshTTLSeconds   int    `yaml:"refresh_ttl_seconds"`
		GoogleClientID      string `yaml:"google_client_id"`
		GoogleJWKSURL       string `yaml:"google_jwks_url"`
		KeysetTTLMinutes    int    `yaml:"keyset_ttl_minutes"`
		GoogleIssuersCommas string `yaml:"google_issuers"`
	} `yaml:"auth"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// The signing secret intentionally has no default; a missing secret must stop
// the process.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:                     "stockwise-backend-core",
		HTTPPort:                      8080,
		GRPCPort:                      9090,
		TokenIssuer:                   "stockwise-backend-core",
		AccessTokenTTL:                15 * time.Minute,
		RefreshTokenTTL:               14 * 24 * time.Hour,
		GoogleIssuers:                 []string{"https://accounts.google.com", "accounts.google.com"},
		KeysetTTL:                     6 * time.Hour,
		SignInRateLimitIPThreshold:    20,
		SignInRateLimitEmailThreshold: 6,
		SignInRateLimitWindow:         time.Minute,
		MaxDBConns:                    20,
		OutboxPollInterval:            2 * time.Second,
		OutboxBatchSize:               100,
		OutboxMaxRetries:              5,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.Dependencies.AMQPURL != "" {
			cfg.AMQPURL = f.Dependencies.AMQPURL
		}
		if f.Auth.Issuer != "" {
			cfg.TokenIssuer = f.Auth.Issuer
		}
		if f.Auth.AccessTTLSeconds > 0 {
			cfg.AccessTokenTTL = time.Duration(f.Auth.AccessTTLSeconds) * time.Second
		}
		if f.Auth.RefreshTTLSeconds > 0 {
			cfg.RefreshTokenTTL = time.Duration(f.Auth.RefreshTTLSeconds) * time.Second
		}
		if f.Auth.GoogleClientID != "" {
			cfg.GoogleClientID = f.Auth.GoogleClientID
		}
		if f.Auth.GoogleJWKSURL != "" {
			cfg.GoogleJWKSURL = f.Auth.GoogleJWKSURL
		}
		if f.Auth.KeysetTTLMinutes > 0 {
			cfg.KeysetTTL = time.Duration(f.Auth.KeysetTTLMinutes) * time.Minute
		}
		if f.Auth.GoogleIssuersCommas != "" {
			cfg.GoogleIssuers = splitCSV(f.Auth.GoogleIssuersCommas)
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.AMQPURL = envOrDefault("AMQP_URL", envOrDefault("RABBITMQ_URL", cfg.AMQPURL))
	cfg.TokenIssuer = envOrDefault("TOKEN_ISSUER", cfg.TokenIssuer)
	cfg.TokenSecret = envOrDefault("TOKEN_SECRET", cfg.TokenSecret)
	cfg.GoogleClientID = envOrDefault("GOOGLE_CLIENT_ID", cfg.GoogleClientID)
	cfg.GoogleJWKSURL = envOrDefault("GOOGLE_JWKS_URL", cfg.GoogleJWKSURL)
	cfg.GoogleIssuers = envCSV("GOOGLE_ISSUERS", cfg.GoogleIssuers)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))

	cfg.AccessTokenTTL = time.Duration(envInt("ACCESS_TOKEN_TTL_SECONDS", int(cfg.AccessTokenTTL.Seconds()))) * time.Second
	cfg.RefreshTokenTTL = time.Duration(envInt("REFRESH_TOKEN_TTL_SECONDS", int(cfg.RefreshTokenTTL.Seconds()))) * time.Second
	cfg.KeysetTTL = time.Duration(envInt("KEYSET_TTL_MINUTES", int(cfg.KeysetTTL.Minutes()))) * time.Minute
	cfg.SignInRateLimitIPThreshold = envInt("SIGNIN_RATE_LIMIT_IP_THRESHOLD", cfg.SignInRateLimitIPThreshold)
	cfg.SignInRateLimitEmailThreshold = envInt("SIGNIN_RATE_LIMIT_EMAIL_THRESHOLD", cfg.SignInRateLimitEmailThreshold)
	cfg.SignInRateLimitWindow = time.Duration(envInt("SIGNIN_RATE_LIMIT_WINDOW_SECONDS", int(cfg.SignInRateLimitWindow.Seconds()))) * time.Second
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.TokenSecret == "" {
		return Config{}, fmt.Errorf("missing TOKEN_SECRET")
	}
	if cfg.GoogleClientID == "" {
		return Config{}, fmt.Errorf("missing GOOGLE_CLIENT_ID")
	}

	return cfg, nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := splitCSV(raw)
	if len(parts) == 0 {
		return fallback
	}
	return parts
}

func splitCSV(raw string) []string {
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	return parts
}
