// Package config builds the process configuration once at startup from
// environment variables. The resulting value is passed by reference
// into the components that need it; nothing reads the environment after
// Load returns.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds runtime settings for the account service.
//
// Fields:
//   - Port / DatabasePath: HTTP bind port and SQLite file location.
//   - JWTSecret: HMAC secret for signing session tokens (HS256).
//   - SessionTTL / VerifyTokenTTL / ResetTokenTTL: lifetimes for the
//     session cookie, email-verification tokens, and password-reset
//     tokens. Email-change tokens share VerifyTokenTTL.
//   - PublicBaseURL: absolute URL prefix used in emailed links.
//   - SMTP*: outbound mail settings.
//   - AvatarBackend: "s3" for object storage, "db" for SQLite blobs.
type Config struct {
	Port         string
	DatabasePath string

	JWTSecret      string
	SessionTTL     time.Duration
	VerifyTokenTTL time.Duration
	ResetTokenTTL  time.Duration

	CookieSecure bool
	BcryptCost   int

	PublicBaseURL string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	AvatarBackend string
	S3Endpoint    string
	S3Region      string
	S3AccessKey   string
	S3SecretKey   string
	S3Bucket      string
	S3PublicURL   string
}

// Load reads and validates configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           envOrDefault("PORT", "8080"),
		DatabasePath:   envOrDefault("DATABASE_PATH", "lms-accounts.db"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		SessionTTL:     7 * 24 * time.Hour,
		VerifyTokenTTL: 10 * time.Minute,
		ResetTokenTTL:  15 * time.Minute,
		// Default to secure cookies; disable only for local development.
		CookieSecure:   os.Getenv("COOKIE_SECURE") != "false",
		BcryptCost:     12,
		PublicBaseURL:  envOrDefault("PUBLIC_BASE_URL", "http://localhost:8080"),
		SMTPHost:       os.Getenv("SMTP_HOST"),
		SMTPPort:       587,
		SMTPUsername:   os.Getenv("SMTP_USERNAME"),
		SMTPPassword:   os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:       os.Getenv("SMTP_FROM_EMAIL"),
		AvatarBackend:  envOrDefault("AVATAR_BACKEND", "db"),
		S3Endpoint:     os.Getenv("S3_ENDPOINT"),
		S3Region:       envOrDefault("S3_REGION", "us-east-1"),
		S3AccessKey:    os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:    os.Getenv("S3_SECRET_KEY"),
		S3Bucket:       envOrDefault("S3_BUCKET", "avatars"),
		S3PublicURL:    os.Getenv("S3_PUBLIC_URL"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security")
	}

	if v := os.Getenv("BCRYPT_COST"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
		}
		if parsed < 4 || parsed > 14 {
			return nil, fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", parsed)
		}
		cfg.BcryptCost = parsed
	}

	if v := os.Getenv("SMTP_PORT"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
		}
		cfg.SMTPPort = parsed
	}

	for _, d := range []struct {
		env string
		dst *time.Duration
	}{
		{"SESSION_TTL", &cfg.SessionTTL},
		{"VERIFY_TOKEN_TTL", &cfg.VerifyTokenTTL},
		{"RESET_TOKEN_TTL", &cfg.ResetTokenTTL},
	} {
		if v := os.Getenv(d.env); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", d.env, err)
			}
			*d.dst = parsed
		}
	}

	if cfg.AvatarBackend != "db" && cfg.AvatarBackend != "s3" {
		return nil, fmt.Errorf("AVATAR_BACKEND must be \"db\" or \"s3\", got %q", cfg.AvatarBackend)
	}

	return cfg, nil
}

func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
