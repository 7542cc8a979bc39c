/*
Package configs is responsible for loading and parsing the application's configuration settings.

All settings come from environment variables, parsed with caarlos0/env and then validated.
Storage defaults to JSON files in DATA_DIR; DATABASE_URL switches it to PostgreSQL and
S3_BUCKET_NAME enables the off-box snapshot mirror.
*/
package configs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvDevelopment is the environment name that enables console logs and relaxed origin checks.
const EnvDevelopment = "development"

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Host        string `env:"HOST" envDefault:"0.0.0.0"`
	Port        int    `env:"PORT" envDefault:"8765"`
	LogFile     string `env:"LOG_FILE"`

	// Security Settings
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// TrustProxyHeaders takes the client IP from X-Forwarded-For / X-Real-IP. Only enable
	// it behind a reverse proxy that overwrites those headers.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	// Chat Settings
	ChatRateWindow time.Duration `env:"CHAT_RATE_WINDOW" envDefault:"3s"`

	// Supervisor Settings
	RestartDelay   time.Duration `env:"RESTART_DELAY" envDefault:"2s"`
	AddrInUseDelay time.Duration `env:"ADDR_IN_USE_DELAY" envDefault:"10s"`

	// Storage Settings
	DataDir     string `env:"DATA_DIR" envDefault:"."`
	DatabaseDSN string `env:"DATABASE_URL"`

	// S3 Mirror Settings
	S3BucketName      string `env:"S3_BUCKET_NAME"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3Prefix          string `env:"S3_PREFIX" envDefault:"erlobby/"`
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// Addr returns the listen address of the server.
func (c *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig reads, normalizes and validates the application configuration from environment variables.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	cfg.AllowedOrigins = origins

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and settings that only make sense together.
func (c *AppConfig) Validate() error {
	var problems []error

	if c.Port < 1024 || c.Port > 65535 {
		problems = append(problems, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", c.Port, 1024, 65535))
	}

	if c.ChatRateWindow <= 0 {
		problems = append(problems, fmt.Errorf("CHAT_RATE_WINDOW must be positive, got %s", c.ChatRateWindow))
	}
	if c.RestartDelay < 0 || c.AddrInUseDelay < 0 {
		problems = append(problems, errors.New("RESTART_DELAY and ADDR_IN_USE_DELAY must not be negative"))
	}

	if c.DatabaseDSN == "" && c.DataDir == "" {
		problems = append(problems, errors.New("DATA_DIR must not be empty when DATABASE_URL is unset"))
	}

	if c.S3BucketName != "" {
		if c.S3AccessKeyID == "" {
			problems = append(problems, errors.New("S3_ACCESS_KEY_ID environment variable is required when S3_BUCKET_NAME is set"))
		}
		if c.S3SecretAccessKey == "" {
			problems = append(problems, errors.New("S3_SECRET_ACCESS_KEY environment variable is required when S3_BUCKET_NAME is set"))
		}
	}

	return errors.Join(problems...)
}
