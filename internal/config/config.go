package config

import (
	"encoding/base64"
	"fmt"

	"github.com/caarlos0/env/v9"
)

// envConfig is the raw process environment. The signing secret is
// base64 encoded so it can carry arbitrary bytes.
type envConfig struct {
	DatabaseURL    string   `env:"DATABASE_URL"`
	SigningSecret  string   `env:"SIGNING_SECRET"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

type Config struct {
	DatabaseDSN    string
	ServerAddr     string
	SigningKey     []byte
	AllowedOrigins []string
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}
	return base64.StdEncoding.DecodeString(base64Secret)
}

// FromEnv builds a Config from the process environment plus the listen
// port, which comes from the command line.
func FromEnv(port int) (*Config, error) {
	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	return NewConfig(fmt.Sprintf(":%d", port), ec.DatabaseURL, ec.SigningSecret, ec.AllowedOrigins)
}

func NewConfig(serverAddr, databaseDSN, base64Secret string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}

	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		DatabaseDSN:    databaseDSN,
		ServerAddr:     serverAddr,
		SigningKey:     signingKey,
		AllowedOrigins: allowedOrigins,
	}, nil
}
