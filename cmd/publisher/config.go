package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

// Config is read from PUBLISHER_* environment variables; flags override it
type Config struct {
	Port          int      `env:"PUBLISHER_PORT"           envDefault:"8080"`
	DataDir       string   `env:"PUBLISHER_DATA_DIR"       envDefault:"./data"`
	DBPath        string   `env:"PUBLISHER_DB_PATH"`
	StorePassword string   `env:"PUBLISHER_STORE_PASSWORD"`
	EthKeyPath    string   `env:"PUBLISHER_ETH_KEY"        envDefault:"./keys/ethereum.key"`
	RSAKeyPath    string   `env:"PUBLISHER_RSA_KEY"        envDefault:"./keys/rsa.pem"`
	Unsigned      bool     `env:"PUBLISHER_UNSIGNED"`
	PublisherID   string   `env:"PUBLISHER_ID"`
	LogLevel      string   `env:"PUBLISHER_LOG_LEVEL"      envDefault:"info"`
	EnableCORS    bool     `env:"PUBLISHER_CORS"           envDefault:"true"`
	RateLimit     int      `env:"PUBLISHER_RATE_LIMIT"     envDefault:"600"`
	APIKeys       []string `env:"PUBLISHER_API_KEYS"       envSeparator:","`
}

// loadConfig parses the environment
func loadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// databasePath returns the store path, defaulting to DataDir/publisher.db
func (c *Config) databasePath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataDir, "publisher.db")
}

// newLogger creates the process logger at the configured level
func (c *Config) newLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger, nil
}
