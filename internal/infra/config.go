package infra

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds all application settings. Sensitive values can be overridden
// through environment variables after the file is loaded.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Addr      string `yaml:"addr"`
		JWTSecret string `yaml:"jwt_secret"`
		PprofAddr string `yaml:"pprof_addr"`
	} `yaml:"server"`

	Game struct {
		CatalogPath     string          `yaml:"catalog_path"` // empty = built-in catalog
		StartingBalance decimal.Decimal `yaml:"starting_balance"`
		MinimumPrice    decimal.Decimal `yaml:"minimum_price"`
	} `yaml:"game"`

	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultConfig returns a runnable configuration for local play.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Name = "carbon-market"
	cfg.Server.Addr = ":5000"
	cfg.Game.StartingBalance = decimal.NewFromInt(1000)
	cfg.Game.MinimumPrice = decimal.NewFromInt(5)
	cfg.Storage.DBPath = "data/carbon_market.db"
	cfg.Logging.Level = "info"
	return cfg
}

// LoadConfig reads and parses the configuration file. A missing file is not
// an error; defaults apply.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr is required")
	}
	if c.Server.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required (set CARBON_JWT_SECRET)")
	}
	if !c.Game.StartingBalance.IsPositive() {
		return fmt.Errorf("starting balance must be positive")
	}
	if !c.Game.MinimumPrice.IsPositive() {
		return fmt.Errorf("minimum price must be positive")
	}
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage db path is required")
	}
	return nil
}

// overrideWithEnv applies environment variable overrides.
func overrideWithEnv(cfg *Config) {
	if secret := os.Getenv("CARBON_JWT_SECRET"); secret != "" {
		cfg.Server.JWTSecret = secret
	}
	if addr := os.Getenv("CARBON_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if dbPath := os.Getenv("CARBON_DB_PATH"); dbPath != "" {
		cfg.Storage.DBPath = dbPath
	}
}
