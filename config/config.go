// Package config loads the converter's settings from an optional YAML file, a .env file and
// the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"github.com/go-kit/log/level"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go-exchange-rate-converter/domain"
	"go-exchange-rate-converter/input"
	"io/fs"
	"strings"
	"time"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR" env-default:":8080"`
	LogLevel   string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	Rates struct {
		URL     string        `yaml:"url" env:"RATES_URL" env-default:"https://api.exchangeratesapi.io"`
		Timeout time.Duration `yaml:"timeout" env:"RATES_TIMEOUT" env-default:"5s"`

		// CacheTTL how long one-off conversions reuse a table
		CacheTTL time.Duration `yaml:"cache_ttl" env:"CACHE_TTL" env-default:"1m"`
	} `yaml:"rates"`

	Board struct {
		RefreshInterval time.Duration `yaml:"refresh_interval" env:"REFRESH_INTERVAL" env-default:"2s"`
		DefaultBase     string        `yaml:"default_base" env:"DEFAULT_BASE" env-default:"GBP"`
		InitialAmount   string        `yaml:"initial_amount" env:"INITIAL_AMOUNT" env-default:"100"`
	} `yaml:"board"`
}

// Load reads settings. envFiles default to .env; missing env files are skipped. path names an
// optional YAML file, empty for environment only.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %v: %w", f, err)
		}
	}

	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := c.Base(); err != nil {
		return fmt.Errorf("%w: default base: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Amount(); err != nil {
		return fmt.Errorf("%w: initial amount: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Rates.URL == "" {
		return fmt.Errorf("%w: rates url is empty", ErrInvalidConfig)
	}
	for name, d := range map[string]time.Duration{
		"rates timeout":    c.Rates.Timeout,
		"cache ttl":        c.Rates.CacheTTL,
		"refresh interval": c.Board.RefreshInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %v must be positive, got %v", ErrInvalidConfig, name, d)
		}
	}
	return nil
}

func (c *Config) Base() (domain.Currency, error) {
	return domain.ParseCurrency(c.Board.DefaultBase)
}

func (c *Config) Amount() (decimal.Decimal, error) {
	return input.Parse(c.Board.InitialAmount)
}

// Level the go-kit level filter for LogLevel
func (c *Config) Level() (level.Option, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return level.AllowDebug(), nil
	case "info", "":
		return level.AllowInfo(), nil
	case "warn":
		return level.AllowWarn(), nil
	case "error":
		return level.AllowError(), nil
	}
	return nil, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.LogLevel)
}
