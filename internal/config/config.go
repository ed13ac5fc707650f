// Package config loads the immutable parameter bundle consumed by the
// crawler and the analysis cmds. Configuration is read once before any
// crawl starts; refreshed credentials are never written back here.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when the config file omits a field.
const (
	DefaultBaseURL       = "https://api-v2.solscan.io"
	DefaultTimeout       = 30 * time.Second
	DefaultPageSize      = 100
	DefaultMaxPages      = 100
	DefaultPageDelay     = 500 * time.Millisecond
	DefaultMaxBlockRetry = 3
	DefaultMaxTransient  = 5
	DefaultRetryBase     = 1 * time.Second
	DefaultRetryMax      = 10 * time.Second
)

// Config is the full parameter bundle.
type Config struct {
	API        APIConfig        `yaml:"api"`
	Proxy      ProxyConfig      `yaml:"proxy"`
	Retry      RetryConfig      `yaml:"retry"`
	Pagination PaginationConfig `yaml:"pagination"`
	Block      BlockConfig      `yaml:"block_detection"`
	Credential CredentialConfig `yaml:"credential"`
	Tokens     []TargetToken    `yaml:"target_tokens"`
}

// APIConfig configures the upstream HTTP API.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ProxyConfig configures an optional outbound proxy.
type ProxyConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// RetryConfig bounds transient-error and block-recovery retries.
type RetryConfig struct {
	MaxTransient  int           `yaml:"max_transient"`
	MaxBlockRetry int           `yaml:"max_block_retry"`
	BaseDelay     time.Duration `yaml:"base_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
}

// PaginationConfig controls the fetch loop.
type PaginationConfig struct {
	PageSize  int           `yaml:"page_size"`
	MaxPages  int           `yaml:"max_pages"`
	PageDelay time.Duration `yaml:"delay_between_pages"`
}

// BlockConfig makes the anti-bot challenge signature pluggable. The one
// observed signature is not assumed exhaustive.
type BlockConfig struct {
	StatusCodes    []int    `yaml:"status_codes"`
	BodySignatures []string `yaml:"body_signatures"`
}

// CredentialConfig seeds the clearance credential for the first request.
type CredentialConfig struct {
	ClearanceToken string `yaml:"clearance_token"`
	AuthToken      string `yaml:"auth_token"`
}

// TargetToken identifies one token address to crawl.
type TargetToken struct {
	Address string `yaml:"address"`
	Name    string `yaml:"name"`
	Symbol  string `yaml:"symbol"`
}

// Load reads and validates a YAML config file, applying defaults for
// omitted fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a config with all defaults applied and no target tokens.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultTimeout
	}
	if c.Retry.MaxTransient == 0 {
		c.Retry.MaxTransient = DefaultMaxTransient
	}
	if c.Retry.MaxBlockRetry == 0 {
		c.Retry.MaxBlockRetry = DefaultMaxBlockRetry
	}
	if c.Retry.BaseDelay == 0 {
		c.Retry.BaseDelay = DefaultRetryBase
	}
	if c.Retry.MaxDelay == 0 {
		c.Retry.MaxDelay = DefaultRetryMax
	}
	if c.Pagination.PageSize == 0 {
		c.Pagination.PageSize = DefaultPageSize
	}
	if c.Pagination.MaxPages == 0 {
		c.Pagination.MaxPages = DefaultMaxPages
	}
	if c.Pagination.PageDelay == 0 {
		c.Pagination.PageDelay = DefaultPageDelay
	}
	if len(c.Block.StatusCodes) == 0 {
		c.Block.StatusCodes = []int{403}
	}
	if len(c.Block.BodySignatures) == 0 {
		c.Block.BodySignatures = []string{"cloudflare"}
	}
}

// Validate checks field ranges. Defaults must be applied first.
func (c *Config) Validate() error {
	if c.Pagination.PageSize < 1 {
		return fmt.Errorf("page_size must be >= 1, got %d", c.Pagination.PageSize)
	}
	if c.Pagination.MaxPages < 1 {
		return fmt.Errorf("max_pages must be >= 1, got %d", c.Pagination.MaxPages)
	}
	if c.Retry.MaxBlockRetry < 0 || c.Retry.MaxTransient < 0 {
		return fmt.Errorf("retry bounds must be >= 0")
	}
	if c.Proxy.Enabled && c.Proxy.URL == "" {
		return fmt.Errorf("proxy enabled but proxy url is empty")
	}
	return nil
}
