// Package config loads server configuration from CLI key=value arguments,
// environment variables, and an optional TOML file, and resolves the
// credential set used to authenticate against SharePoint.
//
// Precedence, highest first: CLI arguments, environment variables, config
// file. The credential union is resolved once at startup and is immutable
// for the process lifetime.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrConfiguration indicates that no complete credential set could be
// resolved from the provided configuration sources.
var ErrConfiguration = errors.New("config: missing or incomplete credentials")

// Default values.
const (
	DefaultCertPath       = "certificate.pfx"
	DefaultRequestTimeout = 30 * time.Second
)

// Config holds the raw configuration values after all sources have been
// merged. Credential selection happens separately via Resolve.
type Config struct {
	// Secret flow.
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`

	// Certificate flow.
	ApplicationID  string `toml:"application_id"`
	CertThumbprint string `toml:"certificate_thumbprint"`
	CertPassword   string `toml:"certificate_password"`
	CertPath       string `toml:"certificate_path"`

	// Shared.
	TenantID string `toml:"tenant_id"`
	SiteURL  string `toml:"site_url"`

	// Per-call request timeout in seconds (0 means DefaultRequestTimeout).
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Timeout returns the effective per-call request timeout.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultRequestTimeout
	}

	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load merges all configuration sources in precedence order and returns
// the effective Config. args are raw CLI arguments in KEY=VALUE form;
// unrecognized keys are rejected so typos fail loudly instead of being
// silently ignored.
func Load(args []string) (*Config, error) {
	cfg := &Config{CertPath: DefaultCertPath}

	path := configFilePath(args)
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := applyArgs(cfg, args); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile reads a TOML config file into cfg. A missing file is an error:
// the file is only consulted when explicitly pointed at.
func loadFile(cfg *Config, path string) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config: unknown key %q in %s", undecoded[0].String(), path)
	}

	return nil
}

// configFilePath returns the config file location, if any. A CLI argument
// wins over the environment variable, matching the overall precedence.
func configFilePath(args []string) string {
	for _, kv := range parsePairs(args) {
		if kv.key == KeyConfigFile {
			return kv.value
		}
	}

	return os.Getenv(EnvConfigFile)
}
