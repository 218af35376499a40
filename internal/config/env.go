package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variable names. The same names double as CLI argument keys
// (KEY=VALUE), keeping one vocabulary across both sources.
const (
	EnvClientID       = "SHAREPOINT_CLIENT_ID"
	EnvClientSecret   = "SHAREPOINT_CLIENT_SECRET"
	EnvTenantID       = "SHAREPOINT_TENANT_ID"
	EnvSiteURL        = "SHAREPOINT_SITE_URL"
	EnvApplicationID  = "AZURE_APPLICATION_ID"
	EnvCertThumbprint = "AZURE_CERTIFICATE_THUMBPRINT"
	EnvCertPassword   = "AZURE_CERTIFICATE_PASSWORD"
	EnvCertPath       = "AZURE_CERTIFICATE_PATH"
	EnvTimeoutSecs    = "SHAREPOINT_TIMEOUT_SECONDS"
	EnvConfigFile     = "SHAREPOINT_CONFIG"
)

// KeyConfigFile is the CLI key selecting a config file; it is handled
// before the normal merge because the file sits below env in precedence.
const KeyConfigFile = EnvConfigFile

// applyEnv overlays environment variables onto cfg. Empty variables leave
// the existing value untouched.
func applyEnv(cfg *Config) {
	setString(&cfg.ClientID, os.Getenv(EnvClientID))
	setString(&cfg.ClientSecret, os.Getenv(EnvClientSecret))
	setString(&cfg.TenantID, os.Getenv(EnvTenantID))
	setString(&cfg.SiteURL, os.Getenv(EnvSiteURL))
	setString(&cfg.ApplicationID, os.Getenv(EnvApplicationID))
	setString(&cfg.CertThumbprint, os.Getenv(EnvCertThumbprint))
	setString(&cfg.CertPassword, os.Getenv(EnvCertPassword))
	setString(&cfg.CertPath, os.Getenv(EnvCertPath))

	if v := os.Getenv(EnvTimeoutSecs); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.TimeoutSeconds = secs
		}
	}
}

// pair is one parsed KEY=VALUE argument.
type pair struct {
	key   string
	value string
}

// parsePairs splits CLI arguments of the form KEY=VALUE. Arguments without
// an equals sign are ignored here; applyArgs reports them as errors.
func parsePairs(args []string) []pair {
	var pairs []pair

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			continue
		}

		pairs = append(pairs, pair{key: key, value: value})
	}

	return pairs
}

// applyArgs overlays CLI KEY=VALUE arguments onto cfg. These have the
// highest precedence of all sources.
func applyArgs(cfg *Config, args []string) error {
	for _, arg := range args {
		if !strings.Contains(arg, "=") {
			return fmt.Errorf("config: malformed argument %q, expected KEY=VALUE", arg)
		}
	}

	for _, kv := range parsePairs(args) {
		switch kv.key {
		case EnvClientID:
			cfg.ClientID = kv.value
		case EnvClientSecret:
			cfg.ClientSecret = kv.value
		case EnvTenantID:
			cfg.TenantID = kv.value
		case EnvSiteURL:
			cfg.SiteURL = kv.value
		case EnvApplicationID:
			cfg.ApplicationID = kv.value
		case EnvCertThumbprint:
			cfg.CertThumbprint = kv.value
		case EnvCertPassword:
			cfg.CertPassword = kv.value
		case EnvCertPath:
			cfg.CertPath = kv.value
		case EnvTimeoutSecs:
			secs, err := strconv.Atoi(kv.value)
			if err != nil || secs <= 0 {
				return fmt.Errorf("config: %s must be a positive integer, got %q", EnvTimeoutSecs, kv.value)
			}

			cfg.TimeoutSeconds = secs
		case KeyConfigFile:
			// Consumed by Load before the merge.
		default:
			return fmt.Errorf("config: unknown argument key %q", kv.key)
		}
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
