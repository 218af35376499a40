package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every config environment variable for the test.
func clearEnv(t *testing.T) {
	t.Helper()

	for _, name := range []string{
		EnvClientID, EnvClientSecret, EnvTenantID, EnvSiteURL,
		EnvApplicationID, EnvCertThumbprint, EnvCertPassword, EnvCertPath,
		EnvTimeoutSecs, EnvConfigFile,
	} {
		t.Setenv(name, "")
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvClientID, "client-id")
	t.Setenv(EnvClientSecret, "shh")
	t.Setenv(EnvTenantID, "tenant")
	t.Setenv(EnvSiteURL, "https://contoso.sharepoint.com/sites/dev")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "client-id", cfg.ClientID)
	assert.Equal(t, "https://contoso.sharepoint.com/sites/dev", cfg.SiteURL)
	assert.Equal(t, DefaultCertPath, cfg.CertPath)
	assert.Equal(t, DefaultRequestTimeout, cfg.Timeout())
}

func TestLoad_ArgsOverrideEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvClientID, "from-env")
	t.Setenv(EnvTimeoutSecs, "15")

	cfg, err := Load([]string{
		EnvClientID + "=from-args",
		EnvTimeoutSecs + "=45",
	})
	require.NoError(t, err)
	assert.Equal(t, "from-args", cfg.ClientID)
	assert.Equal(t, 45*time.Second, cfg.Timeout())
}

func TestLoad_FileBelowEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "sharepoint.toml")
	content := `
client_id = "from-file"
client_secret = "file-secret"
tenant_id = "file-tenant"
timeout_seconds = 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv(EnvConfigFile, path)
	t.Setenv(EnvClientID, "from-env")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.ClientID, "env overrides file")
	assert.Equal(t, "file-secret", cfg.ClientSecret)
	assert.Equal(t, 10*time.Second, cfg.Timeout())
}

func TestLoad_FileUnknownKey(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "sharepoint.toml")
	require.NoError(t, os.WriteFile(path, []byte("clientid = \"typo\"\n"), 0o600))

	_, err := Load([]string{KeyConfigFile + "=" + path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key")
}

func TestLoad_MalformedArg(t *testing.T) {
	clearEnv(t)

	_, err := Load([]string{"no-equals-sign"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KEY=VALUE")
}

func TestLoad_UnknownArgKey(t *testing.T) {
	clearEnv(t)

	_, err := Load([]string{"SHAREPOINT_BOGUS=1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown argument key")
}

func TestLoad_BadTimeout(t *testing.T) {
	clearEnv(t)

	_, err := Load([]string{EnvTimeoutSecs + "=zero"})
	require.Error(t, err)
}
