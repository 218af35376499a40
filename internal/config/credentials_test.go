package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func secretConfig() *Config {
	return &Config{
		ClientID:     "client-id",
		ClientSecret: "shh",
		TenantID:     "tenant",
	}
}

func certificateConfig() *Config {
	return &Config{
		ApplicationID:  "app-id",
		CertThumbprint: "AABBCC",
		CertPassword:   "pfx-pass",
		CertPath:       "certificate.pfx",
		TenantID:       "tenant",
	}
}

func TestResolve_SecretFlow(t *testing.T) {
	creds, err := Resolve(secretConfig())
	require.NoError(t, err)

	secret, ok := creds.(SecretCredentials)
	require.True(t, ok, "expected SecretCredentials, got %T", creds)
	assert.Equal(t, "client-id", secret.ClientID)
	assert.Equal(t, "shh", secret.ClientSecret)
	assert.Equal(t, "tenant", secret.Tenant())
}

func TestResolve_CertificateFlow(t *testing.T) {
	creds, err := Resolve(certificateConfig())
	require.NoError(t, err)

	cert, ok := creds.(CertificateCredentials)
	require.True(t, ok, "expected CertificateCredentials, got %T", creds)
	assert.Equal(t, "app-id", cert.ClientID)
	assert.Equal(t, "AABBCC", cert.CertThumbprint)
	assert.Equal(t, "certificate.pfx", cert.CertPath)
}

// Certificate flow must win whenever both flows are fully configured.
func TestResolve_BothFlows_PrefersCertificate(t *testing.T) {
	cfg := certificateConfig()
	cfg.ClientID = "client-id"
	cfg.ClientSecret = "shh"

	creds, err := Resolve(cfg)
	require.NoError(t, err)
	assert.IsType(t, CertificateCredentials{}, creds)
}

func TestResolve_Incomplete(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty", func(c *Config) { *c = Config{} }},
		{"secret missing tenant", func(c *Config) { c.TenantID = "" }},
		{"secret missing secret", func(c *Config) { c.ClientSecret = "" }},
		{"client id alone", func(c *Config) { *c = Config{ClientID: "client-id"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := secretConfig()
			tt.mutate(cfg)

			creds, err := Resolve(cfg)
			require.ErrorIs(t, err, ErrConfiguration)
			assert.Nil(t, creds, "no partially-filled credentials on failure")
		})
	}
}

func TestResolve_CertificateIncompleteFallsBackToSecret(t *testing.T) {
	cfg := certificateConfig()
	cfg.CertPassword = ""
	cfg.ClientID = "client-id"
	cfg.ClientSecret = "shh"

	creds, err := Resolve(cfg)
	require.NoError(t, err)
	assert.IsType(t, SecretCredentials{}, creds)
}
