package config

import "fmt"

// Credentials is the credential union: exactly one concrete variant is
// selected at startup and carried for the process lifetime. The sealed
// method keeps the set of variants closed to this package.
type Credentials interface {
	// Tenant returns the Entra ID tenant the credential authenticates
	// against.
	Tenant() string

	sealed()
}

// SecretCredentials authenticates with a client id and secret
// (client-credential grant).
type SecretCredentials struct {
	ClientID     string
	ClientSecret string
	TenantID     string
}

func (c SecretCredentials) Tenant() string { return c.TenantID }
func (SecretCredentials) sealed()          {}

// CertificateCredentials authenticates with a certificate-signed client
// assertion. CertPath points at the PKCS#12 bundle holding the signing
// key; CertPassword decrypts it; CertThumbprint (hex SHA-1) identifies
// the certificate to the identity endpoint.
type CertificateCredentials struct {
	ClientID       string
	CertThumbprint string
	CertPassword   string
	CertPath       string
	TenantID       string
}

func (c CertificateCredentials) Tenant() string { return c.TenantID }
func (CertificateCredentials) sealed()          {}

// Resolve selects the credential variant from cfg. The certificate flow
// is preferred whenever all of its fields are present, even if the secret
// flow is also fully configured. With neither flow complete it fails with
// ErrConfiguration.
func Resolve(cfg *Config) (Credentials, error) {
	if cfg.ApplicationID != "" && cfg.CertThumbprint != "" && cfg.CertPassword != "" && cfg.TenantID != "" {
		return CertificateCredentials{
			ClientID:       cfg.ApplicationID,
			CertThumbprint: cfg.CertThumbprint,
			CertPassword:   cfg.CertPassword,
			CertPath:       cfg.CertPath,
			TenantID:       cfg.TenantID,
		}, nil
	}

	if cfg.ClientID != "" && cfg.ClientSecret != "" && cfg.TenantID != "" {
		return SecretCredentials{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TenantID:     cfg.TenantID,
		}, nil
	}

	return nil, fmt.Errorf("%w: provide either %s/%s/%s or %s/%s/%s/%s",
		ErrConfiguration,
		EnvClientID, EnvClientSecret, EnvTenantID,
		EnvApplicationID, EnvCertThumbprint, EnvCertPassword, EnvTenantID)
}
