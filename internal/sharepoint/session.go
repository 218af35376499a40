package sharepoint

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/pkcs12"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"

	"github.com/Zerg00s/sharepoint-mcp-go/internal/config"
)

// defaultAuthority is the Entra ID token issuer base URL.
const defaultAuthority = "https://login.microsoftonline.com"

// tokenExpirySkew is subtracted from the reported token lifetime so a
// token is refreshed before the backend would start rejecting it.
const tokenExpirySkew = 60 * time.Second

// session is an immutable issued token. Replaced wholesale on refresh,
// never patched.
type session struct {
	headers   map[string]string
	issuedAt  time.Time
	expiresAt time.Time
}

func (s *session) valid(now time.Time) bool {
	return s != nil && now.Before(s.expiresAt.Add(-tokenExpirySkew))
}

// SessionManager owns token acquisition and caching for both credential
// flows. One token authorizes every site in the tenant, so the cache is
// process-wide, not per site. Safe for concurrent use: refreshes for the
// in-flight token are coalesced into a single acquisition.
type SessionManager struct {
	creds      config.Credentials
	httpClient *http.Client
	logger     *slog.Logger
	authority  string

	// now is replaceable for expiry tests.
	now func() time.Time

	mu      sync.Mutex
	current *session
	group   singleflight.Group

	// certKey caches the private key decoded from the PKCS#12 bundle so
	// the file is read once per process.
	certKeyOnce sync.Once
	certKey     *rsa.PrivateKey
	certKeyErr  error
}

// NewSessionManager creates a session manager for the resolved credential.
func NewSessionManager(creds config.Credentials, httpClient *http.Client, logger *slog.Logger) *SessionManager {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &SessionManager{
		creds:      creds,
		httpClient: httpClient,
		logger:     logger,
		authority:  defaultAuthority,
		now:        time.Now,
	}
}

// Headers returns the auth headers for a call against siteURL, acquiring
// or refreshing the token as needed. Acquisition failures are
// ErrAuthentication and are never retried here.
func (m *SessionManager) Headers(ctx context.Context, siteURL string) (map[string]string, error) {
	m.mu.Lock()
	cached := m.current
	m.mu.Unlock()

	if cached.valid(m.now()) {
		return copyHeaders(cached.headers), nil
	}

	// Coalesce concurrent refreshes: one acquisition per expiry, shared
	// by every waiter.
	v, err, _ := m.group.Do("session", func() (any, error) {
		m.mu.Lock()
		cached := m.current
		m.mu.Unlock()

		if cached.valid(m.now()) {
			return cached, nil
		}

		sess, err := m.acquire(ctx, siteURL)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.current = sess
		m.mu.Unlock()

		return sess, nil
	})
	if err != nil {
		return nil, err
	}

	return copyHeaders(v.(*session).headers), nil
}

// Invalidate drops the cached session so the next call re-authenticates.
// Used when the backend reports the token invalid (401) ahead of the
// tracked expiry.
func (m *SessionManager) Invalidate() {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
}

// acquire runs the flow-specific token exchange.
func (m *SessionManager) acquire(ctx context.Context, siteURL string) (*session, error) {
	resource, err := resourceForSite(siteURL)
	if err != nil {
		return nil, err
	}

	switch creds := m.creds.(type) {
	case config.SecretCredentials:
		return m.acquireSecret(ctx, creds, resource)
	case config.CertificateCredentials:
		return m.acquireCertificate(ctx, creds, resource)
	default:
		return nil, fmt.Errorf("%w: unsupported credential type %T", ErrAuthentication, m.creds)
	}
}

// acquireSecret performs the client-credential exchange.
func (m *SessionManager) acquireSecret(ctx context.Context, creds config.SecretCredentials, resource string) (*session, error) {
	cfg := clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     m.tokenURL(creds.TenantID),
		Scopes:       []string{resource + "/.default"},
	}

	tok, err := cfg.Token(context.WithValue(ctx, oauth2.HTTPClient, m.httpClient))
	if err != nil {
		return nil, fmt.Errorf("%w: client-credential exchange: %v", ErrAuthentication, err)
	}

	m.logger.Info("acquired token via client secret",
		slog.Time("expiry", tok.Expiry),
	)

	return m.newSession(tok.AccessToken, tok.Expiry), nil
}

// acquireCertificate performs the certificate-assertion exchange: a
// freshly signed JWT assertion is exchanged for a bearer token.
func (m *SessionManager) acquireCertificate(ctx context.Context, creds config.CertificateCredentials, resource string) (*session, error) {
	key, err := m.certificateKey(creds)
	if err != nil {
		return nil, err
	}

	tokenURL := m.tokenURL(creds.TenantID)

	assertion, err := signAssertion(key, creds.CertThumbprint, creds.ClientID, tokenURL, m.now())
	if err != nil {
		return nil, err
	}

	form := url.Values{
		"grant_type":            {"client_credentials"},
		"client_id":             {creds.ClientID},
		"client_assertion_type": {"urn:ietf:params:oauth:client-assertion-type:jwt-bearer"},
		"client_assertion":      {assertion},
		"scope":                 {resource + "/.default"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: building token request: %v", ErrAuthentication, err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: certificate-assertion exchange: %v", ErrAuthentication, err)
	}

	defer resp.Body.Close()

	var body struct {
		AccessToken      string `json:"access_token"`
		ExpiresIn        int    `json:"expires_in"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding token response: %v", ErrAuthentication, err)
	}

	if resp.StatusCode != http.StatusOK || body.AccessToken == "" {
		return nil, fmt.Errorf("%w: token endpoint returned HTTP %d: %s %s",
			ErrAuthentication, resp.StatusCode, body.Error, body.ErrorDescription)
	}

	expiry := m.now().Add(time.Duration(body.ExpiresIn) * time.Second)

	m.logger.Info("acquired token via certificate assertion",
		slog.Time("expiry", expiry),
	)

	return m.newSession(body.AccessToken, expiry), nil
}

// certificateKey decodes the signing key from the PKCS#12 bundle, once.
func (m *SessionManager) certificateKey(creds config.CertificateCredentials) (*rsa.PrivateKey, error) {
	m.certKeyOnce.Do(func() {
		data, err := os.ReadFile(creds.CertPath)
		if err != nil {
			m.certKeyErr = fmt.Errorf("%w: reading certificate %s: %v", ErrAuthentication, creds.CertPath, err)
			return
		}

		key, _, err := pkcs12.Decode(data, creds.CertPassword)
		if err != nil {
			m.certKeyErr = fmt.Errorf("%w: decoding certificate %s: %v", ErrAuthentication, creds.CertPath, err)
			return
		}

		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			m.certKeyErr = fmt.Errorf("%w: certificate key is %T, expected RSA", ErrAuthentication, key)
			return
		}

		m.certKey = rsaKey
	})

	return m.certKey, m.certKeyErr
}

func (m *SessionManager) tokenURL(tenantID string) string {
	return m.authority + "/" + tenantID + "/oauth2/v2.0/token"
}

func (m *SessionManager) newSession(token string, expiry time.Time) *session {
	return &session{
		headers: map[string]string{
			"Authorization": "Bearer " + token,
			"Accept":        "application/json;odata=verbose",
		},
		issuedAt:  m.now(),
		expiresAt: expiry,
	}
}

// resourceForSite derives the tenant resource ("https://host") from a
// site URL. Every site in a tenant shares the host, so the token scope is
// stable across sites.
func resourceForSite(siteURL string) (string, error) {
	u, err := url.Parse(siteURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: invalid site URL %q", ErrAuthentication, siteURL)
	}

	return u.Scheme + "://" + u.Host, nil
}

func copyHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}

	return out
}
