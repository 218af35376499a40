package sharepoint

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zerg00s/sharepoint-mcp-go/internal/config"
)

const testSite = "https://contoso.example.com/sites/dev"

// newTokenServer serves the token endpoint, counting acquisitions.
func newTokenServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(srv.Close)

	return srv
}

func newTestSessionManager(t *testing.T, srv *httptest.Server) *SessionManager {
	t.Helper()

	creds := config.SecretCredentials{
		ClientID:     "client-id",
		ClientSecret: "shh",
		TenantID:     "tenant",
	}

	m := NewSessionManager(creds, srv.Client(), testLogger(t))
	m.authority = srv.URL

	return m
}

func TestSessionManager_Headers(t *testing.T) {
	var calls atomic.Int32

	srv := newTokenServer(t, &calls)
	m := newTestSessionManager(t, srv)

	headers, err := m.Headers(context.Background(), testSite)
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-token", headers["Authorization"])
	assert.Equal(t, "application/json;odata=verbose", headers["Accept"])
	assert.Equal(t, int32(1), calls.Load())
}

func TestSessionManager_CachesToken(t *testing.T) {
	var calls atomic.Int32

	srv := newTokenServer(t, &calls)
	m := newTestSessionManager(t, srv)

	for i := 0; i < 5; i++ {
		_, err := m.Headers(context.Background(), testSite)
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), calls.Load(), "token is acquired once per process")
}

func TestSessionManager_ConcurrentRefreshCoalesced(t *testing.T) {
	var calls atomic.Int32

	srv := newTokenServer(t, &calls)
	m := newTestSessionManager(t, srv)

	const workers = 16

	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			headers, err := m.Headers(context.Background(), testSite)
			assert.NoError(t, err)
			assert.Equal(t, "Bearer test-token", headers["Authorization"])
		}()
	}

	wg.Wait()
	assert.Equal(t, int32(1), calls.Load(), "concurrent refreshes share one acquisition")
}

func TestSessionManager_RefreshesExpiredToken(t *testing.T) {
	var calls atomic.Int32

	srv := newTokenServer(t, &calls)
	m := newTestSessionManager(t, srv)

	now := time.Now()
	m.now = func() time.Time { return now }

	_, err := m.Headers(context.Background(), testSite)
	require.NoError(t, err)
	require.Equal(t, int32(1), calls.Load())

	// Jump past the token lifetime; the next call re-acquires.
	now = now.Add(2 * time.Hour)

	_, err = m.Headers(context.Background(), testSite)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSessionManager_AcquisitionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	m := newTestSessionManager(t, srv)

	_, err := m.Headers(context.Background(), testSite)
	require.ErrorIs(t, err, ErrAuthentication)
}

func TestSessionManager_Invalidate(t *testing.T) {
	var calls atomic.Int32

	srv := newTokenServer(t, &calls)
	m := newTestSessionManager(t, srv)

	_, err := m.Headers(context.Background(), testSite)
	require.NoError(t, err)

	m.Invalidate()

	_, err = m.Headers(context.Background(), testSite)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSessionManager_BadSiteURL(t *testing.T) {
	var calls atomic.Int32

	srv := newTokenServer(t, &calls)
	m := newTestSessionManager(t, srv)

	_, err := m.Headers(context.Background(), "not a url")
	require.ErrorIs(t, err, ErrAuthentication)
	assert.Zero(t, calls.Load())
}

func TestSessionManager_CertificateFileMissing(t *testing.T) {
	creds := config.CertificateCredentials{
		ClientID:       "app-id",
		CertThumbprint: "aabbcc",
		CertPassword:   "pass",
		CertPath:       "/nonexistent/certificate.pfx",
		TenantID:       "tenant",
	}

	m := NewSessionManager(creds, nil, testLogger(t))

	_, err := m.Headers(context.Background(), testSite)
	require.ErrorIs(t, err, ErrAuthentication)
}

func TestSignAssertion(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	now := time.Now()
	tokenURL := "https://login.example.com/tenant/oauth2/v2.0/token"

	signed, err := signAssertion(key, "aabbccdd", "app-id", tokenURL, now)
	require.NoError(t, err)

	parsed, err := jwt.Parse(signed, func(tok *jwt.Token) (any, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}))
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, tokenURL, claims["aud"])
	assert.Equal(t, "app-id", claims["iss"])
	assert.Equal(t, "app-id", claims["sub"])
	assert.NotEmpty(t, claims["jti"])

	wantThumb := base64.RawURLEncoding.EncodeToString([]byte{0xaa, 0xbb, 0xcc, 0xdd})
	assert.Equal(t, wantThumb, parsed.Header["x5t"])
}

func TestSignAssertion_BadThumbprint(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	_, err = signAssertion(key, "not-hex", "app-id", "https://example.com", time.Now())
	require.ErrorIs(t, err, ErrAuthentication)
}
