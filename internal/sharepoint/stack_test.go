package sharepoint

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Zerg00s/sharepoint-mcp-go/internal/config"
)

// stack is a fully wired client stack against one httptest server that
// plays both the identity endpoint and the site API.
type stack struct {
	srv      *httptest.Server
	mux      *http.ServeMux
	client   *Client
	sessions *SessionManager
	digests  *DigestProvider
	service  *Service
	site     string

	tokenCalls  atomic.Int32
	digestCalls atomic.Int32
}

const testDigest = "0x1234,01 Jan 2026 00:00:00 -0000"

// newStack builds the harness. Tests register additional site API routes
// on s.mux.
func newStack(t *testing.T) *stack {
	t.Helper()

	s := &stack{mux: http.NewServeMux()}
	s.srv = httptest.NewServer(s.mux)
	t.Cleanup(s.srv.Close)

	s.site = s.srv.URL + "/sites/dev"

	s.mux.HandleFunc("/auth/tenant/oauth2/v2.0/token", func(w http.ResponseWriter, r *http.Request) {
		s.tokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})

	s.mux.HandleFunc("/sites/dev/_api/contextinfo", func(w http.ResponseWriter, r *http.Request) {
		s.digestCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"d":{"GetContextWebInformation":{"FormDigestValue":%q,"FormDigestTimeoutSeconds":1800}}}`, testDigest)
	})

	creds := config.SecretCredentials{ClientID: "client-id", ClientSecret: "shh", TenantID: "tenant"}

	logger := testLogger(t)
	s.client = NewClient(s.srv.Client(), 5*time.Second, logger)
	s.sessions = NewSessionManager(creds, s.srv.Client(), logger)
	s.sessions.authority = s.srv.URL + "/auth"
	s.digests = NewDigestProvider(s.client, s.sessions, logger)
	s.service = NewService(s.client, s.sessions, s.digests, logger)

	return s
}

// handleList serves the getbytitle route for a list, answering the
// entity-type lookup and delegating everything else to next.
func (s *stack) handleList(listTitle, entityType string, next http.HandlerFunc) {
	s.mux.HandleFunc("/sites/dev/_api/web/lists/getbytitle('"+listTitle+"')", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("$select") == "ListItemEntityTypeFullName" {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"d":{"ListItemEntityTypeFullName":%q}}`, entityType)

			return
		}

		if next != nil {
			next(w, r)

			return
		}

		http.NotFound(w, r)
	})
}
