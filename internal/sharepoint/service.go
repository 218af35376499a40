package sharepoint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// Service exposes the SharePoint operations the tool surface is built on.
// It composes the transport, session manager, and digest provider, and
// owns the one sanctioned automatic retry: a mutating call rejected for a
// stale digest is retried exactly once after a digest refetch.
type Service struct {
	client   *Client
	sessions *SessionManager
	digests  *DigestProvider
	logger   *slog.Logger

	mu          sync.Mutex
	entityTypes map[string]string
}

// NewService wires the operations layer.
func NewService(client *Client, sessions *SessionManager, digests *DigestProvider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		client:      client,
		sessions:    sessions,
		digests:     digests,
		logger:      logger,
		entityTypes: make(map[string]string),
	}
}

// get issues an authenticated read.
func (s *Service) get(ctx context.Context, siteURL, callURL string) (*Response, error) {
	headers, err := s.sessions.Headers(ctx, siteURL)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(ctx, http.MethodGet, callURL, headers, nil)
	if err != nil {
		s.noteUnauthorized(err)
		return nil, err
	}

	return resp, nil
}

// mutate issues an authenticated, digest-bearing write. On a
// digest-rejected response the digest is refetched and the call retried
// once; a second rejection surfaces as ErrDigestExpired.
func (s *Service) mutate(ctx context.Context, siteURL, method, callURL string, extra map[string]string, body []byte) (*Response, error) {
	resp, err := s.mutateOnce(ctx, siteURL, method, callURL, extra, body)
	if err == nil || !isDigestRejection(err) {
		s.noteUnauthorized(err)
		return resp, err
	}

	s.logger.Debug("digest rejected, refetching once",
		slog.String("site", siteURL),
		slog.String("url", callURL),
	)

	s.digests.Invalidate(siteURL)

	resp, err = s.mutateOnce(ctx, siteURL, method, callURL, extra, body)
	if err != nil && isDigestRejection(err) {
		return nil, fmt.Errorf("%w: %v", ErrDigestExpired, err)
	}

	s.noteUnauthorized(err)

	return resp, err
}

// mutateOnce performs a single write attempt with fresh headers.
func (s *Service) mutateOnce(ctx context.Context, siteURL, method, callURL string, extra map[string]string, body []byte) (*Response, error) {
	headers, err := s.sessions.Headers(ctx, siteURL)
	if err != nil {
		return nil, err
	}

	dig, err := s.digests.Digest(ctx, siteURL)
	if err != nil {
		return nil, err
	}

	headers["X-RequestDigest"] = dig

	var reader *bytes.Reader
	if body != nil {
		headers["Content-Type"] = "application/json;odata=verbose"
		reader = bytes.NewReader(body)
	}

	for k, v := range extra {
		headers[k] = v
	}

	if reader != nil {
		return s.client.Do(ctx, method, callURL, headers, reader)
	}

	return s.client.Do(ctx, method, callURL, headers, nil)
}

// noteUnauthorized drops the cached session when the backend reports the
// token invalid, so the next call re-authenticates. The failed call is
// not retried.
func (s *Service) noteUnauthorized(err error) {
	if errors.Is(err, ErrUnauthorized) {
		s.sessions.Invalidate()
	}
}

// isDigestRejection reports whether err is the backend refusing a write
// for digest reasons. The backend signals this as 403 on an otherwise
// authorized call.
func isDigestRejection(err error) bool {
	var backendErr *BackendError
	return errors.As(err, &backendErr) && backendErr.StatusCode == http.StatusForbidden
}

// listPath builds the getbytitle API path for a list. Single quotes in
// the title are doubled per the OData literal rules.
func listPath(siteURL, listTitle string) string {
	escaped := strings.ReplaceAll(listTitle, "'", "''")
	return siteURL + "/_api/web/lists/getbytitle('" + url.PathEscape(escaped) + "')"
}

// entityType returns the list's item entity type name
// (e.g. SP.Data.TasksListItem), required in verbose-mode item payloads.
// Cached per site+list for the process lifetime.
func (s *Service) entityType(ctx context.Context, siteURL, listTitle string) (string, error) {
	key := normalizeSiteURL(siteURL) + "|" + listTitle

	s.mu.Lock()
	cached := s.entityTypes[key]
	s.mu.Unlock()

	if cached != "" {
		return cached, nil
	}

	resp, err := s.get(ctx, siteURL, listPath(siteURL, listTitle)+"?$select=ListItemEntityTypeFullName")
	if err != nil {
		return "", err
	}

	var body envelope[struct {
		ListItemEntityTypeFullName string `json:"ListItemEntityTypeFullName"`
	}]

	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", fmt.Errorf("sharepoint: decoding entity type for %q: %w", listTitle, err)
	}

	if body.D.ListItemEntityTypeFullName == "" {
		return "", fmt.Errorf("sharepoint: list %q reported no entity type", listTitle)
	}

	s.mu.Lock()
	s.entityTypes[key] = body.D.ListItemEntityTypeFullName
	s.mu.Unlock()

	return body.D.ListItemEntityTypeFullName, nil
}

// itemPayload serializes item fields into a verbose-mode body carrying
// the required __metadata type annotation.
func itemPayload(entityType string, fields map[string]any) ([]byte, error) {
	payload := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}

	payload["__metadata"] = map[string]string{"type": entityType}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("sharepoint: encoding item payload: %w", err)
	}

	return data, nil
}
