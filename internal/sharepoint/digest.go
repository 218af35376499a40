package sharepoint

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// digestExpirySkew is subtracted from the backend-reported digest
// lifetime. The expiry is advisory only; a rejected write is the
// authoritative staleness signal and is handled by the service layer's
// single refetch-and-retry.
const digestExpirySkew = 30 * time.Second

// digest is one cached form digest. Digests are site-scoped, so the
// provider holds one per site URL.
type digest struct {
	value     string
	expiresAt time.Time
}

func (d *digest) valid(now time.Time) bool {
	return d != nil && now.Before(d.expiresAt.Add(-digestExpirySkew))
}

// DigestProvider obtains and caches the short-lived form digest required
// by every mutating call. Safe for concurrent use; refreshes are
// coalesced per site URL.
type DigestProvider struct {
	client   *Client
	sessions *SessionManager
	logger   *slog.Logger

	now func() time.Time

	mu    sync.Mutex
	cache map[string]*digest
	group singleflight.Group
}

// NewDigestProvider creates a digest provider on top of the transport and
// session manager.
func NewDigestProvider(client *Client, sessions *SessionManager, logger *slog.Logger) *DigestProvider {
	if logger == nil {
		logger = slog.Default()
	}

	return &DigestProvider{
		client:   client,
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
		cache:    make(map[string]*digest),
	}
}

// Digest returns a valid form digest for siteURL, fetching one from the
// site's contextinfo endpoint when the cache is empty or expired.
func (p *DigestProvider) Digest(ctx context.Context, siteURL string) (string, error) {
	key := normalizeSiteURL(siteURL)

	p.mu.Lock()
	cached := p.cache[key]
	p.mu.Unlock()

	if cached.valid(p.now()) {
		return cached.value, nil
	}

	v, err, _ := p.group.Do(key, func() (any, error) {
		p.mu.Lock()
		cached := p.cache[key]
		p.mu.Unlock()

		if cached.valid(p.now()) {
			return cached, nil
		}

		d, err := p.fetch(ctx, key)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.cache[key] = d
		p.mu.Unlock()

		return d, nil
	})
	if err != nil {
		return "", err
	}

	return v.(*digest).value, nil
}

// Invalidate drops the cached digest for siteURL so the next call
// refetches. Called when the backend rejects a write for a stale digest.
func (p *DigestProvider) Invalidate(siteURL string) {
	key := normalizeSiteURL(siteURL)

	p.mu.Lock()
	delete(p.cache, key)
	p.mu.Unlock()
}

// fetch issues the contextinfo call and parses the digest envelope.
func (p *DigestProvider) fetch(ctx context.Context, siteURL string) (*digest, error) {
	headers, err := p.sessions.Headers(ctx, siteURL)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(ctx, http.MethodPost, siteURL+"/_api/contextinfo", headers, nil)
	if err != nil {
		return nil, fmt.Errorf("sharepoint: fetching context info: %w", err)
	}

	var body struct {
		D struct {
			GetContextWebInformation struct {
				FormDigestValue          string `json:"FormDigestValue"`
				FormDigestTimeoutSeconds int    `json:"FormDigestTimeoutSeconds"`
			} `json:"GetContextWebInformation"`
		} `json:"d"`
	}

	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("sharepoint: decoding context info: %w", err)
	}

	info := body.D.GetContextWebInformation
	if info.FormDigestValue == "" {
		return nil, fmt.Errorf("sharepoint: context info response carried no digest")
	}

	expiresAt := p.now().Add(time.Duration(info.FormDigestTimeoutSeconds) * time.Second)

	p.logger.Debug("fetched form digest",
		slog.String("site", siteURL),
		slog.Time("expires", expiresAt),
	)

	return &digest{value: info.FormDigestValue, expiresAt: expiresAt}, nil
}

// normalizeSiteURL canonicalizes the cache key so trailing-slash variants
// of the same site share one digest.
func normalizeSiteURL(siteURL string) string {
	return strings.TrimRight(siteURL, "/")
}
