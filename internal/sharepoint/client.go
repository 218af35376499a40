package sharepoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const userAgent = "sharepoint-mcp-go/0.1"

// Response is the raw result of a single backend call: status, headers,
// and the fully-read body. Bodies are read eagerly so callers never hold
// open connections.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client is the transport layer. It does not manage tokens or digests;
// callers pre-populate headers. It enforces the configured per-call
// timeout and classifies failures, and never retries.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// NewClient creates a transport client. timeout bounds each call; zero
// means no client-imposed deadline beyond the caller's context.
func NewClient(httpClient *http.Client, timeout time.Duration, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: httpClient,
		timeout:    timeout,
		logger:     logger,
	}
}

// Do executes one HTTP request. The per-call timeout is layered onto ctx,
// so a tighter caller deadline still wins. Non-2xx responses are returned
// as *BackendError; deadline expiry as ErrTimeout; other transport
// failures as ErrNetwork.
func (c *Client) Do(ctx context.Context, method, url string, headers map[string]string, body io.Reader) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("sharepoint: creating request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.classifyTransport(ctx, method, url, err)
	}

	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.classifyTransport(ctx, method, url, err)
	}

	c.logger.Debug("request completed",
		slog.String("method", method),
		slog.String("url", url),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &BackendError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
			Err:        classifyStatus(resp.StatusCode),
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// classifyTransport distinguishes deadline expiry from other transport
// failures. The caller's cancellation is passed through unwrapped inside
// ErrTimeout/ErrNetwork so errors.Is still matches context errors.
func (c *Client) classifyTransport(ctx context.Context, method, url string, err error) error {
	c.logger.Warn("request failed",
		slog.String("method", method),
		slog.String("url", url),
		slog.String("error", err.Error()),
	)

	var netErr net.Error
	timedOut := errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout())

	if timedOut || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s %s: %v", ErrTimeout, method, url, err)
	}

	return fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, url, err)
}
