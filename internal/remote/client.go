// Package remote implements the remote port: a REST client over the
// per-domain resource surface of the studysync backend. All failures
// surface as *errors.NetworkError and are isolated by the callers; a
// network problem never aborts a sync cycle outright.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	syncerr "github.com/studyforge/studysync/internal/errors"
)

const (
	// maxRedirects is the maximum number of HTTP redirects to follow
	// before giving up, matching the default net/http limit.
	maxRedirects = 10

	// httpClientTimeout is the timeout for the default HTTP client
	// when no custom client is provided. The sync engine imposes no
	// timeout layer of its own; this transport timeout is the only one.
	httpClientTimeout = 30 * time.Second

	// maxResponseBytes caps response body reads so a misbehaving
	// server cannot consume unbounded memory.
	maxResponseBytes = 4 * 1024 * 1024
)

// Credentials identify the client to the backend. When Token is set it
// is sent as a bearer token; otherwise DeviceID is sent as a stable
// anonymous identifier. Both values are produced by the auth module
// and opaque here.
type Credentials struct {
	Token    string
	DeviceID string
}

// Client talks to the studysync REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	creds      Credentials
	logger     *slog.Logger
}

// sameHostRedirectPolicy follows redirects only when the target host
// matches the original request host, so credentials never leak to
// third-party domains.
func sameHostRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errors.New("stopped after 10 redirects")
	}

	if len(via) > 0 {
		origHost := via[0].URL.Host
		if req.URL.Host != origHost {
			return fmt.Errorf("redirect to different host blocked: %s -> %s", origHost, req.URL.Host)
		}
	}

	return nil
}

// NewClient creates an API client for the given base URL. If
// httpClient is nil, a client with a 30-second timeout and same-host
// redirect policy is created.
func NewClient(baseURL string, creds Credentials, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:       httpClientTimeout,
			CheckRedirect: sameHostRedirectPolicy,
		}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		creds:      creds,
		logger:     logger,
	}
}

// sanitizeResponseBody truncates and sanitizes a response body for
// inclusion in error messages. Limits to 256 bytes and replaces
// non-printable characters to prevent log injection.
func sanitizeResponseBody(body []byte) string {
	const maxLen = 256
	if len(body) > maxLen {
		body = body[:maxLen]
	}

	var clean []byte

	for len(body) > 0 {
		r, size := utf8.DecodeRune(body)
		if r == utf8.RuneError && size <= 1 {
			clean = append(clean, '?')
			body = body[1:]

			continue
		}

		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			clean = append(clean, '?')
		} else {
			clean = append(clean, body[:size]...)
		}

		body = body[size:]
	}

	return string(clean)
}

// do sends a request with an optional JSON payload and returns the
// response body. Transport failures and non-2xx statuses come back as
// *errors.NetworkError.
func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bodyReader)
	if err != nil {
		return nil, &syncerr.NetworkError{Endpoint: endpoint, Err: fmt.Errorf("creating request: %w", err)}
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.creds.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.creds.Token)
	} else if c.creds.DeviceID != "" {
		req.Header.Set("X-Device-ID", c.creds.DeviceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &syncerr.NetworkError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &syncerr.NetworkError{Endpoint: endpoint, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &syncerr.NetworkError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Err:      errors.New(sanitizeResponseBody(respBody)),
		}
	}

	return respBody, nil
}
