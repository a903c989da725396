package transport

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"session-sync/internal/auth"
)

const (
	// SecretHeader authenticates server-to-server calls in both
	// directions: outbound checks against the upstream IdP and
	// inbound sync requests from trusted backends.
	SecretHeader = "X-Sync-Secret"

	maxResponseBytes = 1 << 20
)

// Client wraps outbound calls to the upstream IdP with the shared
// secret header and a hard per-call timeout.
type Client struct {
	http    *http.Client
	baseURL string
	secret  string
	timeout time.Duration
}

func New(baseURL, secret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		timeout: timeout,
	}
}

// PostJSON sends body to path on the upstream base URL and decodes the
// JSON response into out. Cookies, when present, carry the browser's
// upstream session in proxied mode; they are forwarded only to the
// configured upstream host, never to a third party.
//
// Network faults, timeouts, non-2xx statuses and non-JSON responses all
// classify as transport errors. They must never read as "no session":
// an upstream misconfiguration is not a logged-out user.
func (c *Client) PostJSON(
	ctx context.Context,
	path string,
	body any,
	out any,
	cookies []*http.Cookie,
) error {

	payload, err := json.Marshal(body)
	if err != nil {
		return auth.NewSyncError(auth.CodeTransportError, "encode request body", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+path,
		bytes.NewReader(payload),
	)
	if err != nil {
		return auth.NewSyncError(auth.CodeTransportError, "build request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SecretHeader, c.secret)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return auth.NewSyncError(auth.CodeTransportError, "upstream call failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return auth.NewSyncError(
			auth.CodeTransportError,
			fmt.Sprintf("upstream returned status %d", resp.StatusCode),
			nil,
		)
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return auth.NewSyncError(
			auth.CodeTransportError,
			fmt.Sprintf("unexpected content type %q", resp.Header.Get("Content-Type")),
			nil,
		)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return auth.NewSyncError(auth.CodeTransportError, "read upstream response", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return auth.NewSyncError(auth.CodeTransportError, "malformed upstream response", err)
	}

	return nil
}

// VerifySecret checks an inbound pre-shared secret in constant time.
// An empty configured secret never matches.
func VerifySecret(configured, presented string) bool {
	if configured == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(presented)) == 1
}
