package share

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// userAgent is the legacy client string the share service insists on.
const userAgent = "Dexcom Share/3.0.2.11 CFNetwork/711.2.23 Darwin/14.0.0"

// newHTTPClient returns a client with HTTP/2 negotiated over TLS and the
// given overall request timeout.
func newHTTPClient(timeout time.Duration) *http.Client {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
		MaxIdleConns:          4,
	}
	if _, err := http2.ConfigureTransports(t); err != nil {
		slog.Debug("share: http2 unavailable, using HTTP/1.1", "err", err)
	}
	return &http.Client{Transport: t, Timeout: timeout}
}

// doJSON POSTs body (nil for an empty body) to url and decodes the JSON
// response into out. The share service only answers 200 on success; every
// other status is returned as an *APIError carrying the status and a snippet
// of the response body.
func doJSON(ctx context.Context, client *http.Client, op, url string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &APIError{Op: op, Err: fmt.Errorf("marshal: %w", err)}
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bodyReader)
	if err != nil {
		return &APIError{Op: op, Err: fmt.Errorf("new request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req) // #nosec G704 -- URL is one of the two fixed share endpoints or an explicit override
	if err != nil {
		return &APIError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &APIError{Op: op, Err: fmt.Errorf("decode: %w", err)}
		}
	}
	return nil
}
