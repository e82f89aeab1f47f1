// Package httpjson fetches the seed dataset as a JSON array over HTTP.
package httpjson

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"txreport/internal/core"
	"txreport/internal/ports"
)

var _ ports.TransactionSource = (*Source)(nil)

// maxBodyBytes bounds the payload accepted from the remote source.
const maxBodyBytes = 32 << 20

type Source struct {
	url    string
	client *http.Client
}

// New returns a source reading url with the given per-request timeout.
func New(url string, timeout time.Duration) *Source {
	return &Source{url: url, client: newHTTPClient(timeout)}
}

// WithClient replaces the HTTP client, mainly for tests.
func (s *Source) WithClient(c *http.Client) *Source {
	s.client = c
	return s
}

func newHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

func (s *Source) Name() string {
	return "http"
}

// Fetch downloads and decodes the dataset. Transport failures and non-2xx
// answers are reported as core.ErrSourceUnavailable.
func (s *Source) Fetch(ctx context.Context) ([]core.Transaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %s returned %s", core.ErrSourceUnavailable, s.url, resp.Status)
	}

	var items []core.Transaction
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}

	undated := 0
	for _, t := range items {
		if !t.Dated() {
			undated++
		}
	}
	slog.InfoContext(ctx, "Fetched seed dataset",
		"url", s.url,
		"count", len(items),
		"undated", undated,
		"duration_ms", time.Since(start).Milliseconds())
	return items, nil
}
