// Package catalog is the client side of the tuning catalog API.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Fetcher loads one logical resource such as "models?brandId=1" and decodes
// the JSON response into out.
type Fetcher interface {
	Fetch(ctx context.Context, resource string, out any) error
}

// HTTPFetcher resolves resources against a base URL.
type HTTPFetcher struct {
	base   *url.URL
	client *http.Client
	logger *slog.Logger
}

func NewHTTPFetcher(baseUrl string, timeout time.Duration, logger *slog.Logger) (*HTTPFetcher, error) {
	if !strings.HasSuffix(baseUrl, "/") {
		baseUrl += "/"
	}
	base, err := url.Parse(baseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse catalog url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("catalog url %q must be http or https", baseUrl)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPFetcher{
		base:   base,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}, nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, resource string, out any) error {
	ref, err := url.Parse(resource)
	if err != nil {
		return fmt.Errorf("parse resource %q: %w", resource, err)
	}
	target := f.base.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	f.logger.Debug("fetching", "url", target.String())
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", target.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", target.Path, err)
	}
	return nil
}
