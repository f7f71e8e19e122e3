package shop

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/psantana5/appworld/pkg/retry"
)

// CatalogClient fetches product lists from the upstream catalog
// service. It is safe for concurrent use.
type CatalogClient struct {
	baseURL    string
	httpClient *http.Client
	retryCfg   retry.Config
}

// NewCatalogClient creates a catalog client
func NewCatalogClient(baseURL string, timeout time.Duration) *CatalogClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CatalogClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retryCfg: retry.Config{
			MaxRetries:     2,
			InitialBackoff: 250 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
			Multiplier:     2.0,
			Jitter:         0.2,
		},
	}
}

// NewCatalogClientWithTLS creates a catalog client that verifies the
// upstream with the given TLS configuration
func NewCatalogClientWithTLS(baseURL string, timeout time.Duration, tlsConfig *tls.Config) *CatalogClient {
	c := NewCatalogClient(baseURL, timeout)
	c.httpClient.Transport = &http.Transport{
		TLSClientConfig: tlsConfig,
	}
	return c
}

// FetchProducts retrieves the full product list, retrying transient
// failures. Client-side errors (bad URL, malformed payload, 4xx) fail
// immediately.
func (c *CatalogClient) FetchProducts(ctx context.Context) ([]Product, error) {
	var products []Product

	err := retry.Do(ctx, c.retryCfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/products", nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to fetch catalog: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			err := fmt.Errorf("catalog returned status %d: %s", resp.StatusCode, string(body))
			if resp.StatusCode >= http.StatusInternalServerError ||
				resp.StatusCode == http.StatusTooManyRequests {
				return err
			}
			return retry.Permanent(err)
		}

		var page []Product
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			return retry.Permanent(fmt.Errorf("failed to decode catalog: %w", err))
		}
		products = page
		return nil
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// Close drops idle upstream connections
func (c *CatalogClient) Close() {
	c.httpClient.CloseIdleConnections()
}
