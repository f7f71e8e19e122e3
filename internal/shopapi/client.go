package shopapi

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/psantana5/appworld/internal/shop"
)

// Client is a typed client for the shop API, used by shopctl
type Client struct {
	baseURL    string
	token      string
	clientName string
	httpClient *http.Client
}

// NewClient creates an API client
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewClientWithTLS creates an API client with TLS support
func NewClientWithTLS(baseURL, token string, tlsConfig *tls.Config) *Client {
	c := NewClient(baseURL, token)
	c.httpClient.Transport = &http.Transport{
		TLSClientConfig: tlsConfig,
	}
	return c
}

// SetClientName sets the name sent with issued (non-admin) tokens
func (c *Client) SetClientName(name string) {
	c.clientName = name
}

func (c *Client) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.clientName != "" {
		req.Header.Set("X-Client-Name", c.clientName)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr ErrorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Health checks daemon liveness
func (c *Client) Health() error {
	return c.do(http.MethodGet, "/health", nil, nil)
}

// State fetches the full world state
func (c *Client) State() (shop.State, error) {
	var s shop.State
	err := c.do(http.MethodGet, "/api/state", nil, &s)
	return s, err
}

// Products fetches the catalog
func (c *Client) Products() ([]shop.Product, error) {
	var resp ProductListResponse
	if err := c.do(http.MethodGet, "/api/products", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

// AddCartItem adds a product to the cart
func (c *Client) AddCartItem(productID string, quantity int) (CartResponse, error) {
	var resp CartResponse
	err := c.do(http.MethodPost, "/api/cart/items", AddItemRequest{
		ProductID: productID,
		Quantity:  quantity,
	}, &resp)
	return resp, err
}

// RemoveCartItem removes a product's line from the cart
func (c *Client) RemoveCartItem(productID string) error {
	return c.do(http.MethodDelete, "/api/cart/items/"+url.PathEscape(productID), nil, nil)
}

// Checkout places an order from the current cart
func (c *Client) Checkout() (shop.Order, error) {
	var order shop.Order
	err := c.do(http.MethodPost, "/api/checkout", nil, &order)
	return order, err
}

// Snapshots lists persisted snapshots, newest first. limit 0 uses the
// server default.
func (c *Client) Snapshots(limit int) (SnapshotListResponse, error) {
	path := "/api/snapshots"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var resp SnapshotListResponse
	err := c.do(http.MethodGet, path, nil, &resp)
	return resp, err
}

// TakeSnapshot persists a snapshot now
func (c *Client) TakeSnapshot() (SnapshotInfo, error) {
	var info SnapshotInfo
	err := c.do(http.MethodPost, "/api/snapshots", nil, &info)
	return info, err
}

// Status fetches daemon and world health
func (c *Client) Status() (StatusResponse, error) {
	var resp StatusResponse
	err := c.do(http.MethodGet, "/api/status", nil, &resp)
	return resp, err
}

// ClearPoison overrides a poisoned world
func (c *Client) ClearPoison() (bool, error) {
	var resp struct {
		Cleared bool `json:"cleared"`
	}
	err := c.do(http.MethodPost, "/api/world/clear-poison", nil, &resp)
	return resp.Cleared, err
}
