package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrNotFound is returned when the registry has no product with the given ID.
var ErrNotFound = errors.New("product not found")

// ErrDuplicate is returned by RegisterProduct when the product ID is taken.
var ErrDuplicate = errors.New("product already registered")

// RegisterProductRequest is the payload for RegisterProduct.
type RegisterProductRequest struct {
	ProductID   string `json:"product_id"`
	ProductType string `json:"product_type"`
	Producer    string `json:"producer"`
	Timestamp   int64  `json:"timestamp"`
	Location    string `json:"location"`
}

// Event is a supply-chain event as returned by the registry.
type Event struct {
	EventType string `json:"event_type"`
	Timestamp int64  `json:"timestamp"`
	Location  string `json:"location"`
	Handler   string `json:"handler"`
}

// Verification is the outcome of one authenticity check.
type Verification struct {
	Timestamp       int64   `json:"timestamp"`
	Location        string  `json:"location"`
	IsAuthentic     bool    `json:"is_authentic"`
	ConfidenceScore float64 `json:"confidence_score"`
	VerificationID  string  `json:"verification_id"`
}

// Product is the full product record returned by GET /api/v1/products/:id.
type Product struct {
	ProductID             string         `json:"product_id"`
	ProductType           string         `json:"product_type"`
	Producer              string         `json:"producer"`
	RegistrationTimestamp int64          `json:"registration_timestamp"`
	RegistrationLocation  string         `json:"registration_location"`
	Events                []Event        `json:"events"`
	Verifications         []Verification `json:"verifications"`
}

// LogEntry pairs a verification with the product it was recorded against.
type LogEntry struct {
	ProductID string       `json:"product_id"`
	Result    Verification `json:"result"`
}

// Client is the provenance registry SDK entry point.
type Client struct {
	registryBase string
	httpClient   *http.Client
	adminToken   string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithAdminToken attaches the admin token to admin requests such as Checkpoint.
func WithAdminToken(token string) Option {
	return func(c *Client) error {
		c.adminToken = token
		return nil
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
// Only use this in development against a self-signed registry.
func WithInsecureSkipVerify() Option {
	return func(c *Client) error {
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
			},
			Timeout: 10 * time.Second,
		}
		return nil
	}
}

// New creates a new Client connected to registryBase.
func New(registryBase string, opts ...Option) (*Client, error) {
	if registryBase == "" {
		return nil, errors.New("registry URL is required")
	}
	c := &Client{
		registryBase: registryBase,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(registryBase string, opts ...Option) *Client {
	c, err := New(registryBase, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// RegisterProduct posts to /api/v1/products. It returns ErrDuplicate if the
// product ID is already registered.
func (c *Client) RegisterProduct(ctx context.Context, reg RegisterProductRequest) (*Product, error) {
	var p Product
	if err := c.call(ctx, http.MethodPost, "/api/v1/products", reg, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// AddEvent appends a supply-chain event to a product.
func (c *Client) AddEvent(ctx context.Context, productID string, ev Event) (*Event, error) {
	var out Event
	if err := c.call(ctx, http.MethodPost, productPath(productID)+"/events", ev, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify runs an authenticity check of imageHash against a product and
// returns the recorded result.
func (c *Client) Verify(ctx context.Context, productID, imageHash string, timestamp int64, location string) (*Verification, error) {
	reqBody := map[string]any{
		"image_hash": imageHash,
		"timestamp":  timestamp,
		"location":   location,
	}
	var v Verification
	if err := c.call(ctx, http.MethodPost, productPath(productID)+"/verifications", reqBody, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetProduct fetches a single product record.
func (c *Client) GetProduct(ctx context.Context, productID string) (*Product, error) {
	var p Product
	if err := c.call(ctx, http.MethodGet, productPath(productID), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts returns a page of products in registration order.
func (c *Client) ListProducts(ctx context.Context, limit, offset int) ([]Product, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/api/v1/products"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Products []Product `json:"products"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

// VerificationLogs returns every verification with start <= timestamp <= end,
// in the order they were recorded.
func (c *Client) VerificationLogs(ctx context.Context, start, end int64) ([]LogEntry, error) {
	q := url.Values{}
	q.Set("start", strconv.FormatInt(start, 10))
	q.Set("end", strconv.FormatInt(end, 10))

	var resp struct {
		Logs []LogEntry `json:"logs"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/verifications?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Logs, nil
}

// Checkpoint asks the registry to save a snapshot immediately.
func (c *Client) Checkpoint(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/api/v1/admin/snapshot", nil, nil)
}

func productPath(productID string) string {
	return "/api/v1/products/" + url.PathEscape(productID)
}

// call JSON-encodes reqBody (if any), sends the request, and decodes the
// response into respBody (if any).
func (c *Client) call(ctx context.Context, method, path string, reqBody, respBody any) error {
	var body io.Reader
	if reqBody != nil {
		payload, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.registryBase+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	raw, err := c.do(req)
	if err != nil {
		return err
	}
	if respBody == nil {
		return nil
	}
	if err := json.Unmarshal(raw, respBody); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do executes an HTTP request and maps error statuses onto Go errors.
func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.adminToken != "" {
		req.Header.Set("X-Admin-Token", c.adminToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, req.URL.Path)
	case resp.StatusCode == http.StatusConflict:
		return nil, fmt.Errorf("%w: %s", ErrDuplicate, string(body))
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("unauthorized: %s", string(body))
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
