// Package client provides the typed HTTP SDK for the cargo-realm admin API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/internal/httputil"
	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/pkg/apierr"
	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/pkg/types"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultUserAgent     = "cargo-realm-client/1.0"
	shipmentStatusesPath = "/shipments/statuses"
)

// Query holds scoping query parameters for list fetches (for example
// scope=mine vs scope=all).
type Query map[string]string

// Encode returns the canonical query string: keys sorted, empty values
// dropped. Two queries with the same parameters encode identically, which
// is what cache keys rely on.
func (q Query) Encode() string {
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for key, value := range q {
		if strings.TrimSpace(value) == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	params := url.Values{}
	for _, key := range keys {
		params.Set(key, q[key])
	}
	return params.Encode()
}

// Config holds resource client configuration.
type Config struct {
	// TokenRefresh optionally resolves a bearer token dynamically when
	// Token is empty.
	TokenRefresh func(ctx context.Context) (string, error)
	// BaseURL is the root URL of the admin API (for example: http://localhost:27080).
	BaseURL string
	// Token is the bearer token used for API requests.
	Token string
	// UserAgent overrides the default User-Agent header.
	UserAgent string
	// Timeout is the per-request upper bound. Defaults to 30s.
	Timeout time.Duration
	// HTTPClient optionally replaces the default transport.
	HTTPClient *http.Client
}

// Client is the typed HTTP SDK for the admin API. Each method maps to one
// HTTP request; retries are the concern of higher layers.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
}

// New creates a new resource client.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("client: BaseURL is required")
	}
	baseURL = strings.TrimRight(baseURL, "/")

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	cfg.BaseURL = baseURL

	return &Client{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: httpClient,
	}, nil
}

// List fetches the resource collection for a kind, scoped by query.
func (c *Client) List(ctx context.Context, kind types.Kind, query Query) ([]types.Resource, error) {
	path := "/" + kind.Collection()
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var envelope types.EnvelopeList
	if err := c.do(ctx, http.MethodGet, path, nil, &envelope); err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind.Collection(), err)
	}

	resources := make([]types.Resource, 0, len(envelope.Items))
	for _, item := range envelope.Items {
		resources = append(resources, types.FromEnvelope(kind, item))
	}
	return resources, nil
}

// Get fetches a single resource by ID.
func (c *Client) Get(ctx context.Context, kind types.Kind, id string) (types.Resource, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return types.Resource{}, fmt.Errorf("%s id is required", kind)
	}

	var envelope types.Envelope
	path := fmt.Sprintf("/%s/%s", kind.Collection(), url.PathEscape(id))
	if err := c.do(ctx, http.MethodGet, path, nil, &envelope); err != nil {
		return types.Resource{}, fmt.Errorf("getting %s %q: %w", kind, id, err)
	}
	return types.FromEnvelope(kind, envelope), nil
}

// Create submits a new resource with the kind-specific payload.
func (c *Client) Create(ctx context.Context, kind types.Kind, payload types.Payload) (types.Resource, error) {
	var envelope types.Envelope
	path := "/" + kind.Collection()
	if err := c.do(ctx, http.MethodPost, path, payload, &envelope); err != nil {
		return types.Resource{}, fmt.Errorf("creating %s: %w", kind, err)
	}
	return types.FromEnvelope(kind, envelope), nil
}

// Update applies a full or partial update to an existing resource.
func (c *Client) Update(ctx context.Context, kind types.Kind, id string, patch types.Payload) (types.Resource, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return types.Resource{}, fmt.Errorf("%s id is required", kind)
	}

	var envelope types.Envelope
	path := fmt.Sprintf("/%s/%s", kind.Collection(), url.PathEscape(id))
	if err := c.do(ctx, http.MethodPut, path, patch, &envelope); err != nil {
		return types.Resource{}, fmt.Errorf("updating %s %q: %w", kind, id, err)
	}
	return types.FromEnvelope(kind, envelope), nil
}

// Remove deletes a resource by ID.
func (c *Client) Remove(ctx context.Context, kind types.Kind, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%s id is required", kind)
	}

	path := fmt.Sprintf("/%s/%s", kind.Collection(), url.PathEscape(id))
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("deleting %s %q: %w", kind, id, err)
	}
	return nil
}

// Transition sets a resource's status via the status quick action.
func (c *Client) Transition(ctx context.Context, kind types.Kind, id string, newStatus types.Status) (types.Resource, error) {
	return c.Action(ctx, kind, id, "status", types.Payload{"status": string(newStatus)})
}

// Action invokes a named status/action transition (reschedule, cancel,
// subscribe, ...) on a resource.
func (c *Client) Action(ctx context.Context, kind types.Kind, id, action string, body types.Payload) (types.Resource, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return types.Resource{}, fmt.Errorf("%s id is required", kind)
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return types.Resource{}, fmt.Errorf("action name is required")
	}

	var envelope types.Envelope
	path := fmt.Sprintf("/%s/%s/%s", kind.Collection(), url.PathEscape(id), url.PathEscape(action))
	if err := c.do(ctx, http.MethodPatch, path, body, &envelope); err != nil {
		return types.Resource{}, fmt.Errorf("applying %s to %s %q: %w", action, kind, id, err)
	}
	return types.FromEnvelope(kind, envelope), nil
}

// ShipmentStatuses fetches the backend-defined shipment status ordering.
func (c *Client) ShipmentStatuses(ctx context.Context) ([]types.Status, error) {
	var response types.StatusListResponse
	if err := c.do(ctx, http.MethodGet, shipmentStatusesPath, nil, &response); err != nil {
		return nil, fmt.Errorf("listing shipment statuses: %w", err)
	}
	return response.Statuses, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	userAgent := strings.TrimSpace(c.cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)

	token, err := c.resolveToken(ctx)
	if err != nil {
		return fmt.Errorf("resolving bearer token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apierr.Unreachable(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return apierr.Unreachable(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apierr.FromResponse(resp.StatusCode, httputil.ParseProblemDetail(data, resp.StatusCode))
	}

	if result == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

func (c *Client) resolveToken(ctx context.Context) (string, error) {
	if token := strings.TrimSpace(c.cfg.Token); token != "" {
		return token, nil
	}
	if c.cfg.TokenRefresh == nil {
		return "", nil
	}
	return c.cfg.TokenRefresh(ctx)
}
