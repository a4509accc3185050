package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/roach88/mallstore/internal/gateway"
	"github.com/roach88/mallstore/internal/query"
)

// Config configures the REST client.
type Config struct {
	// URL is the REST root, e.g. http://localhost:3000 or
	// https://<project>.supabase.co/rest/v1.
	URL string
	// APIKey is sent as both apikey and bearer token.
	APIKey string
	// Rate limits outgoing requests per second. Zero disables limiting.
	Rate float64
	// Burst is the limiter burst size; defaults to 1 when Rate is set.
	Burst int
	// Timeout bounds each request. Defaults to 10s.
	Timeout time.Duration
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// Client is a gateway.Gateway over HTTP.
type Client struct {
	base    string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

var _ gateway.Gateway = (*Client)(nil)

// New creates a REST client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("postgrest URL is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid postgrest URL: %w", err)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.Rate > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), burst)
	}

	return &Client{
		base:    strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		http:    hc,
		limiter: limiter,
	}, nil
}

// Select returns matching rows.
func (c *Client) Select(ctx context.Context, q query.Select) ([]gateway.Row, error) {
	if err := query.Validate(q); err != nil {
		return nil, fmt.Errorf("select %s: %w", q.From, err)
	}

	v := url.Values{}
	ok, err := encodeFilter(v, q.Filter)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.From, err)
	}
	if !ok {
		return []gateway.Row{}, nil
	}
	if len(q.Columns) > 0 {
		v.Set("select", strings.Join(q.Columns, ","))
	}
	v.Set("order", encodeOrder(q.OrderBy))
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}

	rows, _, err := c.do(ctx, http.MethodGet, q.From, v, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.From, err)
	}
	return rows, nil
}

// Count returns the number of matching rows using an exact count.
func (c *Client) Count(ctx context.Context, q query.Count) (int64, error) {
	if err := query.Validate(q); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.From, err)
	}

	v := url.Values{}
	ok, err := encodeFilter(v, q.Filter)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", q.From, err)
	}
	if !ok {
		return 0, nil
	}
	if q.Join != nil {
		// Inner embedding drops parents with no matching child, and each
		// parent is one row in the response.
		v.Set("select", fmt.Sprintf("id,%s!inner(id)", q.Join.Table))
	} else {
		v.Set("select", "id")
	}
	v.Set("limit", "1")
	stripParentPrefix(q.From, v)

	headers := map[string]string{"Prefer": "count=exact"}
	_, resp, err := c.do(ctx, http.MethodGet, q.From, v, nil, headers)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", q.From, err)
	}
	n, err := parseContentRange(resp.Header.Get("Content-Range"))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", q.From, err)
	}
	return n, nil
}

// stripParentPrefix rewrites "parent.col" filters to "col"; PostgREST
// addresses the root table's columns unqualified.
func stripParentPrefix(parent string, v url.Values) {
	prefix := parent + "."
	for key, vals := range v {
		if strings.HasPrefix(key, prefix) {
			delete(v, key)
			for _, val := range vals {
				v.Add(strings.TrimPrefix(key, prefix), val)
			}
		}
	}
}

// Insert adds one row and returns it as stored.
func (c *Client) Insert(ctx context.Context, m query.Insert) (gateway.Row, error) {
	if err := query.Validate(m); err != nil {
		return nil, fmt.Errorf("insert %s: %w", m.Into, err)
	}

	rows, _, err := c.do(ctx, http.MethodPost, m.Into, nil, rowBody(m.Row), representation)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", m.Into, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert %s: no row returned", m.Into)
	}
	return rows[0], nil
}

// Update applies a scoped PATCH and returns the affected rows.
func (c *Client) Update(ctx context.Context, m query.Update) ([]gateway.Row, error) {
	if err := query.Validate(m); err != nil {
		return nil, fmt.Errorf("update %s: %w", m.Table, err)
	}

	v := url.Values{}
	ok, err := encodeFilter(v, m.Filter)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", m.Table, err)
	}
	if !ok {
		return []gateway.Row{}, nil
	}

	rows, _, err := c.do(ctx, http.MethodPatch, m.Table, v, rowBody(m.Set), representation)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", m.Table, err)
	}
	return rows, nil
}

// Delete applies a scoped DELETE and returns the removed rows.
func (c *Client) Delete(ctx context.Context, m query.Delete) ([]gateway.Row, error) {
	if err := query.Validate(m); err != nil {
		return nil, fmt.Errorf("delete %s: %w", m.From, err)
	}

	v := url.Values{}
	ok, err := encodeFilter(v, m.Filter)
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", m.From, err)
	}
	if !ok {
		return []gateway.Row{}, nil
	}

	rows, _, err := c.do(ctx, http.MethodDelete, m.From, v, nil, representation)
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", m.From, err)
	}
	return rows, nil
}

var representation = map[string]string{"Prefer": "return=representation"}

// do performs one request and decodes a JSON array response.
func (c *Client) do(ctx context.Context, method, table string, params url.Values, body any, headers map[string]string) ([]gateway.Row, *http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", gateway.ErrUnavailable, err)
	}

	target := c.base + "/" + url.PathEscape(table)
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", gateway.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp, fmt.Errorf("%w: read body: %v", gateway.ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp, parseAPIError(resp.StatusCode, data)
	}

	rows := []gateway.Row{}
	if len(bytes.TrimSpace(data)) == 0 {
		return rows, resp, nil
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, resp, fmt.Errorf("decode response: %w", err)
	}
	return rows, resp, nil
}
