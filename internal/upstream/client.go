// Package upstream is the HTTP core shared by the scheduling API clients:
// bearer auth, timeouts, JSON bodies, metrics and read-through caching.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"bookproxy/internal/domain"
	"bookproxy/internal/metrics"

	"github.com/rs/zerolog"
)

// maxBodyBytes caps how much of an upstream response is read.
const maxBodyBytes = 1 << 20

// Response is a raw upstream reply. Callers decide how to interpret
// non-2xx statuses.
type Response struct {
	StatusCode int
	Body       []byte
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// StatusError reports a non-2xx reply to a read call.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: http %d", e.Operation, e.StatusCode)
}

type Options struct {
	Provider string
	BaseURL  string
	Token    string
	Timeout  time.Duration
	Headers  map[string]string

	HTTPClient *http.Client
	Cache      domain.Cache
	CacheTTL   time.Duration
	Logger     *zerolog.Logger
}

// Client talks to one scheduling API.
type Client struct {
	provider   string
	baseURL    string
	token      string
	headers    map[string]string
	httpClient *http.Client

	cache    domain.Cache
	cacheTTL time.Duration
	logger   *zerolog.Logger
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		provider:   opts.Provider,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      opts.Token,
		headers:    opts.Headers,
		httpClient: httpClient,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		logger:     logger,
	}
}

// Configured reports whether a token is available.
func (c *Client) Configured() bool {
	return c.token != ""
}

// Get performs an authorized GET against path.
func (c *Client) Get(ctx context.Context, operation, path string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req, operation)
}

// PostJSON performs an authorized POST of body encoded as JSON.
func (c *Client) PostJSON(ctx context.Context, operation, path string, body any) (*Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", operation, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, operation)
}

// GetJSON performs a cached GET and decodes a 2xx body into out. Non-2xx
// replies yield *StatusError and are never cached.
func (c *Client) GetJSON(ctx context.Context, operation, path, cacheKey string, out any) error {
	if c.readCache(ctx, cacheKey, out) {
		return nil
	}

	resp, err := c.Get(ctx, operation, path)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &StatusError{Operation: operation, StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}
	if err := decodeFresh(resp.Body, out); err != nil {
		return fmt.Errorf("decode %s: %w", operation, err)
	}

	c.writeCache(ctx, cacheKey, resp.Body)
	return nil
}

func (c *Client) do(req *http.Request, operation string) (*Response, error) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveUpstream(c.provider, operation, 0, time.Since(start))
		return nil, fmt.Errorf("%s %s: %w", c.provider, operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	metrics.ObserveUpstream(c.provider, operation, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", c.provider, operation, err)
	}

	c.logger.Debug().
		Str("operation", operation).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("upstream call")

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.cache == nil || c.cacheTTL <= 0 || key == "" {
		return false
	}
	val, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return false
	}
	if !ok {
		return false
	}
	if err := decodeFresh(val, out); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cached value undecodable, refetching")
		return false
	}
	return true
}

// decodeFresh unmarshals into a zero value of out's element type and only
// assigns it to *out on success, so a failed decode leaves out untouched.
func decodeFresh(data []byte, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return json.Unmarshal(data, out)
	}
	fresh := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal(data, fresh.Interface()); err != nil {
		return err
	}
	rv.Elem().Set(fresh.Elem())
	return nil
}

func (c *Client) writeCache(ctx context.Context, key string, val []byte) {
	if c.cache == nil || c.cacheTTL <= 0 || key == "" {
		return
	}
	if err := c.cache.Set(ctx, key, val, c.cacheTTL); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
