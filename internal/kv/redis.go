package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Redis talks to a Redis instance over its REST bridge (Upstash-style):
// GET {base}/get/{key} and POST {base}/set/{key} with the value as the
// request body, authenticated with a bearer token.
type Redis struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Compile-time check: *Redis satisfies Store.
var _ Store = (*Redis)(nil)

// NewRedis creates a Redis REST client for the given base URL and token.
func NewRedis(baseURL, token string) *Redis {
	return &Redis{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// restResult is the REST bridge's response envelope. The result is null for
// a missing key, the stored string for GET, and "OK" for SET.
type restResult struct {
	Result *string `json:"result"`
	Error  string  `json:"error"`
}

func (r *Redis) do(ctx context.Context, method, path string, body io.Reader) (*restResult, error) {
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("redis: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.token)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("redis: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("redis: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("redis: %s %s returned %d: %s", method, path, resp.StatusCode, raw)
	}

	var result restResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("redis: decode response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("redis: %s %s: %s", method, path, result.Error)
	}
	return &result, nil
}

// Get fetches the value stored under key. A null result means the key does
// not exist.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	result, err := r.do(ctx, http.MethodGet, "/get/"+url.PathEscape(key), nil)
	if err != nil {
		return "", false, err
	}
	if result.Result == nil {
		return "", false, nil
	}
	return *result.Result, true, nil
}

// Set stores value under key.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	result, err := r.do(ctx, http.MethodPost, "/set/"+url.PathEscape(key), strings.NewReader(value))
	if err != nil {
		return err
	}
	if result.Result == nil || *result.Result != "OK" {
		return fmt.Errorf("redis: set %s: unexpected result %v", key, result.Result)
	}
	return nil
}
