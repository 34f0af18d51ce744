package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// StatusError is returned for non-2xx HTTP responses. It is classified by
// its code, never by the body text.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("http %d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

// StatusCode implements domain.StatusCoder.
func (e *StatusError) StatusCode() int { return e.Code }

// HTTPClient is a pooled HTTP resource bound to one base URL.
type HTTPClient struct {
	name       string
	baseURL    string
	healthPath string
	httpClient *http.Client
}

// NewHTTPClient creates an HTTP resource for ep.
func NewHTTPClient(ep Endpoint) *HTTPClient {
	timeout := ep.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	healthPath := ep.HealthPath
	if healthPath == "" {
		healthPath = "/"
	}
	return &HTTPClient{
		name:       ep.Name,
		baseURL:    strings.TrimRight(ep.URL, "/"),
		healthPath: healthPath,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Name returns the endpoint name.
func (c *HTTPClient) Name() string { return c.name }

// BaseURL returns the URL requests are resolved against.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

// Do sends req with the pooled client.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// Get fetches path relative to the base URL and returns the body of a 2xx
// response.
func (c *HTTPClient) Get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(snippet)}
	}
	return body, nil
}

// Ping requests the health path and expects a 2xx response.
func (c *HTTPClient) Ping(ctx context.Context) error {
	_, err := c.Get(ctx, c.healthPath)
	return err
}

// Close releases idle keep-alive connections.
func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
