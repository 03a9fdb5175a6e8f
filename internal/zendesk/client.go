// Package zendesk retrieves cursor-paginated resources from the Zendesk REST API.
package zendesk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	apiPrefix          = "/api/v2"
	defaultTimeout     = 2 * time.Minute
	maxErrorBodyLength = 4096
)

// Credentials identify the account every request is made as.
type Credentials struct {
	Subdomain string
	Email     string
	Token     string
}

// BaseURL returns https://{subdomain}.zendesk.com.
func (c Credentials) BaseURL() string {
	return fmt.Sprintf("https://%s.zendesk.com", c.Subdomain)
}

// Username is the basic-auth user name for API token authentication.
func (c Credentials) Username() string {
	return c.Email + "/token"
}

// Client issues authenticated GET requests against the API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	creds   Credentials
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the https://{subdomain}.zendesk.com base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.BaseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.HTTPClient = h
		}
	}
}

// WithRequestsPerSecond paces requests client-side. rps <= 0 disables pacing.
func WithRequestsPerSecond(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewClient creates a client for the account identified by creds.
func NewClient(creds Credentials, opts ...Option) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	c := &Client{
		BaseURL: creds.BaseURL(),
		HTTPClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: transport,
		},
		creds:   creds,
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResourceURL returns the list endpoint URL for resource, e.g. ".../api/v2/users".
func (c *Client) ResourceURL(resource string) string {
	return c.BaseURL + apiPrefix + "/" + resource
}

// Get sends a GET to rawURL with params merged into its query string.
// The caller must close the response body.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for request slot: %w", err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			q[k] = append([]string(nil), vs...)
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.creds.Username(), c.creds.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

// ReadBody reads and closes the response body.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close() //nolint:errcheck
	return io.ReadAll(resp.Body)
}

func truncateBody(body []byte) string {
	if len(body) > maxErrorBodyLength {
		return string(body[:maxErrorBodyLength]) + "...(truncated)"
	}
	return string(body)
}
