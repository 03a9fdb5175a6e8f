package zendesk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"zenexport/internal/clock"
	"zenexport/internal/domain"
	"zenexport/internal/logging"
)

// Default waits applied by RetryPolicy.
const (
	DefaultRateLimitBackoff = 60 * time.Second
	DefaultErrorBackoff     = 300 * time.Second
)

// Retry reasons reported to an Observer.
const (
	RetryReasonRateLimited = "rate_limited"
	RetryReasonError       = "error"
)

// RetryPolicy controls how the fetcher waits out failed requests.
type RetryPolicy struct {
	// RateLimitBackoff is the wait after a 429 without a usable Retry-After.
	RateLimitBackoff time.Duration
	// ErrorBackoff is the wait after any other failure.
	ErrorBackoff time.Duration
	// MaxRetries caps consecutive error retries for one request. 0 retries forever.
	MaxRetries int
}

// DefaultRetryPolicy waits 60s on rate limiting, 300s on errors, and never gives up.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		RateLimitBackoff: DefaultRateLimitBackoff,
		ErrorBackoff:     DefaultErrorBackoff,
	}
}

// Observer receives request outcomes, e.g. for metrics.
type Observer interface {
	ObserveRequest(resource string, status int)
	ObserveRetry(resource, reason string)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, int) {}
func (nopObserver) ObserveRetry(string, string) {}

// Fetcher walks cursor-paginated list endpoints to completion.
type Fetcher struct {
	client   *Client
	policy   RetryPolicy
	sleeper  clock.Sleeper
	logger   *slog.Logger
	observer Observer
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithSleeper replaces the real-time sleeper used for backoff waits.
func WithSleeper(s clock.Sleeper) FetcherOption {
	return func(f *Fetcher) { f.sleeper = s }
}

// WithLogger sets the logger used when the context carries none.
func WithLogger(l *slog.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = l }
}

// WithObserver reports request outcomes to o.
func WithObserver(o Observer) FetcherOption {
	return func(f *Fetcher) {
		if o != nil {
			f.observer = o
		}
	}
}

// NewFetcher creates a Fetcher issuing requests through client.
func NewFetcher(client *Client, policy RetryPolicy, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:   client,
		policy:   policy,
		sleeper:  clock.Real{},
		logger:   slog.Default(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll requests rawURL with params and follows after_cursor until the API
// reports no more pages, returning the elements of every page's resourceKey
// array in page order. params is not modified.
//
// Rate limiting and server errors are waited out according to the retry
// policy. A 200 response without the resourceKey array is fatal and yields
// a *domain.MissingFieldError.
func (f *Fetcher) FetchAll(ctx context.Context, resourceKey, rawURL string, params url.Values) ([]json.RawMessage, error) {
	logger := logging.FromContext(ctx, f.logger)
	query := cloneValues(params)

	var records []json.RawMessage
	for page := 1; rawURL != ""; page++ {
		body, err := f.getOK(ctx, logger, resourceKey, rawURL, query)
		if err != nil {
			return nil, err
		}
		items, meta, err := decodePage(body, resourceKey, rawURL)
		if err != nil {
			return nil, err
		}
		records = append(records, items...)
		logger.Debug("fetched page", "resource", resourceKey, "page", page, "items", len(items))

		if cursor, more := meta.NextCursor(); more {
			query.Set(domain.PageAfterParam, cursor)
			continue
		}
		if meta != nil && meta.HasMore {
			logger.Warn("API reported more pages without a cursor, stopping", "resource", resourceKey)
		}
		rawURL = ""
	}
	return records, nil
}

// getOK returns the body of a 200 response for the request, retrying as the
// policy dictates. A 429 is waited out once and retried once; whatever that
// retry returns goes through the generic error path.
func (f *Fetcher) getOK(ctx context.Context, logger *slog.Logger, resource, rawURL string, params url.Values) ([]byte, error) {
	failures := 0
	for {
		res, err := f.do(ctx, resource, rawURL, params)
		if err == nil && res.status == http.StatusTooManyRequests {
			wait := retryAfter(res.header, f.policy.RateLimitBackoff)
			logger.Warn(fmt.Sprintf("Error: Rate limited! Will restart in %s.", domain.FormatSeconds(wait)), "resource", resource)
			f.observer.ObserveRetry(resource, RetryReasonRateLimited)
			if err := f.sleeper.Sleep(ctx, wait); err != nil {
				return nil, err
			}
			res, err = f.do(ctx, resource, rawURL, params)
		}
		if err == nil && res.status == http.StatusOK {
			return res.body, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		cause := err
		if cause == nil {
			cause = &domain.APIError{HTTPStatus: res.status, URL: rawURL, Body: truncateBody(res.body)}
		}
		failures++
		if f.policy.MaxRetries > 0 && failures > f.policy.MaxRetries {
			return nil, fmt.Errorf("fetch %s: %w after %d attempts: %w", resource, domain.ErrRetriesExhausted, failures, cause)
		}

		logger.Warn(fmt.Sprintf("Error: %v. Trying again in %s...", cause, domain.FormatSeconds(f.policy.ErrorBackoff)),
			"resource", resource,
			"attempt", failures,
		)
		f.observer.ObserveRetry(resource, RetryReasonError)
		if err := f.sleeper.Sleep(ctx, f.policy.ErrorBackoff); err != nil {
			return nil, err
		}
	}
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (f *Fetcher) do(ctx context.Context, resource, rawURL string, params url.Values) (response, error) {
	resp, err := f.client.Get(ctx, rawURL, params)
	if err != nil {
		f.observer.ObserveRequest(resource, 0)
		return response{}, err
	}
	f.observer.ObserveRequest(resource, resp.StatusCode)
	body, err := ReadBody(resp)
	if err != nil {
		return response{}, fmt.Errorf("read response body: %w", err)
	}
	return response{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

// retryAfter returns the Retry-After header in seconds, or fallback when the
// header is absent or not a non-negative integer.
func retryAfter(h http.Header, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}

func decodePage(body []byte, resourceKey, rawURL string) ([]json.RawMessage, *domain.PageMeta, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode %s page: %w", resourceKey, err)
	}

	rawList, ok := doc[resourceKey]
	if !ok {
		return nil, nil, &domain.MissingFieldError{Field: resourceKey, URL: rawURL, Reason: "absent"}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(rawList, &items); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, nil, &domain.MissingFieldError{Field: resourceKey, URL: rawURL, Reason: "not an array"}
		}
		return nil, nil, fmt.Errorf("decode %s page: %w", resourceKey, err)
	}

	var meta *domain.PageMeta
	if rawMeta, ok := doc["meta"]; ok && string(rawMeta) != "null" {
		meta = &domain.PageMeta{}
		if err := json.Unmarshal(rawMeta, meta); err != nil {
			return nil, nil, fmt.Errorf("decode %s page meta: %w", resourceKey, err)
		}
	}
	return items, meta, nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
