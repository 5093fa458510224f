// Package geomet is a client for the MSC GeoMet OGC API collections service
// (api.weather.gc.ca): count probing, queryable-property validation, paged
// item retrieval and the incremental group-complete flush used by long bulk
// downloads.
package geomet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

// DefaultBaseURL is the production GeoMet endpoint.
const DefaultBaseURL = "https://api.weather.gc.ca"

var (
	// ErrTimeout marks a request that timed out at the transport level.
	// Timeouts are fatal to an acquisition: the remote side may be in an
	// indeterminate state for the current offset, so the engine never
	// retries them silently.
	ErrTimeout = errors.New("request timed out")

	errCircuitOpen = errors.New("circuit breaker open")
)

// StatusError is a non-2xx response. The acquisition engine treats it as
// transient and retries with backoff.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// ClientConfig bundles the HTTP client and endpoint settings.
type ClientConfig struct {
	// BaseURL of the service; DefaultBaseURL when empty.
	BaseURL string
	// HTTPClient used for all requests. When nil a client with Timeout
	// is built.
	HTTPClient *http.Client
	// Timeout for the default client. Zero means 100 seconds, the
	// read timeout used for bulk pulls.
	Timeout time.Duration
}

// Client talks to one GeoMet-style collections service. All outbound calls
// go through a shared circuit breaker so a misbehaving remote is not
// hammered by the retry loop.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewClient builds a Client from cfg.
func NewClient(cfg ClientConfig) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 100 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "geomet",
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &Client{baseURL: base, http: hc, breaker: cb}
}

// itemsURL returns the items endpoint for a collection.
func (c *Client) itemsURL(collection string) string {
	return c.baseURL + "/collections/" + collection + "/items"
}

// queryablesURL returns the queryables metadata endpoint for a collection.
func (c *Client) queryablesURL(collection string) string {
	return c.baseURL + "/collections/" + collection + "/queryables"
}

// get performs one GET through the circuit breaker and returns the response
// body. Errors are classified for the caller: ErrTimeout for transport
// timeouts, *StatusError for non-2xx responses, errCircuitOpen when the
// breaker refuses the call.
func (c *Client) get(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, execErr := c.http.Do(req)
		if execErr != nil {
			if isTimeout(execErr) {
				return nil, fmt.Errorf("%w: %v", ErrTimeout, execErr)
			}
			return nil, execErr
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			if isTimeout(readErr) {
				return nil, fmt.Errorf("%w: %v", ErrTimeout, readErr)
			}
			return nil, readErr
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, err
	}
	return result.([]byte), nil
}

// isTimeout reports whether err is a transport-level timeout.
func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// isTransient reports whether a page fetch failure may be retried: non-2xx
// statuses and a refusing circuit breaker. Timeouts and everything else are
// fatal.
func isTransient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return true
	}
	return errors.Is(err, errCircuitOpen)
}

// cloneValues copies params so probes never mutate the caller's descriptor.
func cloneValues(params url.Values) url.Values {
	out := make(url.Values, len(params))
	for k, vs := range params {
		cp := make([]string, len(vs))
		copy(cp, vs)
		out[k] = cp
	}
	return out
}
