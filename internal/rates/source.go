package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eapache/go-resiliency/retrier"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"valutahub/internal/errs"
)

// Source is one external rate provider. Fetch returns the full set of
// FROM_TO quotes for the source's configured universe, or fails as a whole;
// a partial result is never returned.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (map[string]decimal.Decimal, error)
}

// client is the shared HTTP plumbing for the provider variants: base URL,
// per-request timeout, a request rate limiter and a retrier for transient
// failures.
type client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	retry       *retrier.Retrier
	timeout     time.Duration
}

func newClient(rawBaseURL string, timeout time.Duration) (*client, error) {
	// Relative paths resolve against the last slash, so the base must end
	// with one or its final segment is lost.
	if !strings.HasSuffix(rawBaseURL, "/") {
		rawBaseURL += "/"
	}
	base, err := url.Parse(rawBaseURL)
	if err != nil {
		return nil, err
	}
	return &client{
		baseURL:     base,
		httpClient:  &http.Client{},
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 10),
		retry:       retrier.New(retrier.ExponentialBackoff(3, 200*time.Millisecond), nil),
		timeout:     timeout,
	}, nil
}

// getJSON performs a GET against path with query params and decodes the JSON
// body into dest. Non-2xx statuses and transport errors surface as errors;
// the retrier replays transient failures before giving up.
func (c *client) getJSON(ctx context.Context, path string, query url.Values, dest any) error {
	u, err := c.baseURL.Parse(path)
	if err != nil {
		return err
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}
	return c.retry.RunCtx(ctx, func(ctx context.Context) error {
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("provider is rate limiting requests")
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil && err != io.EOF {
			return err
		}
		return nil
	})
}

var errEmptyResponse = errors.New("provider returned no usable quotes")

func sourceErr(name string, err error) error {
	return errs.SourceUnavailable(fmt.Sprintf("%s: %v", name, err), err)
}
