package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kindredhq/kindred-engine/pkg/retry"
)

// DefaultRequestTimeout bounds a single provider API request.
const DefaultRequestTimeout = 15 * time.Second

// maxErrorBodyLength caps how much of an error response body is carried in
// the error message.
const maxErrorBodyLength = 256

// HTTPError is a non-2xx response from a provider API.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// IsRetryable treats rate limiting and server-side failures as transient.
func (e *HTTPError) IsRetryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// IsHTTPStatus reports whether err is an HTTPError with the given status.
func IsHTTPStatus(err error, status int) bool {
	httpErr, ok := err.(*HTTPError)
	return ok && httpErr.Status == status
}

// RESTClient is the shared HTTP plumbing for REST-based adapters. Each
// adapter owns one client; authorization is injected per provider (bearer
// token, basic auth, or vendor header).
type RESTClient struct {
	BaseURL   string
	Timeout   time.Duration
	Retry     *retry.Config
	Authorize func(req *http.Request)

	httpClient *http.Client
}

// NewRESTClient creates a client for baseURL. A zero timeout uses
// DefaultRequestTimeout; a nil retry config uses retry defaults.
func NewRESTClient(baseURL string, timeout time.Duration, authorize func(req *http.Request)) *RESTClient {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &RESTClient{
		BaseURL:    baseURL,
		Timeout:    timeout,
		Retry:      retry.DefaultConfig(),
		Authorize:  authorize,
		httpClient: &http.Client{},
	}
}

// DoJSON performs a JSON request against path (joined to BaseURL) and
// decodes the response into out when out is non-nil. Transient failures are
// retried with backoff; each attempt carries its own request-level timeout.
// Non-2xx responses come back as *HTTPError.
func (c *RESTClient) DoJSON(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	return retry.DoIfRetryable(ctx, c.Retry, func() error {
		return c.doOnce(ctx, method, path, payload, out)
	})
}

func (c *RESTClient) doOnce(ctx context.Context, method, path string, payload []byte, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Authorize != nil {
		c.Authorize(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyText, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLength))
		return &HTTPError{Status: resp.StatusCode, Body: string(bodyText)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
