package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// Client wraps outbound calls to payment processors with a bounded timeout
// and a circuit breaker. Processor APIs are blocking network calls; when one
// starts failing we fail fast instead of holding callback workers.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// New creates a processor HTTP client. The breaker is named after the
// processor so trips are attributable in logs.
func New(name string, timeout time.Duration) *Client {
	settings := gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// PostJSON sends a JSON body and returns the raw response bytes.
func (c *Client) PostJSON(ctx context.Context, endpoint string, body interface{}, headers map[string]string) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	return c.do(ctx, endpoint, bytes.NewReader(payload), func(req *http.Request) {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	})
}

// PostForm sends form-encoded fields and returns the raw response bytes.
func (c *Client) PostForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	return c.do(ctx, endpoint, strings.NewReader(form.Encode()), func(req *http.Request) {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	})
}

func (c *Client) do(ctx context.Context, endpoint string, body io.Reader, decorate func(*http.Request)) ([]byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		decorate(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to call processor API: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("processor API returned status %d", resp.StatusCode)
		}

		return respBody, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}
