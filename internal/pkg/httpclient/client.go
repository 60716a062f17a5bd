package httpclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client wraps resty for JSON calls to merchant services.
// Reads go through a retrying client; mutations are sent exactly once.
type Client struct {
	r      *resty.Client
	single *resty.Client
}

// New creates a new HTTP client with sensible defaults.
func New() *Client {
	r := resty.New().
		SetTimeout(30*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Accept", "application/json")
	single := resty.New().
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json")

	return &Client{r: r, single: single}
}

// WithTimeout sets a custom timeout. Non-positive values keep the default.
func (c *Client) WithTimeout(d time.Duration) *Client {
	if d > 0 {
		c.r.SetTimeout(d)
		c.single.SetTimeout(d)
	}
	return c
}

// WithBearerToken sets a bearer token for authentication.
func (c *Client) WithBearerToken(token string) *Client {
	c.r.SetAuthToken(token)
	c.single.SetAuthToken(token)
	return c
}

// WithHeader sets a custom header.
func (c *Client) WithHeader(key, value string) *Client {
	c.r.SetHeader(key, value)
	c.single.SetHeader(key, value)
	return c
}

// WithRetryCount overrides the number of retries for GET requests.
func (c *Client) WithRetryCount(n int) *Client {
	c.r.SetRetryCount(n)
	return c
}

// Response is the status and raw body of a completed call.
type Response struct {
	StatusCode int
	Body       []byte
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// GetJSON sends a GET request and decodes a 2xx body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out interface{}) (*Response, error) {
	return c.Do(ctx, resty.MethodGet, url, nil, out)
}

// PostJSON sends a POST request with a JSON body and decodes a 2xx body into out.
func (c *Client) PostJSON(ctx context.Context, url string, body, out interface{}) (*Response, error) {
	return c.Do(ctx, resty.MethodPost, url, body, out)
}

// Do executes a request. Transport errors are returned as errors; HTTP error
// statuses are returned in the Response for the caller to interpret.
func (c *Client) Do(ctx context.Context, method, url string, body, out interface{}) (*Response, error) {
	rc := c.r
	if method != resty.MethodGet {
		rc = c.single
	}
	req := rc.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, url, err)
	}
	return &Response{StatusCode: resp.StatusCode(), Body: resp.Body()}, nil
}
