// Package client is a typed HTTP client for the chat API.
package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	hclient "github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/goccy/go-json"
)

// Doer sends one HTTP exchange; the hertz *client.Client satisfies it.
type Doer interface {
	Do(ctx context.Context, req *protocol.Request, resp *protocol.Response) error
}

// Client calls the chat API on behalf of one bearer token
type Client struct {
	baseURL string
	doer    Doer
	token   string
}

// ClientOption is a function to configure the client
type ClientOption func(*Client)

// WithDoer replaces the HTTP transport
func WithDoer(doer Doer) ClientOption {
	return func(c *Client) {
		c.doer = doer
	}
}

// WithToken sets the authentication token
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// NewClient creates a client for baseURL, e.g. http://localhost:8080
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	c := &Client{baseURL: baseURL}
	for _, opt := range opts {
		opt(c)
	}
	if c.doer != nil {
		return c, nil
	}

	httpClient, err := hclient.NewClient(
		hclient.WithDialTimeout(10*time.Second),
		hclient.WithClientReadTimeout(30*time.Second),
		hclient.WithWriteTimeout(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}
	c.doer = httpClient
	return c, nil
}

// MustNewClient creates a new client and panics on error
func MustNewClient(baseURL string, opts ...ClientOption) *Client {
	c, err := NewClient(baseURL, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// WithUser returns a copy of c authenticated as another token
func (c *Client) WithUser(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Token returns the current token
func (c *Client) Token() string {
	return c.token
}

// envelope is the standard API response
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data,omitempty"`
}

// do performs one call; query may be nil, body is sent as JSON when not nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, result any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req := &protocol.Request{}
	resp := &protocol.Response{}
	req.SetMethod(method)
	req.SetRequestURI(reqURL)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		req.Header.SetContentTypeBytes([]byte(consts.MIMEApplicationJSON))
		req.SetBody(data)
	}

	if err := c.doer.Do(ctx, req, resp); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode(), err)
	}
	if env.Code != 0 {
		return apiError(resp.StatusCode(), env.Code, env.Msg)
	}
	if result == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, result); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	return c.do(ctx, consts.MethodGet, path, query, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	if body == nil {
		body = struct{}{}
	}
	return c.do(ctx, consts.MethodPost, path, nil, body, result)
}

func (c *Client) put(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, consts.MethodPut, path, nil, body, result)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, consts.MethodDelete, path, nil, nil, nil)
}
