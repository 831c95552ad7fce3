package freeeapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	xoauth2 "golang.org/x/oauth2"
)

// DefaultURL lists the companies the authorized user belongs to
const DefaultURL = "https://api.freee.co.jp/api/1/companies"

const maxBodyBytes = 1 << 20

// Response is the downstream answer relayed back to the browser
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Client calls one downstream endpoint on behalf of a session
type Client struct {
	url        string
	httpClient *http.Client
}

// New creates a downstream client for url
func New(url string, timeout time.Duration) (*Client, error) {
	if url == "" {
		return nil, errors.New("[freeeapi New] url is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{url: url, httpClient: &http.Client{Timeout: timeout}}, nil
}

// Fetch performs a GET with accessToken as the bearer credential.
// Any HTTP status is a successful fetch; only transport failures are errors.
func (c *Client) Fetch(ctx context.Context, accessToken string) (*Response, error) {
	ctx = context.WithValue(ctx, xoauth2.HTTPClient, c.httpClient)
	client := xoauth2.NewClient(ctx, xoauth2.StaticTokenSource(&xoauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	client.Timeout = c.httpClient.Timeout

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("[freeeapi Fetch] building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[freeeapi Fetch] calling %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("[freeeapi Fetch] reading body: %w", err)
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
