// Package chat is the client for the portfolio chat backend.
//
// The backend takes one question and returns one answer:
//
//	POST /chat {"userMessage": "What are Tanishk's skills?"}
//	200        {"response": "..."}
//
// There is no history, no retry and no streaming. Every call is a single
// attempt bounded by the caller's context.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-callbot/internal/httpc"
)

// DefaultURL is the local backend endpoint.
const DefaultURL = "http://localhost:1601/chat"

// maxErrorBody caps how much of a failed response body is kept in APIError.
const maxErrorBody = 512

// Replier answers a single user message.
type Replier interface {
	Ask(ctx context.Context, userMessage string) (string, error)
}

// Request is the JSON body sent to the backend.
type Request struct {
	UserMessage string `json:"userMessage"`
}

// Response is the JSON body returned by the backend.
type Response struct {
	Response string `json:"response"`
}

// Client talks to the chat backend over HTTP.
type Client struct {
	url    string
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithTimeout sets the overall request timeout on a fresh client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.http = httpc.NewClient(d)
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// New creates a client for url. An empty url means DefaultURL.
func New(url string, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		url:    url,
		http:   httpc.Client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "chat")
	return c
}

// URL returns the endpoint this client posts to.
func (c *Client) URL() string {
	return c.url
}

// Ask posts userMessage and returns the backend's response text.
func (c *Client) Ask(ctx context.Context, userMessage string) (string, error) {
	start := time.Now()

	body, err := json.Marshal(Request{UserMessage: userMessage})
	if err != nil {
		return "", fmt.Errorf("chat: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("chat: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("chat: decode response: %w", err)
	}
	if strings.TrimSpace(out.Response) == "" {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("reply received",
		"chars", len(out.Response),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return out.Response, nil
}

// Verify Client implements Replier at compile time.
var _ Replier = (*Client)(nil)
