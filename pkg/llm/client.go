// Package llm provides an OpenAI-compatible chat completions client for
// UIForge. It performs a single generation attempt per call; retry and
// circuit-breaking policy live with the caller.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// DefaultTimeout is the per-attempt request timeout.
	DefaultTimeout = 60 * time.Second

	// UserAgent identifies UIForge to the upstream API.
	UserAgent = "UIForge/1.0"

	// defaultTemperature and defaultMaxTokens mirror the generation tuning
	// the component prompt was written for.
	defaultTemperature = 0.7
	defaultMaxTokens   = 2000
)

// systemPrompt directs the model to emit a self-contained React component.
const systemPrompt = `You are an expert React and Tailwind CSS developer. Generate clean, production-ready React components.

Rules:
1. Use functional components with hooks
2. Use Tailwind CSS for all styling
3. Include ONLY React imports (import React from "react")
4. Make components responsive
5. Code should be copy-paste ready
6. Return ONLY the React component code, no markdown code blocks
7. Include necessary state management with useState/useEffect if needed
8. Keep components simple and self-contained`

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("llm: API key not configured")

// APIError is a non-2xx response from the upstream API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("llm: upstream returned %d (%s): %s", e.StatusCode, e.Type, e.Message)
}

// Retriable reports whether the status indicates a transient upstream
// condition worth retrying: timeouts, rate limits and server errors.
func (e *APIError) Retriable() bool {
	return e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500
}

// TransportError is a network-level failure before any API response.
type TransportError struct {
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("llm: transport error: %v", e.Err)
}

// Unwrap returns the underlying error for errors.Is and errors.As compatibility.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRetriable reports whether the error is a transient fault
// (transport failure, timeout, upstream rate limit or server error).
func IsRetriable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retriable()
	}
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// Config carries the client configuration.
type Config struct {
	BaseURL  string
	APIKey   string
	Model    string
	ProxyURL string // optional SOCKS5 proxy, e.g. socks5://127.0.0.1:1080
	Timeout  time.Duration
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a generation client. A missing API key is not an error at
// construction time: the service starts degraded and reports unconfigured in
// health, failing generation calls with ErrNotConfigured.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if cfg.ProxyURL != "" {
		dialer, err := buildProxyDialer(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("llm: invalid proxy URL: %w", err)
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
	}, nil
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// Result is the artifact produced by one generation call.
type Result struct {
	Code        string
	Explanation string
}

// chat completions wire types
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// GenerateComponent produces React component code for the prompt.
// The returned code has surrounding markdown fences stripped.
func (c *Client) GenerateComponent(ctx context.Context, requestID, prompt string) (*Result, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Create a React component with Tailwind CSS for: %s", prompt)},
		},
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: failed to encode request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var parsed errorResponse
		if jsonErr := json.Unmarshal(respBody, &parsed); jsonErr == nil {
			apiErr.Type = parsed.Error.Type
			apiErr.Message = parsed.Error.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return nil, apiErr
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("llm: failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("llm: response contained no choices")
	}

	code := StripCodeFences(strings.TrimSpace(parsed.Choices[0].Message.Content))

	return &Result{
		Code:        code,
		Explanation: fmt.Sprintf("Generated React component based on: %s", prompt),
	}, nil
}

// StripCodeFences removes a surrounding markdown code block, if present,
// from model output that ignored the no-fences instruction.
func StripCodeFences(code string) string {
	if !strings.HasPrefix(code, "```") {
		return code
	}

	lines := strings.Split(code, "\n")
	lines = lines[1:] // drop the opening fence (``` or ```jsx)
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// buildProxyDialer creates a SOCKS5 dialer from the proxy URL.
func buildProxyDialer(proxyURL string) (proxy.Dialer, error) {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "socks5" {
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}

	var auth *proxy.Auth
	if u.User != nil {
		password, _ := u.User.Password()
		auth = &proxy.Auth{
			User:     u.User.Username(),
			Password: password,
		}
	}

	return proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
}
