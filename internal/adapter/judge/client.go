// Package judge is the reasoning-engine adapter: an Anthropic-style
// messages client plus the two oracle roles built on it, the finding
// provider and the text-classification judge.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/reviewloop/autorev/internal/adapter/httpx"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultTimeout   = 120 * time.Second
	anthropicVersion = "2023-06-01"
	serviceName      = "anthropic"
)

// Client is an HTTP client for the Anthropic Messages API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	retryConf  httpx.RetryConfig
	logger     httpx.Logger
}

// NewClient creates a messages client for the supplied model.
func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		retryConf:  httpx.DefaultRetryConfig(),
	}
}

// SetBaseURL sets a custom base URL (for testing).
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// SetTimeout sets the HTTP timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// SetRetryConfig overrides the retry behavior.
func (c *Client) SetRetryConfig(conf httpx.RetryConfig) {
	c.retryConf = conf
}

// SetLogger wires structured request/response logging.
func (c *Client) SetLogger(logger httpx.Logger) {
	c.logger = logger
}

// Messages API types.

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one user prompt and returns the concatenated text blocks
// of the response.
func (c *Client) Complete(ctx context.Context, operation, system, prompt string, maxTokens int) (string, error) {
	reqBody := messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []message{{Role: "user", Content: prompt}},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var result string
	err = httpx.RetryWithBackoff(ctx, func(ctx context.Context) error {
		text, err := c.doRequest(ctx, operation, bodyBytes)
		if err != nil {
			return err
		}
		result = text
		return nil
	}, c.retryConf)
	if err != nil {
		return "", err
	}
	return result, nil
}

func (c *Client) doRequest(ctx context.Context, operation string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", &httpx.Error{Type: httpx.ErrTypeUnknown, Message: err.Error(), Service: serviceName}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	start := time.Now()
	if c.logger != nil {
		c.logger.LogRequest(ctx, httpx.RequestLog{
			Service:     serviceName,
			Operation:   operation,
			Timestamp:   start,
			PayloadSize: len(body),
			Credential:  c.apiKey,
		})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		httpErr := &httpx.Error{Type: httpx.ErrTypeTimeout, Message: err.Error(), Retryable: true, Service: serviceName}
		c.logError(ctx, operation, start, httpErr)
		return "", httpErr
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		httpErr := &httpx.Error{Type: httpx.ErrTypeUnknown, Message: fmt.Sprintf("read response: %v", err), StatusCode: resp.StatusCode, Service: serviceName}
		c.logError(ctx, operation, start, httpErr)
		return "", httpErr
	}

	if resp.StatusCode != http.StatusOK {
		httpErr := mapError(resp.StatusCode, respBody)
		c.logError(ctx, operation, start, httpErr)
		return "", httpErr
	}

	var parsed messagesResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("no text content in response")
	}

	if c.logger != nil {
		c.logger.LogResponse(ctx, httpx.ResponseLog{
			Service:    serviceName,
			Operation:  operation,
			Timestamp:  time.Now(),
			Duration:   time.Since(start),
			StatusCode: resp.StatusCode,
		})
	}
	return text, nil
}

func (c *Client) logError(ctx context.Context, operation string, start time.Time, err *httpx.Error) {
	if c.logger == nil {
		return
	}
	c.logger.LogError(ctx, httpx.ErrorLog{
		Service:    serviceName,
		Operation:  operation,
		Timestamp:  time.Now(),
		Duration:   time.Since(start),
		Error:      err,
		ErrorType:  err.Type,
		StatusCode: err.StatusCode,
		Retryable:  err.Retryable,
	})
}

// mapError converts Anthropic status codes to typed errors. 529 is the
// provider-specific overloaded status.
func mapError(statusCode int, body []byte) *httpx.Error {
	message := fmt.Sprintf("HTTP %d", statusCode)
	var apiErr apiErrorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}

	switch statusCode {
	case http.StatusBadRequest:
		return &httpx.Error{Type: httpx.ErrTypeInvalidRequest, Message: message, StatusCode: statusCode, Service: serviceName}
	case 529:
		return &httpx.Error{Type: httpx.ErrTypeServiceUnavailable, Message: message, StatusCode: statusCode, Retryable: true, Service: serviceName}
	default:
		return httpx.MapStatus(serviceName, statusCode, message)
	}
}
