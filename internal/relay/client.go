// Package relay is the client side of the POST /api/chat endpoint.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

// ChatRequest is the body accepted by the relay endpoint.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the body returned by the relay endpoint. Exactly one of
// the fields is set.
type ChatResponse struct {
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

var errNoResponse = errors.New("Failed to get AI response")

// Client sends prompts to a relay server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Generate returns the relay's reply for prompt. Every failure, including a
// non-JSON or non-2xx answer, comes back as an error whose message is fit
// to show to the user.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ChatRequest{Message: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode/100 != 2 || !isJSON(resp.Header.Get("Content-Type")) {
		return "", responseError(resp.StatusCode, respBody)
	}

	var result ChatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("malformed response: %w", err)
	}
	if result.Response == "" {
		return "", errNoResponse
	}
	return result.Response, nil
}

// responseError prefers the relay's own error text, then the raw body.
func responseError(status int, body []byte) error {
	var result ChatResponse
	if err := json.Unmarshal(body, &result); err == nil && result.Error != "" {
		return &StatusError{StatusCode: status, Message: result.Error}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = errNoResponse.Error()
	}
	return &StatusError{StatusCode: status, Message: msg}
}

// StatusError is an unsuccessful answer from the relay.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return e.Message
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}
