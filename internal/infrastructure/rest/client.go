// Package rest is the client for the remote REST API. Responses follow the
// service's {success, data, message} envelope; authentication is a bearer
// token, and a 401 means the session expired and local state must be wiped.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"campusmarket/pkg/errors"
	"campusmarket/pkg/logger"
)

// TokenProvider supplies the bearer token for outgoing requests.
type TokenProvider interface {
	Token() (string, bool)
}

// Envelope is the response wrapper the API uses for every endpoint.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

type Client struct {
	baseURL          string
	httpClient       *http.Client
	tokens           TokenProvider
	onSessionExpired func()
}

func NewClient(baseURL string, timeout time.Duration, tokens TokenProvider, onSessionExpired func()) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:          strings.TrimRight(baseURL, "/"),
		httpClient:       &http.Client{Timeout: timeout},
		tokens:           tokens,
		onSessionExpired: onSessionExpired,
	}
}

func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

func (c *Client) Post(ctx context.Context, path string, body interface{}, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return errors.BadRequest("Failed to encode request body", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(raw), "application/json", out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, "", nil)
}

// Upload sends a local file as multipart form data and returns the served
// URL from the response payload.
func (c *Client) Upload(ctx context.Context, path, field, filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", errors.BadRequest("Failed to open file for upload", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filepath.Base(filePath))
	if err != nil {
		return "", errors.Internal("Failed to build upload form", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", errors.Internal("Failed to read file for upload", err)
	}
	if err := writer.Close(); err != nil {
		return "", errors.Internal("Failed to finalize upload form", err)
	}

	var uploaded struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, path, &buf, writer.FormDataContentType(), &uploaded); err != nil {
		return "", err
	}
	return uploaded.URL, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Internal("Failed to build request", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token, ok := c.tokens.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Unavailable("Network error", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		logger.Warn("API session expired on %s %s", method, path)
		if c.onSessionExpired != nil {
			c.onSessionExpired()
		}
		return errors.Unauthorized("Session expired", nil)
	}

	var envelope Envelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return errors.Internal("Failed to decode API response", err)
	}

	if !envelope.Success {
		message := envelope.Message
		if message == "" {
			message = fmt.Sprintf("Request failed with status %d", resp.StatusCode)
		}
		if resp.StatusCode == http.StatusNotFound {
			return errors.NotFound(message, nil)
		}
		return errors.BadRequest(message, nil)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return errors.Internal("Failed to decode API payload", err)
		}
	}
	return nil
}
