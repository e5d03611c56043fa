package main

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

	"github.com/gorilla/websocket"

	"github.com/michael213532/ai-debate/internal/domain"
)

// apiClient talks to the debate service REST and WebSocket endpoints.
type apiClient struct {
	baseURL    string
	userID     string
	apiKey     string
	httpClient *http.Client
}

func newClient(baseURL, userID, apiKey string) *apiClient {
	return &apiClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userID:     userID,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// do sends a JSON request and decodes the JSON response into out.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s (HTTP %d)", e.Error, resp.StatusCode)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *apiClient) CreateSession(ctx context.Context, req domain.CreateSessionRequest) (*domain.Session, error) {
	var session domain.Session
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *apiClient) GetSession(ctx context.Context, sessionID string) (*domain.SessionDetail, error) {
	var detail domain.SessionDetail
	if err := c.do(ctx, http.MethodGet, "/v1/sessions/"+url.PathEscape(sessionID), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *apiClient) ListModels(ctx context.Context) ([]domain.ModelInfo, error) {
	var resp struct {
		Models []domain.ModelInfo `json:"models"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/models", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Models, nil
}

func (c *apiClient) ListKeys(ctx context.Context) ([]domain.ProviderStatus, error) {
	var resp struct {
		Providers []domain.ProviderStatus `json:"providers"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/keys", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Providers, nil
}

func (c *apiClient) SaveKey(ctx context.Context, provider, key string) error {
	return c.do(ctx, http.MethodPut, "/v1/keys/"+url.PathEscape(provider), domain.APIKeyRequest{APIKey: key}, nil)
}

func (c *apiClient) DeleteKey(ctx context.Context, provider string) error {
	return c.do(ctx, http.MethodDelete, "/v1/keys/"+url.PathEscape(provider), nil, nil)
}

func (c *apiClient) TestKey(ctx context.Context, provider string) (*domain.APIKeyTestResult, error) {
	var result domain.APIKeyTestResult
	if err := c.do(ctx, http.MethodPost, "/v1/keys/"+url.PathEscape(provider)+"/test", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Attach opens the session's event stream. A pending session starts.
func (c *apiClient) Attach(ctx context.Context, sessionID string) (*websocket.Conn, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/sessions/" + url.PathEscape(sessionID)
	if c.apiKey != "" {
		u.RawQuery = url.Values{"api_key": {c.apiKey}}.Encode()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return conn, nil
}
