package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// VLLMConfig contains configuration for vLLM server.
type VLLMConfig struct {
	BaseURL string // e.g., "http://localhost:8000" (vLLM default)
	Model   string // e.g., "Qwen/Qwen3Guard-Gen-0.6B"
	APIKey  string // Optional API key
	Timeout time.Duration
}

// DefaultVLLMConfig returns default configuration for local vLLM.
func DefaultVLLMConfig() VLLMConfig {
	return VLLMConfig{
		BaseURL: "http://localhost:8000",
		Model:   "Qwen/Qwen3Guard-Gen-0.6B",
		Timeout: 30 * time.Second,
	}
}

// VLLMClient talks to the OpenAI-compatible API of a vLLM server.
type VLLMClient struct {
	config     VLLMConfig
	httpClient *http.Client
}

// NewVLLMClient creates a new vLLM client.
func NewVLLMClient(config VLLMConfig) *VLLMClient {
	return &VLLMClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

type vllmChatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type vllmChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Endpoint identifies the server on a ring.
func (c *VLLMClient) Endpoint() string {
	return c.config.BaseURL
}

func (c *VLLMClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	url := strings.TrimSuffix(c.config.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	return req, nil
}

// Complete sends prompt as a single user message and returns the first choice.
func (c *VLLMClient) Complete(ctx context.Context, prompt string) (string, error) {
	jsonBody, err := json.Marshal(vllmChatRequest{
		Model:       c.config.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   64,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call vLLM API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vLLM API error (status %d): %s", resp.StatusCode, string(body))
	}

	var out vllmChatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("vLLM error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("no response choices from vLLM")
	}
	return out.Choices[0].Message.Content, nil
}

// Ping checks if the vLLM server is running.
func (c *VLLMClient) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/models", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vLLM not reachable at %s: %w", c.config.BaseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vLLM returned status %d", resp.StatusCode)
	}
	return nil
}
