package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// LLMClient is a minimal chat-completion client satisfying
// internal/codegen.Client, posting a system+user message pair to an
// OpenAI-compatible chat completions endpoint.
type LLMClient struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	Model      string
}

// NewLLMClient builds an LLMClient; httpClient may be nil to use
// http.DefaultClient.
func NewLLMClient(baseURL, apiKey, model string, httpClient *http.Client) *LLMClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &LLMClient{HTTPClient: httpClient, BaseURL: baseURL, APIKey: apiKey, Model: model}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete implements codegen.Client.
func (c *LLMClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm request failed: %d: %s", resp.StatusCode, string(data))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm response had no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
