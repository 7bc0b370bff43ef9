package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/talkmira/mira/internal/config"
)

// Message is one turn of a chat-completions conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client talks to an OpenAI-compatible chat-completions endpoint. The system
// prompt is passed per call because it changes every turn (crisis guides,
// question-type instructions, memory context).
type Client interface {
	Complete(ctx context.Context, system string, messages []Message) (string, error)
}

type httpClient struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
}

func NewClient(cfg *config.Config) Client {
	return &httpClient{
		apiKey:     cfg.Provider.APIKey,
		baseURL:    cfg.Provider.BaseURL,
		model:      cfg.Provider.Model,
		maxTokens:  cfg.Provider.MaxTokens,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *httpClient) Complete(ctx context.Context, system string, messages []Message) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", fmt.Errorf("missing api key")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(c.baseURL), "/")
	if baseURL == "" {
		return "", fmt.Errorf("missing base url")
	}
	if c.model == "" {
		return "", fmt.Errorf("missing model")
	}

	chat := make([]Message, 0, len(messages)+1)
	if system != "" {
		chat = append(chat, Message{Role: "system", Content: system})
	}
	chat = append(chat, messages...)

	body := map[string]any{
		"model":      c.model,
		"messages":   chat,
		"max_tokens": c.maxTokens,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("provider http %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}
	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty content in response")
	}
	return content, nil
}
