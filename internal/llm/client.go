// internal/llm/client.go
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is the OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o"

// TopicSuggestion is one learning topic proposed by the model. Path is a
// slash-separated location in the knowledge tree ("Python/Classes/Dunder
// Methods"); exactly one of ParentID / ParentTempID may be set.
type TopicSuggestion struct {
	Path         string   `json:"path"`
	Description  string   `json:"description"`
	CodeExample  string   `json:"code_example"`
	UseCases     []string `json:"use_cases"`
	ParentID     *string  `json:"parent_id"`
	ParentTempID *string  `json:"parent_temp_id"`
}

// Options configures a Client.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client calls the OpenAI chat-completions API with a strict JSON schema so
// topic suggestions come back machine-readable. It performs no retries.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a Client with the given options.
func NewClient(opts Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		apiKey:  opts.APIKey,
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// topicsSchema is the structured-output contract for topic generation.
var topicsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"topics": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path":         map[string]any{"type": "string"},
					"description":  map[string]any{"type": "string"},
					"code_example": map[string]any{"type": "string"},
					"use_cases": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
					"parent_id":      map[string]any{"type": []string{"string", "null"}},
					"parent_temp_id": map[string]any{"type": []string{"string", "null"}},
				},
				"required":             []string{"path", "description", "code_example", "use_cases", "parent_id", "parent_temp_id"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"topics"},
	"additionalProperties": false,
}

// GenerateTopics sends the prompts to the model and returns its topic
// suggestions in model order.
func (c *Client) GenerateTopics(ctx context.Context, systemPrompt, userPrompt string) ([]TopicSuggestion, error) {
	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "learning_topics",
				"strict": true,
				"schema": topicsSchema,
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("completion failed: HTTP %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("completion contained no choices")
	}

	var result struct {
		Topics []TopicSuggestion `json:"topics"`
	}
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &result); err != nil {
		return nil, fmt.Errorf("failed to parse structured output: %w", err)
	}

	return result.Topics, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
