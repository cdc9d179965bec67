package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const (
	deepseekAPIURL = "https://api.deepseek.com/v1/chat/completions"
	apiTimeoutSec  = 60
	maxLoggedBody  = 300
)

// ErrNoChoices is returned when the API answers without any completion
var ErrNoChoices = errors.New("no choices in API response")

// DeepseekClient manages interactions with Deepseek API
type DeepseekClient struct {
	apiKey string
	url    string
	http   *http.Client
}

// NewDeepseekClient creates a new Deepseek API client
func NewDeepseekClient(apiKey string) *DeepseekClient {
	return &DeepseekClient{
		apiKey: apiKey,
		url:    deepseekAPIURL,
		http:   &http.Client{Timeout: apiTimeoutSec * time.Second},
	}
}

type deepseekMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type deepseekRequest struct {
	Model    string            `json:"model"`
	Messages []deepseekMessage `json:"messages"`
}

type deepseekResponseChoice struct {
	Message deepseekMessage `json:"message"`
}

type deepseekResponse struct {
	Choices []deepseekResponseChoice `json:"choices"`
	ID      string                   `json:"id,omitempty"`
}

func buildPrompt(topic, question string) string {
	return fmt.Sprintf(`
I am preparing for an oral exam. Topic: %s.

Exam question: %s

Please give me a short study summary for this question:
1. The key points an examiner expects in the answer
2. One or two terms I should be able to define
3. A tip for remembering the structure of the answer

Be concise and answer in plain text without markdown.
`, topic, question)
}

// ExplainQuestion asks Deepseek for a study summary of an exam question
func (c *DeepseekClient) ExplainQuestion(ctx context.Context, topic, question string) (string, error) {
	startTime := time.Now()

	reqJSON, err := json.Marshal(deepseekRequest{
		Model: "deepseek-chat",
		Messages: []deepseekMessage{
			{Role: "user", Content: buildPrompt(topic, question)},
		},
	})
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, apiTimeoutSec*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqJSON))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	log.Printf("Sending request to Deepseek API...")
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Printf("Deepseek API request timed out after %v", time.Since(startTime))
		}
		return "", fmt.Errorf("deepseek request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	log.Printf("Received response from Deepseek API in %v with status code: %d", time.Since(startTime), resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, truncate(string(body)))
	}

	var deepseekResp deepseekResponse
	if err := json.Unmarshal(body, &deepseekResp); err != nil {
		return "", fmt.Errorf("parse deepseek response: %w", err)
	}
	if len(deepseekResp.Choices) == 0 {
		return "", ErrNoChoices
	}

	content := strings.TrimSpace(deepseekResp.Choices[0].Message.Content)
	log.Printf("Explanation completed in %v. Content length: %d", time.Since(startTime), len(content))
	return content, nil
}

func truncate(s string) string {
	if len(s) > maxLoggedBody {
		return s[:maxLoggedBody] + "..."
	}
	return s
}
