// Package classifier talks to the external AI engine that assigns a category
// and priority to a request description. The engine is an opaque collaborator:
// any OpenAI-compatible chat-completions endpoint works.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spec-kit/maintenance-service/internal/config"
	"github.com/spec-kit/maintenance-service/internal/domain"
)

// Result is a completed classification.
type Result struct {
	Category domain.RequestCategory `json:"category"`
	Priority domain.RequestPriority `json:"priority"`
}

// Classifier turns a free-text description into a category/priority pair.
// Failures are retryable; the caller owns the retry policy.
type Classifier interface {
	Classify(ctx context.Context, description string) (*Result, error)
}

const systemPrompt = `You are a building maintenance expert. Categorize the maintenance request into one of these categories:
- electrical: 전기 관련 문제
- plumbing: 배관, 수도 관련 문제
- hvac: 난방, 환기, 에어컨 관련 문제
- structural: 건물 구조, 벽, 바닥 관련 문제
- other: 기타

Also assess the priority as:
- urgent: 즉각적인 위험이나 서비스 중단
- high: 빠른 대응 필요
- medium: 일반적인 유지보수
- low: 긴급하지 않음

Respond in JSON format: {"category": "...", "priority": "..."}`

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
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// HTTPClassifier calls a chat-completions endpoint.
type HTTPClassifier struct {
	cfg    config.ClassifierConfig
	client *http.Client
}

// NewHTTPClassifier builds a classifier from config.
func NewHTTPClassifier(cfg config.ClassifierConfig) *HTTPClassifier {
	return &HTTPClassifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout()},
	}
}

// Classify sends the description to the model and parses its JSON answer.
func (c *HTTPClassifier) Classify(ctx context.Context, description string) (*Result, error) {
	payload := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Maintenance request: %s", description)},
		},
		Temperature: 0.3,
		MaxTokens:   100,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var completion chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("decode classifier response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("classifier returned no choices")
	}

	return ParseResult(completion.Choices[0].Message.Content)
}

// ParseResult validates the model's JSON answer against the known vocabulary.
// Anything off-vocabulary is a retryable failure, not a silent default.
func ParseResult(content string) (*Result, error) {
	var result Result
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &result); err != nil {
		return nil, fmt.Errorf("malformed classifier output: %w", err)
	}
	if !domain.ValidCategory(result.Category) {
		return nil, fmt.Errorf("unknown category %q in classifier output", result.Category)
	}
	if !domain.ValidPriority(result.Priority) {
		return nil, fmt.Errorf("unknown priority %q in classifier output", result.Priority)
	}
	return &result, nil
}
