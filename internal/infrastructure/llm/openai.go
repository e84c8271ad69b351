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

	"aidigest/internal/config"
	"aidigest/internal/domain"
	"aidigest/internal/ports"
)

const (
	// maxAttempts bounds retries against the paid API: one retry at most.
	maxAttempts = 2
	retryDelay  = 2 * time.Second

	// promptExcerptLimit caps how much article text enters the prompt.
	promptExcerptLimit = 2000

	// maxSummaryLen rejects runaway completions; anything longer is
	// treated as a summarization error for that article.
	maxSummaryLen = 2000
)

// OpenAIClient implements ports.Summarizer backed by OpenAI-compatible
// chat-completion APIs.
type OpenAIClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
	sleep        func(time.Duration)
}

var _ ports.Summarizer = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client from configuration.
func NewOpenAIClient(cfg config.OpenAIConfig) *OpenAIClient {
	return &OpenAIClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		sleep: time.Sleep,
	}
}

// Summarize requests a condensed summary for a single article. Transient
// failures (network, 429, 5xx) are retried once; anything else fails fast.
func (c *OpenAIClient) Summarize(ctx context.Context, article domain.Article) (string, error) {
	if c == nil {
		return "", fmt.Errorf("openai client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("openai client misconfigured")
	}

	prompt := buildPrompt(article)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		summary, retryable, err := c.complete(ctx, prompt)
		if err == nil {
			return summary, nil
		}
		lastErr = err
		if !retryable || attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		c.sleep(retryDelay)
	}

	return "", fmt.Errorf("summarize %q: %w", article.Title, lastErr)
}

// complete performs one chat-completion call. The second return value
// indicates whether the failure is worth retrying.
func (c *OpenAIClient) complete(ctx context.Context, prompt string) (string, bool, error) {
	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(c.systemPrompt)},
			{"role": "user", "content": prompt},
		},
		"temperature": 0.3,
	})
	if err != nil {
		return "", false, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
		return "", retryable, fmt.Errorf("openai error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}

	if len(decoded.Choices) == 0 {
		return "", false, fmt.Errorf("empty choices in response")
	}

	summary := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if summary == "" {
		return "", false, fmt.Errorf("empty summary in response")
	}
	if len([]rune(summary)) > maxSummaryLen {
		return "", false, fmt.Errorf("summary exceeds %d characters", maxSummaryLen)
	}

	return summary, false, nil
}

func buildPrompt(article domain.Article) string {
	var b strings.Builder
	b.WriteString("Summarize the following article in 2-3 sentences.\n\n")
	b.WriteString("Title: " + article.Title + "\n")
	b.WriteString("Link: " + article.URL + "\n")

	if excerpt := truncateRunes(article.Excerpt, promptExcerptLimit); excerpt != "" {
		b.WriteString("Text: " + excerpt + "\n")
	}

	return b.String()
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You are a helpful assistant that summarizes news articles."
	}
	return prompt
}
