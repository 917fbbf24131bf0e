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
	"unicode/utf8"

	"nudge/internal/config"
	"nudge/internal/digest"
)

const (
	maxInputRunes = 12000
	maxBullets    = 4
)

// ChatGPTSummarizer asks an OpenAI-compatible chat endpoint for topic bullets.
type ChatGPTSummarizer struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ digest.Summarizer = (*ChatGPTSummarizer)(nil)

// NewChatGPTSummarizer builds a summarizer from configuration.
func NewChatGPTSummarizer(cfg config.ChatGPTConfig) *ChatGPTSummarizer {
	return &ChatGPTSummarizer{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name identifies the strategy inside the digest registry.
func (c *ChatGPTSummarizer) Name() string {
	return "chatgpt"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Bullets posts the topic text and parses a Markdown bullet list from the reply.
func (c *ChatGPTSummarizer) Bullets(ctx context.Context, label, text string) ([]string, error) {
	if c == nil {
		return nil, fmt.Errorf("chatgpt summarizer is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return nil, fmt.Errorf("chatgpt summarizer misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []chatMessage{
			{Role: "system", Content: safePrompt(c.systemPrompt)},
			{Role: "user", Content: fmt.Sprintf("Topic: %s\n\n%s", label, clip(text, maxInputRunes))},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send topic: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode chatgpt response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("chatgpt returned no choices")
	}

	bullets := parseBullets(decoded.Choices[0].Message.Content)
	if len(bullets) == 0 {
		return nil, fmt.Errorf("chatgpt reply has no bullets")
	}
	return bullets, nil
}

// parseBullets accepts "-", "*", "•" and "1." style list lines. A reply
// without list markers is treated as one bullet per non-empty line.
func parseBullets(reply string) []string {
	var marked, plain []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if item, ok := stripMarker(line); ok {
			if item != "" {
				marked = append(marked, item)
			}
			continue
		}
		plain = append(plain, line)
	}

	out := marked
	if len(out) == 0 {
		out = plain
	}
	if len(out) > maxBullets {
		out = out[:maxBullets]
	}
	return out
}

func stripMarker(line string) (string, bool) {
	for _, m := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, m) {
			return strings.TrimSpace(line[len(m):]), true
		}
	}
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i+1 < len(line) && (line[i] == '.' || line[i] == ')') && line[i+1] == ' ' {
		return strings.TrimSpace(line[i+2:]), true
	}
	return "", false
}

func clip(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You summarise saved articles for a weekly reading digest. Reply with two to four short Markdown bullet points and nothing else."
	}
	return prompt
}
