// Package commentary asks an OpenAI-compatible chat endpoint for a short
// playful comment about a face analysis. It never fails: any problem
// yields a templated comment that mentions the score.
package commentary

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"face-score/internal/logger"
)

type Generator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// New returns a Generator. An empty apiKey disables the remote call.
func New(apiKey, baseURL, model string, timeout time.Duration) *Generator {
	g := &Generator{model: model, timeout: timeout}
	if g.timeout <= 0 {
		g.timeout = 20 * time.Second
	}
	if apiKey == "" {
		return g
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	g.client = openai.NewClientWithConfig(cfg)
	return g
}

func Fallback(score float64) string {
	return fmt.Sprintf("Wow, a face score of %.1f, impressive!", score)
}

// Comment returns the model's answer to prompt, or Fallback(score).
func (g *Generator) Comment(ctx context.Context, prompt string, score float64) string {
	if g == nil || g.client == nil {
		logger.Debug("commentary disabled, using fallback", nil)
		return Fallback(score)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: 300,
	})
	if err != nil {
		logger.Warn("commentary request failed", map[string]any{"error": err, "model": g.model})
		return Fallback(score)
	}
	if len(resp.Choices) == 0 {
		return Fallback(score)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return Fallback(score)
	}
	return text
}
