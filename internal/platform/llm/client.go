// Package llm wraps an OpenAI-compatible chat-completions endpoint.
package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/svviitzerland/Medisync/internal/platform/apperr"
)

// ErrNotConfigured is returned when no API key was supplied.
var ErrNotConfigured = errors.New("llm: AI_API_KEY is not set")

type Role string

const (
	RoleSystem    Role = openai.ChatMessageRoleSystem
	RoleUser      Role = openai.ChatMessageRoleUser
	RoleAssistant Role = openai.ChatMessageRoleAssistant
)

type Message struct {
	Role    Role
	Content string
}

func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

type Options struct {
	Temperature float32
	MaxTokens   int
}

// Completer returns the text of a single completion. Implementations make
// exactly one attempt.
type Completer interface {
	Complete(ctx context.Context, msgs []Message, opts Options) (string, error)
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	logger  zerolog.Logger
}

func NewClient(cfg Config, logger zerolog.Logger) *Client {
	c := &Client{
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger.With().Str("component", "llm").Str("model", cfg.Model).Logger(),
	}
	if cfg.APIKey == "" {
		return c
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	c.api = openai.NewClientWithConfig(oc)
	return c
}

// Complete sends msgs and returns the first choice's content. Every failure,
// including an empty completion, is reported as an upstream error.
func (c *Client) Complete(ctx context.Context, msgs []Message, opts Options) (string, error) {
	if c.api == nil {
		return "", apperr.Upstream("decision support unavailable", ErrNotConfigured)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(msgs)),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	for _, m := range msgs {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", apperr.Upstream("chat completion failed", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", apperr.Upstream("chat completion failed", errors.New("empty completion"))
	}

	c.logger.Debug().
		Dur("latency", time.Since(start)).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("chat completion")
	return resp.Choices[0].Message.Content, nil
}
