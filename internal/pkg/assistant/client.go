package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrUnavailable marks transport or API failures, including
	// timeouts. Callers treat the exchange as if it never happened.
	ErrUnavailable = errors.New("assistant unavailable")
	// ErrInvalidResponse marks an empty or unparseable completion.
	ErrInvalidResponse = errors.New("assistant response invalid")
)

// Turn is one prior exchange half fed back as context.
type Turn struct {
	Role    string
	Message string
}

// Request is a single completion call: the scope's system prompt, the
// buffered history and the user's new message.
type Request struct {
	SystemPrompt string
	History      []Turn
	Message      string
	Temperature  float32
	JSONResponse bool
}

// Client wraps the chat-completion API behind a narrow Complete call
// with a hard per-request timeout.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

// NewClient builds a client against an OpenAI-compatible endpoint.
// baseURL may point at any compatible provider (e.g. DeepSeek).
func NewClient(apiKey, baseURL, model string, timeout time.Duration) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = "deepseek-chat"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		api:     openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
	}
}

// Complete runs one chat completion. The context window is assembled as
// system prompt, then history oldest-first, then the new message.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: req.SystemPrompt,
	})
	for _, turn := range req.History {
		role := openai.ChatMessageRoleUser
		if turn.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Message,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Message,
	})

	completionReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.JSONResponse {
		completionReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, completionReq)
	if err != nil {
		log.Errorf("assistant: completion call failed: %v", err)
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrInvalidResponse)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty completion", ErrInvalidResponse)
	}
	return content, nil
}
