// Package genai provides the generative completion gateway backed by the
// OpenAI API.
package genai

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Fixed model parameters for completion requests. Output length is bounded
// and the sampling temperature fixed so generated additions stay short and
// uniform across turns.
const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = openai.ChatModelGPT4oMini
	// DefaultMaxTokens bounds the length of generated text.
	DefaultMaxTokens = 256
	// DefaultTemperature is the fixed sampling temperature.
	DefaultTemperature = 0.7
)

// Error variables for better error handling and testability
var (
	ErrAPIKeyNotSet      = errors.New("OPENAI_API_KEY not set")
	ErrNoChoicesReturned = errors.New("no choices returned")
)

// chatService defines the minimal interface for chat completions, allowing
// the OpenAI SDK to be mocked in tests.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// ClientInterface is the completion capability consumed by the dialogue
// engine: one prompt in, generated text or an error out. Single attempt,
// no retries.
type ClientInterface interface {
	GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey      string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key, overriding the environment.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the default chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithMaxTokens overrides the default output length bound.
func WithMaxTokens(n int64) Option {
	return func(o *Opts) { o.MaxTokens = n }
}

// WithTemperature overrides the default sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Opts) { o.Temperature = t }
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	chat        chatService
	model       string
	maxTokens   int64
	temperature float64
}

// openaiChatService adapts the OpenAI SDK client to the chatService
// interface.
type openaiChatService struct {
	client openai.Client
}

func (s *openaiChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// NewClient initializes a GenAI client from options, falling back to the
// OPENAI_API_KEY environment variable for the key.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		slog.Error("GenAI client API key not provided")
		return nil, ErrAPIKeyNotSet
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}

	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	slog.Debug("GenAI client created", "model", cfg.Model, "max_tokens", cfg.MaxTokens, "temperature", cfg.Temperature)
	return &Client{
		chat:        &openaiChatService{client: cli},
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// GeneratePrompt generates text from the fixed system prompt and the given
// user prompt. The request carries the client's bounded max tokens and fixed
// temperature.
func (c *Client) GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		MaxTokens:   openai.Int(c.maxTokens),
		Temperature: openai.Float(c.temperature),
	}

	resp, err := c.chat.Create(ctx, params)
	if err != nil {
		slog.Error("GenAI completion request failed", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		slog.Error("GenAI completion returned no choices")
		return "", ErrNoChoicesReturned
	}
	slog.Debug("GenAI completion succeeded", "content_length", len(resp.Choices[0].Message.Content))
	return resp.Choices[0].Message.Content, nil
}
