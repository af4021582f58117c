package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/venuewatch/venuewatch/internal/models"
)

// OpenAIConfig holds configuration for OpenAI API usage.
type OpenAIConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	ImageModel        string
	ImageSize         string
	Temperature       float32
	MaxTokens         int
	Timeout           time.Duration
	RequestsPerMinute int
}

// DefaultOpenAIConfig returns defaults suited to short listing copy.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:             openai.GPT4oMini,
		ImageModel:        openai.CreateImageModelDallE3,
		ImageSize:         openai.CreateImageSize1024x1024,
		Temperature:       0.7,
		MaxTokens:         300,
		Timeout:           60 * time.Second,
		RequestsPerMinute: 60,
	}
}

// OpenAIClient generates descriptions and images through the OpenAI API.
// Calls share one rate limiter.
type OpenAIClient struct {
	client  *openai.Client
	config  OpenAIConfig
	prompts *PromptTemplates
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewOpenAIClient creates an OpenAI-backed Describer and ImageGenerator.
func NewOpenAIClient(cfg OpenAIConfig, logger *slog.Logger) *OpenAIClient {
	defaults := DefaultOpenAIConfig()
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = defaults.ImageModel
	}
	if cfg.ImageSize == "" {
		cfg.ImageSize = defaults.ImageSize
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	logger.Info("initialized openai enrichment client",
		"model", cfg.Model,
		"image_model", cfg.ImageModel,
		"requests_per_minute", cfg.RequestsPerMinute)

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientCfg),
		config:  cfg,
		prompts: NewPromptTemplates(),
		limiter: newLimiter(cfg.RequestsPerMinute),
		logger:  logger,
	}
}

// Name identifies the capability.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Describe asks the chat model for a short listing description.
func (c *OpenAIClient) Describe(ctx context.Context, candidate models.CandidateEvent) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	apiCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(apiCtx, openai.ChatCompletionRequest{
		Model:       c.config.Model,
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.prompts.DescriptionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: c.prompts.BuildDescriptionPrompt(candidate)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	c.logger.Debug("openai description generated",
		"title", candidate.Title,
		"duration_ms", time.Since(start).Milliseconds(),
		"total_tokens", resp.Usage.TotalTokens)

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// GenerateImage asks the image model for a poster and returns its URL.
func (c *OpenAIClient) GenerateImage(ctx context.Context, candidate models.CandidateEvent) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	apiCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	resp, err := c.client.CreateImage(apiCtx, openai.ImageRequest{
		Prompt:         c.prompts.BuildImagePrompt(candidate),
		Model:          c.config.ImageModel,
		Size:           c.config.ImageSize,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return "", fmt.Errorf("openai create image: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", fmt.Errorf("openai returned no image")
	}
	return resp.Data[0].URL, nil
}

// newLimiter allows perMinute calls per minute with a burst of one.
// A non-positive rate disables limiting.
func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}
