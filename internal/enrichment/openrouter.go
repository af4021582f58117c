package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openrouter "github.com/revrost/go-openrouter"
	"golang.org/x/time/rate"

	"github.com/venuewatch/venuewatch/internal/models"
)

// chatCompleter is the subset of the OpenRouter client used here.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openrouter.ChatCompletionRequest) (openrouter.ChatCompletionResponse, error)
}

// OpenRouterConfig holds configuration for the OpenRouter describer.
type OpenRouterConfig struct {
	APIKey            string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
}

// OpenRouterDescriber generates descriptions through OpenRouter-hosted models.
type OpenRouterDescriber struct {
	client  chatCompleter
	config  OpenRouterConfig
	prompts *PromptTemplates
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewOpenRouterDescriber creates an OpenRouter-backed Describer.
func NewOpenRouterDescriber(cfg OpenRouterConfig, logger *slog.Logger) *OpenRouterDescriber {
	return newOpenRouterDescriber(openrouter.NewClient(cfg.APIKey), cfg, logger)
}

func newOpenRouterDescriber(client chatCompleter, cfg OpenRouterConfig, logger *slog.Logger) *OpenRouterDescriber {
	if cfg.Model == "" {
		cfg.Model = "openai/gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &OpenRouterDescriber{
		client:  client,
		config:  cfg,
		prompts: NewPromptTemplates(),
		limiter: newLimiter(cfg.RequestsPerMinute),
		logger:  logger,
	}
}

// Name identifies the capability.
func (d *OpenRouterDescriber) Name() string {
	return "openrouter"
}

// Describe asks the configured model for a short listing description.
func (d *OpenRouterDescriber) Describe(ctx context.Context, candidate models.CandidateEvent) (string, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	apiCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	resp, err := d.client.CreateChatCompletion(apiCtx, openrouter.ChatCompletionRequest{
		Model: d.config.Model,
		Messages: []openrouter.ChatCompletionMessage{
			openrouter.SystemMessage(d.prompts.DescriptionSystemPrompt),
			openrouter.UserMessage(d.prompts.BuildDescriptionPrompt(candidate)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openrouter chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openrouter returned no choices")
	}

	text := cleanResponse(resp.Choices[0].Message.Content.Text)
	d.logger.Debug("openrouter description generated", "title", candidate.Title, "model", d.config.Model)
	return text, nil
}

// cleanResponse strips markdown fences and surrounding quotes some models add.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```text")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	return strings.Trim(s, `"`)
}
