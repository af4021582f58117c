// Package enrichment fills in descriptions and images for freshly collected events.
package enrichment

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/venuewatch/venuewatch/internal/models"
)

// Describer produces a description for a candidate event.
type Describer interface {
	Name() string
	Describe(ctx context.Context, candidate models.CandidateEvent) (string, error)
}

// ImageGenerator produces an image URL for a candidate event.
type ImageGenerator interface {
	Name() string
	GenerateImage(ctx context.Context, candidate models.CandidateEvent) (string, error)
}

// Fallback kinds reported to the fallback hook.
const (
	FallbackDescription = "description"
	FallbackImage       = "image"
)

// PipelineConfig holds the per-cycle pacing applied after each persisted event.
type PipelineConfig struct {
	FullDelay        time.Duration
	LightweightDelay time.Duration
}

// DefaultPipelineConfig returns 300ms for full cycles and 1s for lightweight cycles.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		FullDelay:        300 * time.Millisecond,
		LightweightDelay: time.Second,
	}
}

// Pipeline enriches candidates. It never fails: every capability error falls
// back to a deterministic template or a category image.
type Pipeline struct {
	describer  Describer
	images     ImageGenerator
	config     PipelineConfig
	logger     *slog.Logger
	onFallback func(kind string)
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithDescriber sets the description capability.
func WithDescriber(d Describer) Option {
	return func(p *Pipeline) { p.describer = d }
}

// WithImageGenerator sets the image capability.
func WithImageGenerator(g ImageGenerator) Option {
	return func(p *Pipeline) { p.images = g }
}

// WithFallbackHook registers a callback invoked whenever a fallback is used.
func WithFallbackHook(fn func(kind string)) Option {
	return func(p *Pipeline) { p.onFallback = fn }
}

// NewPipeline creates an enrichment pipeline. Without capabilities it only uses templates.
func NewPipeline(cfg PipelineConfig, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		config: cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EnhanceDescription returns a generated description, or the category template
// when the describer is absent, fails or returns nothing.
func (p *Pipeline) EnhanceDescription(ctx context.Context, candidate models.CandidateEvent) string {
	if p.describer == nil {
		return TemplateDescription(candidate)
	}

	text, err := p.describer.Describe(ctx, candidate)
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		p.logger.Warn("description generation failed, using template",
			"describer", p.describer.Name(),
			"title", candidate.Title,
			"venue", candidate.VenueName,
			"error", err,
		)
		p.fallback(FallbackDescription)
		return TemplateDescription(candidate)
	}
	return text
}

// EnsureImage keeps an existing real image, otherwise asks the generator and
// falls back to the category image.
func (p *Pipeline) EnsureImage(ctx context.Context, candidate models.CandidateEvent) string {
	if candidate.ImageURL != "" && !IsPlaceholderImage(candidate.ImageURL) {
		return candidate.ImageURL
	}
	if p.images == nil {
		return CategoryImage(candidate.Category)
	}

	url, err := p.images.GenerateImage(ctx, candidate)
	url = strings.TrimSpace(url)
	if err != nil || url == "" {
		p.logger.Warn("image generation failed, using category image",
			"generator", p.images.Name(),
			"title", candidate.Title,
			"category", candidate.Category,
			"error", err,
		)
		p.fallback(FallbackImage)
		return CategoryImage(candidate.Category)
	}
	return url
}

// Enrich returns the candidate with description and image filled in.
func (p *Pipeline) Enrich(ctx context.Context, candidate models.CandidateEvent) models.CandidateEvent {
	candidate.Description = p.EnhanceDescription(ctx, candidate)
	candidate.ImageURL = p.EnsureImage(ctx, candidate)
	return candidate
}

// Delay returns the pause applied after persisting an event in a cycle of the given kind.
func (p *Pipeline) Delay(kind models.CycleKind) time.Duration {
	if kind == models.CycleLightweight {
		return p.config.LightweightDelay
	}
	return p.config.FullDelay
}

func (p *Pipeline) fallback(kind string) {
	if p.onFallback != nil {
		p.onFallback(kind)
	}
}
