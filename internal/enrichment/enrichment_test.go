package enrichment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/venuewatch/venuewatch/internal/logging"
	"github.com/venuewatch/venuewatch/internal/models"
)

type fakeDescriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeDescriber) Name() string { return "fake" }

func (f *fakeDescriber) Describe(ctx context.Context, c models.CandidateEvent) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeImages struct {
	url   string
	err   error
	calls int
}

func (f *fakeImages) Name() string { return "fake" }

func (f *fakeImages) GenerateImage(ctx context.Context, c models.CandidateEvent) (string, error) {
	f.calls++
	return f.url, f.err
}

func testCandidate() models.CandidateEvent {
	return models.CandidateEvent{
		Title:     "Jazz Night",
		VenueName: "Loco Club",
		City:      "Valencia",
		Category:  "music",
		Date:      "2026-05-09",
		Time:      "22:00",
		Price:     "€12",
	}
}

func TestPipeline_EnhanceDescription(t *testing.T) {
	tests := []struct {
		name         string
		describer    *fakeDescriber
		want         string
		wantFallback int
	}{
		{"describer output", &fakeDescriber{text: "  A great night.  "}, "A great night.", 0},
		{"describer error", &fakeDescriber{err: errors.New("quota")}, TemplateDescription(testCandidate()), 1},
		{"empty output", &fakeDescriber{text: "   "}, TemplateDescription(testCandidate()), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fallbacks := 0
			p := NewPipeline(DefaultPipelineConfig(), logging.Discard(),
				WithDescriber(tt.describer),
				WithFallbackHook(func(kind string) {
					if kind == FallbackDescription {
						fallbacks++
					}
				}),
			)

			if got := p.EnhanceDescription(context.Background(), testCandidate()); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if fallbacks != tt.wantFallback {
				t.Errorf("expected %d fallbacks, got %d", tt.wantFallback, fallbacks)
			}
		})
	}
}

func TestPipeline_WithoutCapabilities(t *testing.T) {
	p := NewPipeline(DefaultPipelineConfig(), logging.Discard())
	c := testCandidate()

	if got := p.EnhanceDescription(context.Background(), c); got != TemplateDescription(c) {
		t.Errorf("expected template description, got %q", got)
	}
	if got := p.EnsureImage(context.Background(), c); got != CategoryImage("music") {
		t.Errorf("expected category image, got %q", got)
	}
}

func TestPipeline_EnsureImage(t *testing.T) {
	tests := []struct {
		name      string
		existing  string
		images    *fakeImages
		want      string
		wantCalls int
	}{
		{"keeps real image", "https://cdn.example/poster.jpg", &fakeImages{url: "https://gen/1.png"}, "https://cdn.example/poster.jpg", 0},
		{"replaces placeholder", "https://via.placeholder.com/300", &fakeImages{url: "https://gen/1.png"}, "https://gen/1.png", 1},
		{"generates when missing", "", &fakeImages{url: "https://gen/2.png"}, "https://gen/2.png", 1},
		{"falls back on error", "", &fakeImages{err: errors.New("down")}, CategoryImage("music"), 1},
		{"falls back on empty url", "", &fakeImages{}, CategoryImage("music"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPipeline(DefaultPipelineConfig(), logging.Discard(), WithImageGenerator(tt.images))
			c := testCandidate()
			c.ImageURL = tt.existing

			if got := p.EnsureImage(context.Background(), c); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if tt.images.calls != tt.wantCalls {
				t.Errorf("expected %d generator calls, got %d", tt.wantCalls, tt.images.calls)
			}
		})
	}
}

func TestPipeline_Enrich(t *testing.T) {
	p := NewPipeline(DefaultPipelineConfig(), logging.Discard(),
		WithDescriber(&fakeDescriber{text: "Described."}),
		WithImageGenerator(&fakeImages{url: "https://gen/3.png"}),
	)

	got := p.Enrich(context.Background(), testCandidate())
	if got.Description != "Described." || got.ImageURL != "https://gen/3.png" {
		t.Errorf("unexpected enriched candidate %+v", got)
	}
	if got.Title != "Jazz Night" {
		t.Error("enrichment must not alter identity fields")
	}
}

func TestPipeline_Delay(t *testing.T) {
	p := NewPipeline(DefaultPipelineConfig(), logging.Discard())

	if got := p.Delay(models.CycleFull); got != 300*time.Millisecond {
		t.Errorf("expected 300ms for full cycle, got %v", got)
	}
	if got := p.Delay(models.CycleLightweight); got != time.Second {
		t.Errorf("expected 1s for lightweight cycle, got %v", got)
	}
}

func TestTemplateDescription(t *testing.T) {
	c := testCandidate()
	got := TemplateDescription(c)

	for _, want := range []string{"Jazz Night", "Loco Club", "Valencia", "Saturday 9 May at 22:00", "Tickets: €12."} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
	if got != TemplateDescription(c) {
		t.Error("template description must be deterministic")
	}

	c.Description = "Resident trio."
	if !strings.HasPrefix(TemplateDescription(c), "Resident trio. ") {
		t.Error("expected existing description as lead")
	}

	c.Category = "circus"
	if !strings.Contains(TemplateDescription(c), "Jazz Night at Loco Club in Valencia") {
		t.Errorf("expected default template, got %q", TemplateDescription(c))
	}
}

func TestIsPlaceholderImage(t *testing.T) {
	tests := map[string]bool{
		"":                                   true,
		"https://via.placeholder.com/300":    true,
		"https://venue.example/no-image.png": true,
		"https://venue.example/poster.jpg":   false,
	}
	for url, want := range tests {
		if got := IsPlaceholderImage(url); got != want {
			t.Errorf("IsPlaceholderImage(%q) = %v, want %v", url, got, want)
		}
	}
}

func TestCategoryImage(t *testing.T) {
	if CategoryImage("MUSIC") != categoryImages["music"] {
		t.Error("expected case-insensitive category lookup")
	}
	if CategoryImage("unknown") != defaultImage {
		t.Error("expected default image for unknown category")
	}
}
