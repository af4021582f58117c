package enrichment

import (
	"fmt"
	"strings"

	"github.com/venuewatch/venuewatch/internal/models"
)

// PromptTemplates holds the prompts sent to language and image models.
type PromptTemplates struct {
	DescriptionSystemPrompt string
	ImagePromptTemplate     string
}

// NewPromptTemplates returns the default prompt set.
func NewPromptTemplates() *PromptTemplates {
	return &PromptTemplates{
		DescriptionSystemPrompt: buildDescriptionSystemPrompt(),
		ImagePromptTemplate:     "A vibrant promotional poster for %q, a %s event at %s in %s. No text, no logos.",
	}
}

func buildDescriptionSystemPrompt() string {
	return `You write short listings for a city events guide covering Valencia and Madrid.

Guidelines:
- Two or three sentences, under 400 characters
- Mention the venue and the kind of night to expect
- Use only facts given in the request; never invent performers, prices or times
- Plain text only, no markdown, no emoji, no hashtags

Output the description text and nothing else.`
}

// BuildDescriptionPrompt renders the user message for a candidate.
func (p *PromptTemplates) BuildDescriptionPrompt(c models.CandidateEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Event: %s\n", c.Title)
	fmt.Fprintf(&b, "Venue: %s (%s)\n", c.VenueName, c.City)
	fmt.Fprintf(&b, "Category: %s\n", c.Category)
	fmt.Fprintf(&b, "When: %s\n", formatWhen(c.Date, c.Time))
	if c.Price != "" {
		fmt.Fprintf(&b, "Price: %s\n", c.Price)
	}
	if desc := strings.TrimSpace(c.Description); desc != "" {
		fmt.Fprintf(&b, "Existing description: %s\n", desc)
	}
	return b.String()
}

// BuildImagePrompt renders the image prompt for a candidate.
func (p *PromptTemplates) BuildImagePrompt(c models.CandidateEvent) string {
	category := c.Category
	if category == "" {
		category = "live"
	}
	return fmt.Sprintf(p.ImagePromptTemplate, c.Title, category, c.VenueName, c.City)
}
