package enrichment

import (
	"fmt"
	"strings"
	"time"

	"github.com/venuewatch/venuewatch/internal/models"
)

// descriptionTemplates are keyed by lower-case category. Arguments are title, venue, city and when.
var descriptionTemplates = map[string]string{
	"music":     "%[1]s live at %[2]s in %[3]s on %[4]s. An evening of live music in one of the city's favourite rooms.",
	"nightlife": "%[1]s at %[2]s, %[3]s, on %[4]s. Doors open late and the party runs until close.",
	"theatre":   "%[1]s on stage at %[2]s in %[3]s on %[4]s. Book early, seats at this venue go quickly.",
	"art":       "%[1]s at %[2]s, %[3]s, on %[4]s. A chance to see new work up close.",
	"food":      "%[1]s at %[2]s in %[3]s on %[4]s. Come hungry.",
	"comedy":    "%[1]s at %[2]s, %[3]s, on %[4]s. A night of laughs with comics from the local circuit.",
}

const defaultDescriptionTemplate = "%[1]s at %[2]s in %[3]s on %[4]s."

// categoryImages are static fallbacks keyed by lower-case category.
var categoryImages = map[string]string{
	"music":     "https://images.unsplash.com/photo-1501386761578-eac5c94b800a?w=1200",
	"nightlife": "https://images.unsplash.com/photo-1566737236500-c8ac43014a67?w=1200",
	"theatre":   "https://images.unsplash.com/photo-1503095396549-807759245b35?w=1200",
	"art":       "https://images.unsplash.com/photo-1531058020387-3be344556be6?w=1200",
	"food":      "https://images.unsplash.com/photo-1414235077428-338989a2e8c0?w=1200",
	"comedy":    "https://images.unsplash.com/photo-1585699324551-f6c309eedeca?w=1200",
}

const defaultImage = "https://images.unsplash.com/photo-1492684223066-81342ee5ff30?w=1200"

var placeholderMarkers = []string{"placeholder", "no-image", "noimage", "default-event", "dummyimage.com"}

// TemplateDescription renders the deterministic category description for a candidate.
// An existing description is kept as a lead sentence.
func TemplateDescription(c models.CandidateEvent) string {
	tpl, ok := descriptionTemplates[strings.ToLower(c.Category)]
	if !ok {
		tpl = defaultDescriptionTemplate
	}

	text := fmt.Sprintf(tpl, c.Title, c.VenueName, c.City, formatWhen(c.Date, c.Time))
	if c.Price != "" {
		text += " Tickets: " + c.Price + "."
	}
	if lead := strings.TrimSpace(c.Description); lead != "" {
		text = lead + " " + text
	}
	return text
}

// CategoryImage returns the static image for a category.
func CategoryImage(category string) string {
	if url, ok := categoryImages[strings.ToLower(category)]; ok {
		return url
	}
	return defaultImage
}

// IsPlaceholderImage reports whether the URL points at a generic stand-in image.
func IsPlaceholderImage(url string) bool {
	lower := strings.ToLower(strings.TrimSpace(url))
	if lower == "" {
		return true
	}
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func formatWhen(date, at string) string {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return strings.TrimSpace(date + " " + at)
	}
	when := d.Format("Monday 2 January")
	if at != "" {
		when += " at " + at
	}
	return when
}
