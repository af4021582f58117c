package ingestion

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/venuewatch/venuewatch/internal/clock"
	"github.com/venuewatch/venuewatch/internal/models"
)

const (
	syntheticMinEvents = 3
	syntheticMaxEvents = 8
	syntheticHorizon   = 30 // days ahead
)

// EventTemplate is a reusable event shape for a venue category.
type EventTemplate struct {
	Title       string
	Description string
	Prices      []string
}

// templatePool maps a venue category to plausible event templates.
var templatePool = map[string][]EventTemplate{
	"music": {
		{"Jazz Night", "An evening of standards and improvisation with a resident trio.", []string{"€10", "€12"}},
		{"Indie Rock Showcase", "Three up-and-coming indie bands share the stage.", []string{"€8", "€15"}},
		{"Acoustic Sessions", "Stripped-down sets from local singer-songwriters.", []string{"Free", "€5"}},
		{"Flamenco Live", "Guitar, cante and baile from a touring company.", []string{"€18", "€22"}},
		{"Electronic Warehouse", "Local DJs playing house and techno until late.", []string{"€12", "€15-20"}},
	},
	"nightlife": {
		{"Friday Club Night", "Resident DJs and a packed dance floor.", []string{"€10", "€15"}},
		{"80s Revival Party", "Synth-pop classics all night long.", []string{"€8", "Free before midnight"}},
		{"Drag Cabaret", "A glittering night of lip-sync and comedy.", []string{"€15", "€20"}},
		{"Latin Night", "Salsa, bachata and reggaeton with a live percussionist.", []string{"€10"}},
	},
	"theatre": {
		{"Classic Drama Revival", "A new staging of a Golden Age classic.", []string{"€20-35", "€25"}},
		{"Contemporary Dance", "An ensemble piece exploring movement and memory.", []string{"€15", "€18"}},
		{"Opera Gala", "Highlights from the season's repertoire.", []string{"€40-90"}},
		{"Family Musical", "A musical adventure for all ages.", []string{"€12", "€15"}},
	},
	"art": {
		{"Exhibition Opening", "Meet the artists at the opening of a new exhibition.", []string{"Free"}},
		{"Guided Tour", "A curator-led walk through the permanent collection.", []string{"€6", "Free"}},
		{"Printmaking Workshop", "Hands-on introduction to linocut printing.", []string{"€25"}},
		{"Artist Talk", "A conversation about process and influences.", []string{"Free"}},
	},
	"food": {
		{"Wine Tasting", "Five regional wines paired with local cheeses.", []string{"€25", "€30"}},
		{"Paella Masterclass", "Learn the traditional recipe from a local chef.", []string{"€35"}},
		{"Street Food Market", "Food stalls, craft beer and live music.", []string{"Free"}},
		{"Vermouth Sunday", "Aperitivo hour with vermouth on tap.", []string{"€5"}},
	},
	"comedy": {
		{"Stand-up Open Mic", "New comics test fresh material.", []string{"Free", "€5"}},
		{"Improv Night", "Scenes built on audience suggestions.", []string{"€10"}},
		{"Comedy Headliner", "A full set from a nationally touring comedian.", []string{"€15", "€18"}},
	},
}

// defaultTemplates are used for categories without a dedicated pool.
var defaultTemplates = []EventTemplate{
	{"Live Performance", "A live performance at the venue.", []string{"€10"}},
	{"Special Event", "A one-off special event.", []string{"Free", "€8"}},
	{"Community Night", "An evening for neighbours and regulars.", []string{"Free"}},
}

var (
	weekendTimes = []string{"21:30", "22:00", "23:00"}
	weekdayTimes = []string{"19:00", "19:30", "20:30"}
)

// SyntheticSource generates plausible candidate events from category templates.
type SyntheticSource struct {
	clock clock.Clock

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSyntheticSource creates a generator seeded from seed, reading dates from clk.
func NewSyntheticSource(clk clock.Clock, seed uint64) *SyntheticSource {
	return &SyntheticSource{
		clock: clk,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Name identifies the capability.
func (s *SyntheticSource) Name() string {
	return "synthetic"
}

// Fetch generates between 3 and 8 events spread over the next 30 days.
func (s *SyntheticSource) Fetch(ctx context.Context, channel models.SourceChannel, venue models.Venue) ([]models.CandidateEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pool := TemplatesFor(venue.Category)
	today := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := syntheticMinEvents + s.rng.IntN(syntheticMaxEvents-syntheticMinEvents+1)
	n = min(n, len(pool)*syntheticHorizon)

	// Every generated event carries a distinct (title, date) identity key.
	seen := make(map[models.IdentityKey]struct{}, n)
	out := make([]models.CandidateEvent, 0, n)
	for len(out) < n {
		tpl := pool[s.rng.IntN(len(pool))]
		day := today.AddDate(0, 0, 1+s.rng.IntN(syntheticHorizon))
		date := day.Format(models.DateLayout)
		key := models.NewIdentityKey(tpl.Title, venue.Name, date)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		out = append(out, models.CandidateEvent{
			Title:       tpl.Title,
			VenueID:     venue.ID,
			VenueName:   venue.Name,
			Date:        date,
			Time:        s.pick(timesFor(day)),
			City:        venue.City,
			Category:    venue.Category,
			Price:       s.pick(tpl.Prices),
			Description: tpl.Description,
			Source:      channel,
			SourceURL:   sourceURL(channel, venue, slugify(tpl.Title)+"-"+date),
		})
	}
	return out, nil
}

// HealthCheck always succeeds for generated data.
func (s *SyntheticSource) HealthCheck(ctx context.Context) error {
	return nil
}

func (s *SyntheticSource) pick(options []string) string {
	return options[s.rng.IntN(len(options))]
}

// TemplatesFor returns the template pool for a category, falling back to generic templates.
func TemplatesFor(category string) []EventTemplate {
	if pool, ok := templatePool[strings.ToLower(category)]; ok {
		return pool
	}
	return defaultTemplates
}

// IsWeekend reports whether the day falls on Saturday or Sunday.
func IsWeekend(day time.Time) bool {
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func timesFor(day time.Time) []string {
	if IsWeekend(day) {
		return weekendTimes
	}
	return weekdayTimes
}

func sourceURL(channel models.SourceChannel, venue models.Venue, slug string) string {
	switch channel {
	case models.SourceWebsite:
		return strings.TrimRight(venue.Website, "/") + "/agenda/" + slug
	case models.SourceChannelA:
		return fmt.Sprintf("https://www.instagram.com/%s/", venue.ChannelA)
	case models.SourceChannelB:
		return fmt.Sprintf("https://www.facebook.com/%s/events", venue.ChannelB)
	}
	return ""
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
