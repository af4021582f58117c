package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/venuewatch/venuewatch/internal/clock"
	"github.com/venuewatch/venuewatch/internal/models"
)

// eventSelector matches the markup venue agenda pages commonly use for listings.
const eventSelector = `[itemtype*="schema.org/Event"], article.event, .event-item, .mec-event-article`

// LiveSourceConfig configures outbound fetching.
type LiveSourceConfig struct {
	Timeout     time.Duration
	UserAgent   string
	RetryPolicy RetryPolicy
	// ChannelBaseURLs maps a social channel to a public page prefix the venue
	// handle is appended to. Channels without an entry are reported unavailable.
	ChannelBaseURLs map[models.SourceChannel]string
}

// LiveSource fetches venue pages over HTTP and parses event listings.
type LiveSource struct {
	client *http.Client
	config LiveSourceConfig
	clock  clock.Clock
	logger *slog.Logger
}

// NewLiveSource creates an HTTP-backed capability.
func NewLiveSource(cfg LiveSourceConfig, clk clock.Clock, logger *slog.Logger) *LiveSource {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "venuewatch/1.0"
	}
	if cfg.RetryPolicy.InitialBackoff == 0 {
		cfg.RetryPolicy = DefaultRetryPolicy()
	}
	return &LiveSource{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
		clock:  clk,
		logger: logger,
	}
}

// Name identifies the capability.
func (s *LiveSource) Name() string {
	return "live"
}

// Fetch downloads the venue page for the channel and extracts upcoming events.
func (s *LiveSource) Fetch(ctx context.Context, channel models.SourceChannel, venue models.Venue) ([]models.CandidateEvent, error) {
	pageURL, ok := s.pageURL(channel, venue)
	if !ok {
		s.logger.Debug("channel unavailable for live source", "channel", channel, "venue", venue.Name)
		return []models.CandidateEvent{}, nil
	}

	var body []byte
	err := Retry(ctx, s.config.RetryPolicy, func() error {
		var err error
		body, err = s.get(ctx, pageURL)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	return s.parse(doc, pageURL, channel, venue), nil
}

// HealthCheck reports whether the source is able to issue requests.
func (s *LiveSource) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("live source has no http client")
	}
	return ctx.Err()
}

func (s *LiveSource) pageURL(channel models.SourceChannel, venue models.Venue) (string, bool) {
	handle := venue.Handle(channel)
	if handle == "" {
		return "", false
	}
	if channel == models.SourceWebsite {
		return handle, true
	}
	base, ok := s.config.ChannelBaseURLs[channel]
	if !ok || base == "" {
		return "", false
	}
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(handle), true
}

func (s *LiveSource) get(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.config.UserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, NewRetryableError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, NewRetryableError(fmt.Errorf("unexpected status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}

func (s *LiveSource) parse(doc *goquery.Document, pageURL string, channel models.SourceChannel, venue models.Venue) []models.CandidateEvent {
	today := s.clock.Now().Format(models.DateLayout)
	base, _ := url.Parse(pageURL)

	var out []models.CandidateEvent
	doc.Find(eventSelector).Each(func(i int, sel *goquery.Selection) {
		title := strings.TrimSpace(firstText(sel, `[itemprop="name"]`, ".event-title", "h2", "h3"))
		date, at := parseWhen(sel)
		if title == "" || date == "" {
			return
		}
		if date < today {
			return
		}

		candidate := models.CandidateEvent{
			Title:       title,
			VenueID:     venue.ID,
			VenueName:   venue.Name,
			Date:        date,
			Time:        at,
			City:        venue.City,
			Category:    venue.Category,
			Price:       strings.TrimSpace(firstText(sel, `[itemprop="price"]`, ".price")),
			Description: strings.TrimSpace(firstText(sel, `[itemprop="description"]`, ".event-description", "p")),
			Source:      channel,
			SourceURL:   pageURL,
		}
		if href, ok := sel.Find("a[href]").First().Attr("href"); ok {
			candidate.SourceURL = resolve(base, href)
		}
		if src, ok := sel.Find("img[src]").First().Attr("src"); ok {
			candidate.ImageURL = resolve(base, src)
		}
		out = append(out, candidate)
	})

	s.logger.Debug("parsed venue page", "url", pageURL, "events", len(out))
	return out
}

func firstText(sel *goquery.Selection, selectors ...string) string {
	for _, q := range selectors {
		if text := sel.Find(q).First().Text(); strings.TrimSpace(text) != "" {
			return text
		}
	}
	return ""
}

// parseWhen reads the event date and time from a time[datetime] or startDate element.
func parseWhen(sel *goquery.Selection) (string, string) {
	var raw string
	if v, ok := sel.Find(`[itemprop="startDate"]`).First().Attr("content"); ok {
		raw = v
	} else if v, ok := sel.Find("time[datetime]").First().Attr("datetime"); ok {
		raw = v
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(models.DateLayout), t.Format("15:04")
		}
	}
	if t, err := time.Parse(models.DateLayout, raw); err == nil {
		return t.Format(models.DateLayout), ""
	}
	return "", ""
}

func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil || base == nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
