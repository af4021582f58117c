package ingestion

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/venuewatch/venuewatch/internal/models"
)

// Collector pulls candidate events for one venue from a single channel.
type Collector interface {
	// Channel returns the channel tag applied to every candidate this collector yields.
	Channel() models.SourceChannel

	// Collect returns candidate events for the venue. A venue without an
	// identifier on this channel yields an empty list and no error.
	Collect(ctx context.Context, venue models.Venue) ([]models.CandidateEvent, error)

	// HealthCheck verifies the underlying capability is usable.
	HealthCheck(ctx context.Context) error

	// Status returns accumulated collection statistics.
	Status() CollectorStatus
}

// CollectorStatus represents the current state of a collector.
type CollectorStatus struct {
	Channel        models.SourceChannel `json:"channel"`
	Capability     string               `json:"capability"`
	Healthy        bool                 `json:"healthy"`
	LastCollect    time.Time            `json:"last_collect"`
	LastError      string               `json:"last_error,omitempty"`
	TotalCollected int64                `json:"total_collected"`
	TotalErrors    int64                `json:"total_errors"`
	Skipped        int64                `json:"skipped"`
	AverageLatency time.Duration        `json:"average_latency"`
}

// ChannelCollector adapts a DataSourceCapability to one channel. The three
// collector variants differ only in the channel they serve.
type ChannelCollector struct {
	channel    models.SourceChannel
	capability DataSourceCapability
	logger     *slog.Logger

	mu     sync.Mutex
	status CollectorStatus
}

// NewWebsiteCollector creates the collector for venue websites.
func NewWebsiteCollector(capability DataSourceCapability, logger *slog.Logger) *ChannelCollector {
	return newChannelCollector(models.SourceWebsite, capability, logger)
}

// NewChannelACollector creates the collector for social channel A.
func NewChannelACollector(capability DataSourceCapability, logger *slog.Logger) *ChannelCollector {
	return newChannelCollector(models.SourceChannelA, capability, logger)
}

// NewChannelBCollector creates the collector for social channel B.
func NewChannelBCollector(capability DataSourceCapability, logger *slog.Logger) *ChannelCollector {
	return newChannelCollector(models.SourceChannelB, capability, logger)
}

// NewStandardCollectors returns the website, channel-A and channel-B collectors
// sharing one capability.
func NewStandardCollectors(capability DataSourceCapability, logger *slog.Logger) []Collector {
	return []Collector{
		NewWebsiteCollector(capability, logger),
		NewChannelACollector(capability, logger),
		NewChannelBCollector(capability, logger),
	}
}

func newChannelCollector(channel models.SourceChannel, capability DataSourceCapability, logger *slog.Logger) *ChannelCollector {
	return &ChannelCollector{
		channel:    channel,
		capability: capability,
		logger:     logger.With("channel", string(channel)),
		status: CollectorStatus{
			Channel:    channel,
			Capability: capability.Name(),
			Healthy:    true,
		},
	}
}

// Channel returns the channel this collector serves.
func (c *ChannelCollector) Channel() models.SourceChannel {
	return c.channel
}

// Collect fetches candidates for the venue and stamps them with venue and channel data.
func (c *ChannelCollector) Collect(ctx context.Context, venue models.Venue) ([]models.CandidateEvent, error) {
	handle := venue.Handle(c.channel)
	if handle == "" {
		c.logger.Debug("venue has no presence on channel, skipping", "venue", venue.Name)
		c.mu.Lock()
		c.status.Skipped++
		c.mu.Unlock()
		return []models.CandidateEvent{}, nil
	}

	start := time.Now()
	candidates, err := c.capability.Fetch(ctx, c.channel, venue)
	c.record(len(candidates), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		candidates[i].Source = c.channel
		candidates[i].VenueID = venue.ID
		candidates[i].VenueName = venue.Name
		if candidates[i].City == "" {
			candidates[i].City = venue.City
		}
		if candidates[i].Category == "" {
			candidates[i].Category = venue.Category
		}
	}

	c.logger.Debug("collected candidates", "venue", venue.Name, "count", len(candidates))
	return candidates, nil
}

// HealthCheck delegates to the capability.
func (c *ChannelCollector) HealthCheck(ctx context.Context) error {
	return c.capability.HealthCheck(ctx)
}

// Status returns a snapshot of the collector statistics.
func (c *ChannelCollector) Status() CollectorStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *ChannelCollector) record(count int, latency time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status.LastCollect = time.Now()
	if err != nil {
		c.status.Healthy = false
		c.status.LastError = err.Error()
		c.status.TotalErrors++
	} else {
		c.status.Healthy = true
		c.status.LastError = ""
		c.status.TotalCollected += int64(count)
	}

	// simple moving average
	if c.status.AverageLatency == 0 {
		c.status.AverageLatency = latency
	} else {
		c.status.AverageLatency = (c.status.AverageLatency + latency) / 2
	}
}
