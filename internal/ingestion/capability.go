package ingestion

import (
	"context"

	"github.com/venuewatch/venuewatch/internal/models"
)

// DataSourceCapability acquires raw candidate events for a venue on a channel.
// Implementations are chosen at construction: SyntheticSource generates
// plausible records, LiveSource fetches and parses venue pages.
type DataSourceCapability interface {
	// Name identifies the capability in logs and status output.
	Name() string

	// Fetch returns candidates for the venue on the given channel.
	Fetch(ctx context.Context, channel models.SourceChannel, venue models.Venue) ([]models.CandidateEvent, error)

	// HealthCheck verifies the capability can reach its data.
	HealthCheck(ctx context.Context) error
}
