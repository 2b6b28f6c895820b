package source

import (
	"context"

	"cpiview/internal/core"
)

// Ports for outbound observation adapters.
type (
	// ObservationReader fetches the observations of one series inside a
	// date range, ordered by ascending date. An empty result is valid.
	ObservationReader interface {
		ReadObservations(ctx context.Context, seriesID string, r core.DateRange) ([]core.Observation, error)
	}

	// ObservationWriter persists observations for later reads, replacing
	// any stored points for the same series and dates.
	ObservationWriter interface {
		WriteObservations(ctx context.Context, seriesID string, obs []core.Observation) error
	}
)
