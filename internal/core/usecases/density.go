package usecases

import (
	"fmt"

	"github.com/samirrijal/criticaltracks/internal/core/domain"
	"github.com/samirrijal/criticaltracks/internal/pkg/config"
	"github.com/samirrijal/criticaltracks/internal/pkg/geospatial"
)

// Default density filter parameters.
const (
	DefaultNeighbors    = 3
	DefaultRadiusMeters = 100.0
)

// DensityFilter keeps points that sit in a locally dense cluster.
//
// A target point is kept when at least Neighbors points of its snapshot lie
// strictly closer than RadiusMeters. The target is itself a member of the
// candidate set and counts toward the threshold (distance 0), so the default
// of 3 means "the point and two others".
type DensityFilter struct {
	Neighbors    int
	RadiusMeters float32
}

// DefaultDensityFilter returns the filter with documented defaults.
func DefaultDensityFilter() DensityFilter {
	return DensityFilter{Neighbors: DefaultNeighbors, RadiusMeters: DefaultRadiusMeters}
}

// NewDensityFilter builds a filter from configuration.
func NewDensityFilter(cfg config.FilterConfig) (DensityFilter, error) {
	if cfg.Neighbors < 1 {
		return DensityFilter{}, fmt.Errorf("neighbors must be at least 1, got %d", cfg.Neighbors)
	}
	if cfg.RadiusMeters <= 0 {
		return DensityFilter{}, fmt.Errorf("radius must be positive, got %g", cfg.RadiusMeters)
	}
	return DensityFilter{Neighbors: cfg.Neighbors, RadiusMeters: float32(cfg.RadiusMeters)}, nil
}

// Keep reports whether target has enough neighbors among candidates.
// candidates must include target itself; the scan stops as soon as the
// threshold is reached.
func (f DensityFilter) Keep(target domain.Coordinate, candidates []domain.Coordinate) bool {
	found := 0
	for _, candidate := range candidates {
		if geospatial.Haversine(candidate, target) < f.RadiusMeters {
			found++
			if found >= f.Neighbors {
				return true
			}
		}
	}
	return false
}
