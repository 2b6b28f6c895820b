// Package memory provides a fixture-backed observation source for local
// development and tests. No network access, deterministic data.
package memory

import (
	"context"
	"math"
	"sync"
	"time"

	"cpiview/internal/core"
	"cpiview/internal/source"
)

type Store struct {
	mu     sync.Mutex
	series map[string][]core.Observation
}

var (
	_ source.ObservationReader = (*Store)(nil)
	_ source.ObservationWriter = (*Store)(nil)
)

func New() *Store {
	return &Store{series: make(map[string][]core.Observation)}
}

// NewSeeded generates smooth synthetic monthly observations for every series
// in the catalog, from the FRED epoch up to now.
func NewSeeded(catalog *core.Catalog, now time.Time) *Store {
	s := New()
	for i, e := range catalog.Entries() {
		var obs []core.Observation
		base := 100.0 + float64(i)*7
		d := core.FREDEpoch
		for n := 0; !d.After(now); n++ {
			// Gentle exponential growth with a small seasonal wobble.
			v := base * math.Pow(1.0025, float64(n)) * (1 + 0.01*math.Sin(float64(n)/6))
			obs = append(obs, core.Observation{Date: d, Value: v})
			d = d.AddDate(0, 1, 0)
		}
		s.series[e.FredID] = obs
	}
	return s
}

// ReadObservations implements source.ObservationReader.
func (s *Store) ReadObservations(_ context.Context, seriesID string, r core.DateRange) ([]core.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.ClipObservations(s.series[seriesID], r), nil
}

// WriteObservations implements source.ObservationWriter, replacing stored
// points that share a date with incoming ones.
func (s *Store) WriteObservations(_ context.Context, seriesID string, obs []core.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byDate := make(map[time.Time]core.Observation, len(s.series[seriesID])+len(obs))
	for _, o := range s.series[seriesID] {
		byDate[o.Date] = o
	}
	for _, o := range obs {
		byDate[o.Date] = o
	}

	merged := make([]core.Observation, 0, len(byDate))
	for _, o := range byDate {
		merged = append(merged, o)
	}
	core.SortObservations(merged)
	s.series[seriesID] = merged
	return nil
}
