// Package services orchestrates series fetches for the dashboard: cache in
// front, the live source behind it, and the snapshot store as a fallback
// when the upstream is unreachable.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"cpiview/internal/amqp"
	"cpiview/internal/cache"
	"cpiview/internal/core"
	"cpiview/internal/source"
)

// maxConcurrentFetches bounds parallel upstream requests per page render.
const maxConcurrentFetches = 4

// RefreshPublisher emits refresh requests for the snapshot worker.
type RefreshPublisher interface {
	PublishRefresh(ctx context.Context, msg *amqp.RefreshMessage) error
}

// SeriesFailure describes one series that could not be fetched.
type SeriesFailure struct {
	Name string
	Err  error
}

// Result is the outcome of a multi-series fetch. Series holds the successes
// in selection order; Failed holds the rest.
type Result struct {
	Series []core.Series
	Failed []SeriesFailure
}

// AllFailed reports whether nothing could be fetched at all.
func (r Result) AllFailed() bool {
	return len(r.Series) == 0 && len(r.Failed) > 0
}

// FailureSummary renders the failures as one user-facing line.
func (r Result) FailureSummary() string {
	if len(r.Failed) == 0 {
		return ""
	}
	parts := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		parts[i] = fmt.Sprintf("%s (%v)", f.Name, f.Err)
	}
	return "Error fetching data: " + strings.Join(parts, "; ")
}

// SeriesService fetches the selected series for a view state.
type SeriesService struct {
	catalog   *core.Catalog
	reader    source.ObservationReader
	fallback  source.ObservationReader // optional snapshot store
	cache     cache.Cache[[]core.Observation]
	publisher RefreshPublisher // optional
	timeout   time.Duration
}

// NewSeriesService wires the fetch pipeline. fallback and publisher may be
// nil; the service then serves errors directly and emits no refresh events.
func NewSeriesService(catalog *core.Catalog, reader source.ObservationReader, fallback source.ObservationReader, c cache.Cache[[]core.Observation], publisher RefreshPublisher, timeout time.Duration) *SeriesService {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &SeriesService{
		catalog:   catalog,
		reader:    reader,
		fallback:  fallback,
		cache:     c,
		publisher: publisher,
		timeout:   timeout,
	}
}

// Catalog exposes the series catalog backing this service.
func (s *SeriesService) Catalog() *core.Catalog { return s.catalog }

// FetchSeries fetches every selected series concurrently. Successes keep
// selection order; failures never abort the rest of the page.
func (s *SeriesService) FetchSeries(ctx context.Context, vs core.ViewState) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type slot struct {
		series core.Series
		err    error
	}
	slots := make([]slot, len(vs.Series))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	for i, name := range vs.Series {
		g.Go(func() error {
			series, err := s.fetchOne(gctx, name, vs.Range)
			slots[i] = slot{series: series, err: err}
			return nil // a single series failure must not cancel the siblings
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var res Result
	for i, sl := range slots {
		if sl.err != nil {
			res.Failed = append(res.Failed, SeriesFailure{Name: vs.Series[i], Err: sl.err})
			continue
		}
		res.Series = append(res.Series, sl.series)
	}
	return res, nil
}

func (s *SeriesService) fetchOne(ctx context.Context, name string, r core.DateRange) (core.Series, error) {
	id, err := s.catalog.FredID(name)
	if err != nil {
		return core.Series{}, err
	}
	series := core.Series{Name: name, FredID: id}

	key := cacheKey(id, r)
	if s.cache != nil {
		if obs, found := s.cache.Get(key); found {
			slog.DebugContext(ctx, "Series cache hit", "series_id", id, "observations", len(obs))
			series.Observations = obs
			return series, nil
		}
	}

	obs, err := s.reader.ReadObservations(ctx, id, r)
	if err != nil {
		slog.WarnContext(ctx, "Upstream fetch failed", "series_id", id, "error", err)
		return s.fromSnapshot(ctx, series, r, err)
	}

	if s.cache != nil {
		s.cache.Set(key, obs)
	}
	s.requestRefresh(ctx, id, r)

	series.Observations = obs
	return series, nil
}

// fromSnapshot serves the last snapshot after an upstream failure. The
// original error is returned when no snapshot data exists.
func (s *SeriesService) fromSnapshot(ctx context.Context, series core.Series, r core.DateRange, cause error) (core.Series, error) {
	if s.fallback == nil {
		return core.Series{}, cause
	}
	obs, err := s.fallback.ReadObservations(ctx, series.FredID, r)
	if err != nil || len(obs) == 0 {
		return core.Series{}, cause
	}
	slog.InfoContext(ctx, "Serving snapshot data after upstream failure",
		"series_id", series.FredID,
		"observations", len(obs),
		"error", cause)
	series.Observations = obs
	series.Stale = true
	return series, nil
}

// requestRefresh asks the worker to snapshot fresh data. Fire and forget: a
// broker outage must not affect the page.
func (s *SeriesService) requestRefresh(ctx context.Context, seriesID string, r core.DateRange) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewRefreshMessage(seriesID, r.Start.Format(core.DateLayout), r.End.Format(core.DateLayout))
	if err := s.publisher.PublishRefresh(ctx, msg); err != nil {
		slog.WarnContext(ctx, "Refresh publish failed", "series_id", seriesID, "error", err)
	}
}

func cacheKey(seriesID string, r core.DateRange) string {
	return seriesID + "|" + r.Start.Format(core.DateLayout) + "|" + r.End.Format(core.DateLayout)
}
