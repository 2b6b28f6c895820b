// Package worker keeps the local observation snapshot fresh: it consumes
// refresh requests from the web process and re-fetches the whole catalog on
// a schedule.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"cpiview/internal/amqp"
	"cpiview/internal/core"
	"cpiview/internal/source"
)

// refreshConcurrency bounds parallel upstream fetches during a catalog sweep.
const refreshConcurrency = 2

// ObservationLogger appends fetched observations to an external log, such as
// a Google Sheets tab. Implementations must tolerate repeated rows.
type ObservationLogger interface {
	AppendObservations(ctx context.Context, seriesName, seriesID string, obs []core.Observation) error
}

// SnapshotWorker fetches series from the live source and persists them.
type SnapshotWorker struct {
	catalog *core.Catalog
	reader  source.ObservationReader
	store   source.ObservationWriter
	logger  ObservationLogger // optional
}

func NewSnapshotWorker(catalog *core.Catalog, reader source.ObservationReader, store source.ObservationWriter, logger ObservationLogger) *SnapshotWorker {
	return &SnapshotWorker{
		catalog: catalog,
		reader:  reader,
		store:   store,
		logger:  logger,
	}
}

// HandleRefreshMessage processes one refresh request from the queue.
// Returning an error requeues the delivery.
func (w *SnapshotWorker) HandleRefreshMessage(ctx context.Context, msg *amqp.RefreshMessage) error {
	r, err := parseRange(msg.StartDate, msg.EndDate)
	if err != nil {
		// A bad range will never become fetchable; log and drop instead
		// of requeueing forever.
		slog.WarnContext(ctx, "Dropping refresh message with bad range",
			"series_id", msg.SeriesID,
			"start_date", msg.StartDate,
			"end_date", msg.EndDate,
			"error", err)
		return nil
	}
	return w.refreshSeries(ctx, seriesName(w.catalog, msg.SeriesID), msg.SeriesID, r)
}

// RefreshCatalog re-fetches every catalog series over the default window.
// Used by the cron schedule and the startup sweep.
func (w *SnapshotWorker) RefreshCatalog(ctx context.Context) error {
	r := core.DefaultRange(time.Now())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshConcurrency)
	for _, e := range w.catalog.Entries() {
		g.Go(func() error {
			if err := w.refreshSeries(gctx, e.Name, e.FredID, r); err != nil {
				// Keep sweeping the remaining series.
				slog.ErrorContext(gctx, "Catalog refresh failed for series",
					"series", e.Name,
					"series_id", e.FredID,
					"error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (w *SnapshotWorker) refreshSeries(ctx context.Context, name, seriesID string, r core.DateRange) error {
	obs, err := w.reader.ReadObservations(ctx, seriesID, r)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", seriesID, err)
	}
	if len(obs) == 0 {
		slog.InfoContext(ctx, "No observations to snapshot", "series_id", seriesID)
		return nil
	}

	if err := w.store.WriteObservations(ctx, seriesID, obs); err != nil {
		return fmt.Errorf("snapshot %s: %w", seriesID, err)
	}

	if w.logger != nil {
		if err := w.logger.AppendObservations(ctx, name, seriesID, obs); err != nil {
			// The sheet log is best effort; the snapshot already landed.
			slog.WarnContext(ctx, "Observation log append failed",
				"series_id", seriesID,
				"error", err)
		}
	}

	slog.InfoContext(ctx, "Series refreshed",
		"series", name,
		"series_id", seriesID,
		"observations", len(obs),
		"start_date", r.Start.Format(core.DateLayout),
		"end_date", r.End.Format(core.DateLayout))
	return nil
}

func parseRange(startDate, endDate string) (core.DateRange, error) {
	start, err := time.Parse(core.DateLayout, startDate)
	if err != nil {
		return core.DateRange{}, fmt.Errorf("parse start date %q: %w", startDate, err)
	}
	end, err := time.Parse(core.DateLayout, endDate)
	if err != nil {
		return core.DateRange{}, fmt.Errorf("parse end date %q: %w", endDate, err)
	}
	r := core.DateRange{Start: start, End: end}.Normalize(time.Now())
	return r, r.Validate()
}

func seriesName(catalog *core.Catalog, seriesID string) string {
	for _, e := range catalog.Entries() {
		if e.FredID == seriesID {
			return e.Name
		}
	}
	return seriesID
}
