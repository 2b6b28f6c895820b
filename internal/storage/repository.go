// Package storage persists fetched observations in SQLite so the dashboard
// can serve a recent snapshot when the upstream API is unavailable.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cpiview/internal/core"
	"cpiview/internal/source"

	_ "modernc.org/sqlite"
)

type SnapshotRepository struct {
	db *sql.DB
}

var (
	_ source.ObservationReader = (*SnapshotRepository)(nil)
	_ source.ObservationWriter = (*SnapshotRepository)(nil)
)

func NewSnapshotRepository(dbPath string) (*SnapshotRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SnapshotRepository{db: db}, nil
}

func (r *SnapshotRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// WriteObservations implements source.ObservationWriter. Points sharing a
// date with stored ones are replaced; the refresh marker is updated in the
// same transaction.
func (r *SnapshotRepository) WriteObservations(ctx context.Context, seriesID string, obs []core.Observation) error {
	if len(obs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observations (series_id, obs_date, value, fetched_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (series_id, obs_date) DO UPDATE SET
			value = excluded.value,
			fetched_at = excluded.fetched_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, o := range obs {
		if _, err := stmt.ExecContext(ctx, seriesID, o.Date.Format(core.DateLayout), o.Value); err != nil {
			return fmt.Errorf("upsert observation %s/%s: %w", seriesID, o.Date.Format(core.DateLayout), err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO series_refreshes (series_id, refreshed_at, observation_count)
		VALUES (?, CURRENT_TIMESTAMP, ?)
		ON CONFLICT (series_id) DO UPDATE SET
			refreshed_at = excluded.refreshed_at,
			observation_count = excluded.observation_count`,
		seriesID, len(obs)); err != nil {
		return fmt.Errorf("update refresh marker: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Observations snapshotted",
		"series_id", seriesID,
		"observations", len(obs))
	return nil
}

// ReadObservations implements source.ObservationReader from the snapshot.
func (r *SnapshotRepository) ReadObservations(ctx context.Context, seriesID string, dr core.DateRange) ([]core.Observation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT obs_date, value FROM observations
		WHERE series_id = ? AND obs_date >= ? AND obs_date <= ?
		ORDER BY obs_date ASC`,
		seriesID, dr.Start.Format(core.DateLayout), dr.End.Format(core.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var obs []core.Observation
	for rows.Next() {
		var dateStr string
		var value float64
		if err := rows.Scan(&dateStr, &value); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		d, err := time.Parse(core.DateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("parse stored date %q: %w", dateStr, err)
		}
		obs = append(obs, core.Observation{Date: d, Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}

	return obs, nil
}

// LastRefreshed reports when a series snapshot was last written. The second
// return value is false when the series has never been snapshotted.
func (r *SnapshotRepository) LastRefreshed(ctx context.Context, seriesID string) (time.Time, bool, error) {
	var ts time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT refreshed_at FROM series_refreshes WHERE series_id = ?`, seriesID).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query refresh marker: %w", err)
	}
	return ts, true, nil
}

// SnapshottedSeries lists the series ids present in the snapshot store.
func (r *SnapshotRepository) SnapshottedSeries(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT series_id FROM series_refreshes ORDER BY series_id`)
	if err != nil {
		return nil, fmt.Errorf("query snapshotted series: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan series id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
