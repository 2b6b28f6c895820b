package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cpiview/internal/amqp"
	"cpiview/internal/core"
)

type fakeReader struct {
	obs  map[string][]core.Observation
	errs map[string]error
}

func (f *fakeReader) ReadObservations(_ context.Context, seriesID string, _ core.DateRange) ([]core.Observation, error) {
	if err, ok := f.errs[seriesID]; ok {
		return nil, err
	}
	return f.obs[seriesID], nil
}

type fakeStore struct {
	mu     sync.Mutex
	writes map[string]int
	err    error
}

func (f *fakeStore) WriteObservations(_ context.Context, seriesID string, obs []core.Observation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.writes == nil {
		f.writes = make(map[string]int)
	}
	f.writes[seriesID] += len(obs)
	return nil
}

func (f *fakeStore) written(seriesID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes[seriesID]
}

type fakeLogger struct {
	mu    sync.Mutex
	rows  int
	names []string
	err   error
}

func (f *fakeLogger) AppendObservations(_ context.Context, seriesName, _ string, obs []core.Observation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rows += len(obs)
	f.names = append(f.names, seriesName)
	return nil
}

func someObs(n int) []core.Observation {
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	obs := make([]core.Observation, n)
	for i := range obs {
		obs[i] = core.Observation{Date: start.AddDate(0, i, 0), Value: float64(100 + i)}
	}
	return obs
}

func TestSnapshotWorker_HandleRefreshMessage(t *testing.T) {
	reader := &fakeReader{obs: map[string][]core.Observation{"CPIAUCSL": someObs(5)}}
	store := &fakeStore{}
	logger := &fakeLogger{}
	w := NewSnapshotWorker(core.DefaultCatalog(), reader, store, logger)

	msg := amqp.NewRefreshMessage("CPIAUCSL", "2022-01-01", "2022-12-31")
	if err := w.HandleRefreshMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleRefreshMessage() error = %v", err)
	}

	if got := store.written("CPIAUCSL"); got != 5 {
		t.Errorf("snapshotted %d observations, want 5", got)
	}
	if logger.rows != 5 {
		t.Errorf("logged %d rows, want 5", logger.rows)
	}
	if len(logger.names) != 1 || logger.names[0] != "All Items" {
		t.Errorf("logged names = %v, want catalog display name", logger.names)
	}
}

func TestSnapshotWorker_BadRangeDroppedWithoutError(t *testing.T) {
	w := NewSnapshotWorker(core.DefaultCatalog(), &fakeReader{}, &fakeStore{}, nil)

	msg := amqp.NewRefreshMessage("CPIAUCSL", "garbage", "2022-12-31")
	if err := w.HandleRefreshMessage(context.Background(), msg); err != nil {
		t.Fatalf("bad range should be dropped, got error %v", err)
	}
}

func TestSnapshotWorker_FetchErrorRequeues(t *testing.T) {
	reader := &fakeReader{errs: map[string]error{"CPIAUCSL": errors.New("fred down")}}
	w := NewSnapshotWorker(core.DefaultCatalog(), reader, &fakeStore{}, nil)

	msg := amqp.NewRefreshMessage("CPIAUCSL", "2022-01-01", "2022-12-31")
	if err := w.HandleRefreshMessage(context.Background(), msg); err == nil {
		t.Fatal("fetch failure should return an error for requeue")
	}
}

func TestSnapshotWorker_LoggerFailureIsBestEffort(t *testing.T) {
	reader := &fakeReader{obs: map[string][]core.Observation{"CPIAUCSL": someObs(2)}}
	store := &fakeStore{}
	w := NewSnapshotWorker(core.DefaultCatalog(), reader, store, &fakeLogger{err: errors.New("sheets down")})

	msg := amqp.NewRefreshMessage("CPIAUCSL", "2022-01-01", "2022-12-31")
	if err := w.HandleRefreshMessage(context.Background(), msg); err != nil {
		t.Fatalf("logger failure must not fail the refresh: %v", err)
	}
	if store.written("CPIAUCSL") != 2 {
		t.Error("snapshot skipped when logger failed")
	}
}

func TestSnapshotWorker_RefreshCatalog(t *testing.T) {
	catalog := core.DefaultCatalog()
	reader := &fakeReader{
		obs:  map[string][]core.Observation{},
		errs: map[string]error{"CPIHOSSL": errors.New("boom")},
	}
	for _, e := range catalog.Entries() {
		if e.FredID == "CPIHOSSL" {
			continue
		}
		reader.obs[e.FredID] = someObs(3)
	}
	store := &fakeStore{}
	w := NewSnapshotWorker(catalog, reader, store, nil)

	if err := w.RefreshCatalog(context.Background()); err != nil {
		t.Fatalf("RefreshCatalog() error = %v (per-series failures must not abort)", err)
	}

	for _, e := range catalog.Entries() {
		want := 3
		if e.FredID == "CPIHOSSL" {
			want = 0
		}
		if got := store.written(e.FredID); got != want {
			t.Errorf("series %s snapshotted %d, want %d", e.FredID, got, want)
		}
	}
}
