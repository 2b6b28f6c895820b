package memory

import (
	"context"
	"testing"
	"time"

	"cpiview/internal/core"
)

func TestStore_ReadWrite(t *testing.T) {
	s := New()
	ctx := context.Background()

	obs := []core.Observation{
		{Date: time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), Value: 2},
		{Date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), Value: 1},
	}
	if err := s.WriteObservations(ctx, "CPIAUCSL", obs); err != nil {
		t.Fatalf("WriteObservations() error = %v", err)
	}

	got, err := s.ReadObservations(ctx, "CPIAUCSL", core.DateRange{
		Start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("ReadObservations() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d observations, want 2", len(got))
	}
	if !got[0].Date.Before(got[1].Date) {
		t.Error("observations not sorted after write")
	}

	// Same-date write replaces the stored value.
	if err := s.WriteObservations(ctx, "CPIAUCSL", []core.Observation{
		{Date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), Value: 99},
	}); err != nil {
		t.Fatal(err)
	}
	got, _ = s.ReadObservations(ctx, "CPIAUCSL", core.DateRange{
		Start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if len(got) != 1 || got[0].Value != 99 {
		t.Errorf("after upsert got %v, want single value 99", got)
	}
}

func TestStore_ReadUnknownSeries(t *testing.T) {
	s := New()
	got, err := s.ReadObservations(context.Background(), "NOPE", core.DefaultRange(time.Now()))
	if err != nil {
		t.Fatalf("ReadObservations() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d observations for unknown series, want 0", len(got))
	}
}

func TestNewSeeded(t *testing.T) {
	catalog := core.DefaultCatalog()
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s := NewSeeded(catalog, now)

	r := core.DateRange{
		Start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   now,
	}
	for _, e := range catalog.Entries() {
		obs, err := s.ReadObservations(context.Background(), e.FredID, r)
		if err != nil {
			t.Fatalf("ReadObservations(%s) error = %v", e.FredID, err)
		}
		if len(obs) == 0 {
			t.Fatalf("seeded series %s is empty", e.FredID)
		}
		for i := 1; i < len(obs); i++ {
			if obs[i].Date.Before(obs[i-1].Date) {
				t.Fatalf("seeded series %s not ordered", e.FredID)
			}
		}
	}
}
