package core

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	if got := c.Len(); got != 9 {
		t.Fatalf("Len() = %d, want 9", got)
	}

	id, err := c.FredID("Housing")
	if err != nil {
		t.Fatalf("FredID(Housing) error = %v", err)
	}
	if id != "CPIHOSSL" {
		t.Errorf("FredID(Housing) = %q, want CPIHOSSL", id)
	}

	if _, err := c.FredID("Not A Series"); err != ErrUnknownSeries {
		t.Errorf("FredID(unknown) error = %v, want ErrUnknownSeries", err)
	}

	want := []string{"All Items", "All Items Less Food and Energy"}
	if diff := cmp.Diff(want, c.DefaultSelection()); diff != "" {
		t.Errorf("DefaultSelection() mismatch (-want +got):\n%s", diff)
	}
}

func TestNewCatalog_DropsInvalidAndDuplicates(t *testing.T) {
	c := NewCatalog([]CatalogEntry{
		{Name: "All Items", FredID: "CPIAUCSL"},
		{Name: "All Items", FredID: "DUPLICATE"},
		{Name: "", FredID: "CPIXXXXX"},
		{Name: "No ID", FredID: "  "},
		{Name: " Housing ", FredID: " CPIHOSSL "},
	})

	if got := c.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
	if id, _ := c.FredID("All Items"); id != "CPIAUCSL" {
		t.Errorf("duplicate overwrote original: FredID = %q", id)
	}
	if id, _ := c.FredID("Housing"); id != "CPIHOSSL" {
		t.Errorf("trimmed entry not found: FredID = %q", id)
	}
}

func TestDateRange_Normalize(t *testing.T) {
	now := date(2026, 8, 23)

	tests := []struct {
		name string
		in   DateRange
		want DateRange
	}{
		{
			name: "zero range uses five year default",
			in:   DateRange{},
			want: DateRange{Start: date(2021, 8, 23), End: date(2026, 8, 23)},
		},
		{
			name: "end before start is swapped",
			in:   DateRange{Start: date(2024, 1, 1), End: date(2020, 1, 1)},
			want: DateRange{Start: date(2020, 1, 1), End: date(2024, 1, 1)},
		},
		{
			name: "start clamped to epoch",
			in:   DateRange{Start: date(1900, 1, 1), End: date(2000, 1, 1)},
			want: DateRange{Start: FREDEpoch, End: date(2000, 1, 1)},
		},
		{
			name: "fully pre-epoch range collapses to epoch",
			in:   DateRange{Start: date(1800, 1, 1), End: date(1900, 1, 1)},
			want: DateRange{Start: FREDEpoch, End: FREDEpoch},
		},
		{
			name: "inverted range clamped after swap",
			in:   DateRange{Start: date(2000, 1, 1), End: date(1900, 1, 1)},
			want: DateRange{Start: FREDEpoch, End: date(2000, 1, 1)},
		},
		{
			name: "missing end filled from default",
			in:   DateRange{Start: date(2010, 6, 1)},
			want: DateRange{Start: date(2010, 6, 1), End: date(2026, 8, 23)},
		},
		{
			name: "valid range untouched",
			in:   DateRange{Start: date(2019, 1, 1), End: date(2024, 12, 31)},
			want: DateRange{Start: date(2019, 1, 1), End: date(2024, 12, 31)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize(now)
			if !got.Start.Equal(tt.want.Start) || !got.End.Equal(tt.want.End) {
				t.Errorf("Normalize() = [%s, %s], want [%s, %s]",
					got.Start.Format(DateLayout), got.End.Format(DateLayout),
					tt.want.Start.Format(DateLayout), tt.want.End.Format(DateLayout))
			}
			if err := got.Validate(); err != nil {
				t.Errorf("normalized range invalid: %v", err)
			}
		})
	}
}

func TestClipObservations(t *testing.T) {
	obs := []Observation{
		{Date: date(2020, 1, 1), Value: 100},
		{Date: date(2020, 2, 1), Value: 101},
		{Date: date(2020, 3, 1), Value: 102},
		{Date: date(2020, 4, 1), Value: 103},
	}

	got := ClipObservations(obs, DateRange{Start: date(2020, 2, 1), End: date(2020, 3, 15)})
	if len(got) != 2 {
		t.Fatalf("ClipObservations returned %d points, want 2", len(got))
	}
	if got[0].Value != 101 || got[1].Value != 102 {
		t.Errorf("ClipObservations values = %v, %v; want 101, 102", got[0].Value, got[1].Value)
	}

	if got := ClipObservations(obs, DateRange{Start: date(2025, 1, 1), End: date(2026, 1, 1)}); len(got) != 0 {
		t.Errorf("out-of-range clip returned %d points, want 0", len(got))
	}
}

func TestSortObservations(t *testing.T) {
	obs := []Observation{
		{Date: date(2021, 3, 1), Value: 3},
		{Date: date(2021, 1, 1), Value: 1},
		{Date: date(2021, 2, 1), Value: 2},
	}
	SortObservations(obs)
	for i := 1; i < len(obs); i++ {
		if obs[i].Date.Before(obs[i-1].Date) {
			t.Fatalf("observations not ordered at index %d", i)
		}
	}
}
