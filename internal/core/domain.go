package core

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// FREDEpoch is the first date with published CPI observations.
// Requested ranges are clamped so they never start earlier.
var FREDEpoch = time.Date(1947, time.January, 1, 0, 0, 0, 0, time.UTC)

// DateLayout is the wire format for dates in URL parameters and the FRED API.
const DateLayout = "2006-01-02"

type (
	// CatalogEntry maps a human-readable series name to its FRED series id.
	CatalogEntry struct {
		Name   string `yaml:"name"`
		FredID string `yaml:"fred_id"`
	}

	// Catalog is the ordered set of CPI series the dashboard can display.
	// Order is significant: it drives menu order and color assignment.
	Catalog struct {
		entries []CatalogEntry
		byName  map[string]string
	}

	// Observation is a single (date, value) point of a CPI series.
	Observation struct {
		Date  time.Time
		Value float64
	}

	// Series is a fetched CPI series held in memory for one page render.
	Series struct {
		Name         string
		FredID       string
		Observations []Observation
		// Stale marks data served from a local snapshot because the
		// upstream fetch failed.
		Stale bool
	}

	// DateRange is a closed calendar interval.
	DateRange struct {
		Start time.Time
		End   time.Time
	}
)

var (
	ErrUnknownSeries = errors.New("unknown series name")
	ErrEmptyRange    = errors.New("date range has zero dates")
)

// NewCatalog builds a catalog from ordered entries, dropping duplicates and
// entries with a missing name or id.
func NewCatalog(entries []CatalogEntry) *Catalog {
	c := &Catalog{byName: make(map[string]string, len(entries))}
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		id := strings.TrimSpace(e.FredID)
		if name == "" || id == "" {
			continue
		}
		if _, dup := c.byName[name]; dup {
			continue
		}
		c.entries = append(c.entries, CatalogEntry{Name: name, FredID: id})
		c.byName[name] = id
	}
	return c
}

// DefaultCatalog returns the built-in CPI series set.
func DefaultCatalog() *Catalog {
	return NewCatalog([]CatalogEntry{
		{Name: "All Items", FredID: "CPIAUCSL"},
		{Name: "All Items Less Food and Energy", FredID: "CPILFESL"},
		{Name: "Food and Beverages", FredID: "CPIFABSL"},
		{Name: "Housing", FredID: "CPIHOSSL"},
		{Name: "Transportation", FredID: "CPITRNSL"},
		{Name: "Medical Care", FredID: "CPIMEDSL"},
		{Name: "Recreation", FredID: "CPIRECSL"},
		{Name: "Education and Communication", FredID: "CPIEDUSL"},
		{Name: "Other Goods and Services", FredID: "CPIOGSSL"},
	})
}

// Names returns series names in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Name
	}
	return out
}

// Entries returns a copy of the catalog entries in order.
func (c *Catalog) Entries() []CatalogEntry {
	return append([]CatalogEntry(nil), c.entries...)
}

// FredID resolves a display name to its FRED series id.
func (c *Catalog) FredID(name string) (string, error) {
	if id, ok := c.byName[name]; ok {
		return id, nil
	}
	return "", ErrUnknownSeries
}

// Contains reports whether name is a known series.
func (c *Catalog) Contains(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int { return len(c.entries) }

// DefaultSelection is the series shown when the URL names none.
func (c *Catalog) DefaultSelection() []string {
	defaults := []string{"All Items", "All Items Less Food and Energy"}
	var out []string
	for _, name := range defaults {
		if c.Contains(name) {
			out = append(out, name)
		}
	}
	if len(out) == 0 && len(c.entries) > 0 {
		out = []string{c.entries[0].Name}
	}
	return out
}

// DefaultRange returns the five-year window ending at now.
func DefaultRange(now time.Time) DateRange {
	end := now.UTC().Truncate(24 * time.Hour)
	return DateRange{Start: end.AddDate(-5, 0, 0), End: end}
}

// Normalize swaps the endpoints when end precedes start, then clamps both to
// the FRED epoch. A zero endpoint is filled from the default window. The
// swap runs first so clamping cannot reintroduce a pre-epoch start.
func (r DateRange) Normalize(now time.Time) DateRange {
	def := DefaultRange(now)
	if r.Start.IsZero() {
		r.Start = def.Start
	}
	if r.End.IsZero() {
		r.End = def.End
	}
	if r.End.Before(r.Start) {
		r.Start, r.End = r.End, r.Start
	}
	if r.Start.Before(FREDEpoch) {
		r.Start = FREDEpoch
	}
	if r.End.Before(FREDEpoch) {
		r.End = FREDEpoch
	}
	return r
}

// Validate checks the range is usable after normalization.
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return ErrEmptyRange
	}
	if r.End.Before(r.Start) {
		return errors.New("end date before start date")
	}
	return nil
}

// Contains reports whether t falls inside the closed interval.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// SortObservations orders observations by ascending date in place.
func SortObservations(obs []Observation) {
	sort.Slice(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })
}

// ClipObservations returns the subsequence of obs inside r. The input must be
// date-ordered; the result preserves order.
func ClipObservations(obs []Observation, r DateRange) []Observation {
	var out []Observation
	for _, o := range obs {
		if r.Contains(o.Date) {
			out = append(out, o)
		}
	}
	return out
}
