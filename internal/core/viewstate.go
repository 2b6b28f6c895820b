package core

import (
	"net/url"
	"strings"
	"time"
)

// View type values as they appear in the view_type URL parameter.
const (
	ViewIndex ViewType = "Index Values"
	ViewYoY   ViewType = "Year-over-Year Changes"
	ViewBoth  ViewType = "Both"
)

type (
	// ViewType selects which traces the chart shows.
	ViewType string

	// ViewState is everything the page needs to reproduce itself: the
	// selected series, the date range and the view type. It round-trips
	// through the URL query string so any view is shareable.
	ViewState struct {
		Series []string
		Range  DateRange
		View   ViewType
	}
)

// Valid reports whether v is one of the three supported view types.
func (v ViewType) Valid() bool {
	switch v {
	case ViewIndex, ViewYoY, ViewBoth:
		return true
	}
	return false
}

// ShowsIndex reports whether index-value traces are drawn.
func (v ViewType) ShowsIndex() bool { return v == ViewIndex || v == ViewBoth }

// ShowsYoY reports whether year-over-year traces are drawn.
func (v ViewType) ShowsYoY() bool { return v == ViewYoY || v == ViewBoth }

// ParseViewType normalizes a raw parameter value, falling back to ViewIndex.
func ParseViewType(raw string) ViewType {
	v := ViewType(strings.TrimSpace(raw))
	if v.Valid() {
		return v
	}
	return ViewIndex
}

// DecodeViewState restores a view state from URL query parameters.
// Unknown series names are dropped, malformed dates fall back to the default
// five-year window and an inverted range is normalized. The zero query
// decodes to the default view.
func DecodeViewState(q url.Values, catalog *Catalog, now time.Time) ViewState {
	vs := ViewState{View: ParseViewType(q.Get("view_type"))}

	var r DateRange
	if t, err := time.Parse(DateLayout, strings.TrimSpace(q.Get("start_date"))); err == nil {
		r.Start = t
	}
	if t, err := time.Parse(DateLayout, strings.TrimSpace(q.Get("end_date"))); err == nil {
		r.End = t
	}
	vs.Range = r.Normalize(now)

	seen := make(map[string]struct{})
	for _, raw := range q["series"] {
		// Legacy share links encode spaces as '+' inside the value.
		name := strings.TrimSpace(strings.ReplaceAll(raw, "+", " "))
		if !catalog.Contains(name) {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		vs.Series = append(vs.Series, name)
	}
	if len(vs.Series) == 0 {
		vs.Series = catalog.DefaultSelection()
	}
	return vs
}

// Encode writes the view state back into URL query parameters.
// DecodeViewState(vs.Encode(), ...) reproduces vs for any valid state.
func (vs ViewState) Encode() url.Values {
	q := url.Values{}
	q.Set("start_date", vs.Range.Start.Format(DateLayout))
	q.Set("end_date", vs.Range.End.Format(DateLayout))
	for _, name := range vs.Series {
		q.Add("series", name)
	}
	q.Set("view_type", string(vs.View))
	return q
}

// ShareURL builds a shareable absolute or relative URL for the state.
func (vs ViewState) ShareURL(base string) string {
	base = strings.SplitN(base, "?", 2)[0]
	return base + "?" + vs.Encode().Encode()
}
