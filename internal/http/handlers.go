package http

import (
	"encoding/csv"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"cpiview/internal/core"
	"cpiview/internal/services"
)

// chartSeries is one trace bundle in the chart payload. YoY entries are nil
// for the first year of data, where no twelve-month-earlier base exists.
type chartSeries struct {
	Name  string     `json:"name"`
	Color string     `json:"color"`
	Stale bool       `json:"stale"`
	Dates []string   `json:"dates"`
	Index []float64  `json:"index"`
	YoY   []*float64 `json:"yoy"`
}

type chartPayload struct {
	ShowIndex bool          `json:"show_index"`
	ShowYoY   bool          `json:"show_yoy"`
	Series    []chartSeries `json:"series"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	vs := core.DecodeViewState(r.URL.Query(), s.series.Catalog(), time.Now())

	type seriesOption struct {
		Name     string
		Selected bool
	}
	type viewOption struct {
		Value    string
		Selected bool
	}

	selected := make(map[string]bool, len(vs.Series))
	for _, name := range vs.Series {
		selected[name] = true
	}

	data := struct {
		Series    []seriesOption
		StartDate string
		EndDate   string
		Views     []viewOption
		Query     template.URL
	}{
		StartDate: vs.Range.Start.Format(core.DateLayout),
		EndDate:   vs.Range.End.Format(core.DateLayout),
		Query:     template.URL(vs.Encode().Encode()),
	}
	for _, name := range s.series.Catalog().Names() {
		data.Series = append(data.Series, seriesOption{Name: name, Selected: selected[name]})
	}
	for _, v := range []core.ViewType{core.ViewIndex, core.ViewYoY, core.ViewBoth} {
		data.Views = append(data.Views, viewOption{Value: string(v), Selected: v == vs.View})
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleChart renders the chart partial for the current view state. Upstream
// failures become an on-page notice, never a 5xx.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	vs := core.DecodeViewState(r.URL.Query(), s.series.Catalog(), time.Now())
	res, err := s.series.FetchSeries(r.Context(), vs)
	if err != nil {
		slog.ErrorContext(r.Context(), "Series fetch error", "error", err)
		writeNotice(w, "Error fetching data: "+err.Error())
		return
	}
	if res.AllFailed() {
		slog.WarnContext(r.Context(), "All selected series failed", "selected", len(vs.Series))
		writeNotice(w, res.FailureSummary())
		return
	}

	payload := buildChartPayload(res, vs.View)
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(r.Context(), "Chart payload encode error", "error", err)
		writeNotice(w, "Error rendering chart")
		return
	}

	var stale []string
	for _, series := range res.Series {
		if series.Stale {
			stale = append(stale, series.Name)
		}
	}

	data := struct {
		Payload template.JS
		Warning string
		Stale   []string
	}{
		Payload: template.JS(raw),
		Warning: res.FailureSummary(),
		Stale:   stale,
	}
	if s.templates == nil {
		writeNotice(w, "templates not loaded")
		return
	}
	if err := s.templates.ExecuteTemplate(w, "chart.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "chart.html")
		writeNotice(w, "Error rendering chart")
	}
}

// handleObservations renders the raw data table partial.
func (s *Server) handleObservations(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	vs := core.DecodeViewState(r.URL.Query(), s.series.Catalog(), time.Now())
	res, err := s.series.FetchSeries(r.Context(), vs)
	if err != nil {
		slog.ErrorContext(r.Context(), "Series fetch error", "error", err)
		writeNotice(w, "Error fetching data: "+err.Error())
		return
	}
	if res.AllFailed() {
		writeNotice(w, res.FailureSummary())
		return
	}

	type obsRow struct {
		Date  string
		Value string
		YoY   string
	}
	type obsTable struct {
		Name  string
		Stale bool
		Rows  []obsRow
	}

	var tables []obsTable
	for _, series := range res.Series {
		t := obsTable{Name: series.Name, Stale: series.Stale}
		yoy := core.YearOverYear(series.Observations)
		for i, o := range series.Observations {
			row := obsRow{
				Date:  o.Date.Format(core.DateLayout),
				Value: strconv.FormatFloat(o.Value, 'f', -1, 64),
			}
			if yoy[i].Defined {
				row.YoY = strconv.FormatFloat(yoy[i].Pct, 'f', 2, 64) + "%"
			}
			t.Rows = append(t.Rows, row)
		}
		tables = append(tables, t)
	}

	data := struct {
		Tables  []obsTable
		Warning string
	}{Tables: tables, Warning: res.FailureSummary()}
	if s.templates == nil {
		writeNotice(w, "templates not loaded")
		return
	}
	if err := s.templates.ExecuteTemplate(w, "observations.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "observations.html")
		writeNotice(w, "Error rendering observations")
	}
}

// handleShareLink renders a copyable URL reproducing the current view state.
func (s *Server) handleShareLink(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	vs := core.DecodeViewState(r.URL.Query(), s.series.Catalog(), time.Now())
	link := vs.ShareURL(baseURL(r))

	data := struct{ URL string }{URL: link}
	if s.templates == nil {
		_, _ = w.Write([]byte(`<input type="text" readonly value="` + template.HTMLEscapeString(link) + `">`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "share.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "share.html")
		writeNotice(w, "Error rendering share link")
	}
}

// handleExportCSV streams the selected observations as a CSV download.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	vs := core.DecodeViewState(r.URL.Query(), s.series.Catalog(), time.Now())
	res, err := s.series.FetchSeries(r.Context(), vs)
	if err != nil {
		http.Error(w, "export failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	if res.AllFailed() {
		http.Error(w, res.FailureSummary(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="cpi-observations.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"series", "series_id", "date", "value"})
	for _, series := range res.Series {
		for _, o := range series.Observations {
			_ = cw.Write([]string{
				series.Name,
				series.FredID,
				o.Date.Format(core.DateLayout),
				strconv.FormatFloat(o.Value, 'f', -1, 64),
			})
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.ErrorContext(r.Context(), "CSV export write error", "error", err)
	}
}

func buildChartPayload(res services.Result, view core.ViewType) chartPayload {
	payload := chartPayload{
		ShowIndex: view.ShowsIndex(),
		ShowYoY:   view.ShowsYoY(),
	}
	for i, series := range res.Series {
		cs := chartSeries{
			Name:  series.Name,
			Color: core.ColorFor(i),
			Stale: series.Stale,
		}
		yoy := core.YearOverYear(series.Observations)
		for j, o := range series.Observations {
			cs.Dates = append(cs.Dates, o.Date.Format(core.DateLayout))
			cs.Index = append(cs.Index, o.Value)
			if yoy[j].Defined {
				pct := yoy[j].Pct
				cs.YoY = append(cs.YoY, &pct)
			} else {
				cs.YoY = append(cs.YoY, nil)
			}
		}
		payload.Series = append(payload.Series, cs)
	}
	return payload
}

func writeNotice(w http.ResponseWriter, msg string) {
	_, _ = w.Write([]byte(`<div class="notice error">` + template.HTMLEscapeString(msg) + `</div>`))
}

// baseURL rebuilds the externally visible page URL for share links.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + "/"
}
