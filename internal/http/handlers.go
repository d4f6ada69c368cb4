package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"

	sqlitestore "go-co2-emissions-dashboard/internal/connectors/sqlite"
	"go-co2-emissions-dashboard/internal/dataset"
	"go-co2-emissions-dashboard/internal/emissions"
	"go-co2-emissions-dashboard/internal/logging"
	"go-co2-emissions-dashboard/internal/render"
	"go-co2-emissions-dashboard/internal/storage"
	"go-co2-emissions-dashboard/internal/views"
)

// selector resolves the selection of a request against the configured preset.
type selector struct {
	dash   *views.Dashboard
	year   int
	metric emissions.Metric
}

func (s selector) Default() views.Selection {
	return views.DefaultSelection(s.dash.Table(), s.year, s.metric)
}

func (s selector) FromRequest(r *nethttp.Request) (views.Selection, error) {
	q := r.URL.Query()
	return views.ParseSelection(q.Get("year"), q.Get("metric"), s.Default())
}

// emissionRow is the JSON shape of a record. Missing values are null.
type emissionRow struct {
	Country   string   `json:"country"`
	ISOCode   string   `json:"iso_code,omitempty"`
	Year      int      `json:"year"`
	Total     *float64 `json:"total"`
	Coal      *float64 `json:"coal"`
	Oil       *float64 `json:"oil"`
	Gas       *float64 `json:"gas"`
	Cement    *float64 `json:"cement"`
	Flaring   *float64 `json:"flaring"`
	Other     *float64 `json:"other"`
	PerCapita *float64 `json:"per_capita"`
}

func toRows(records []emissions.Record) []emissionRow {
	out := make([]emissionRow, 0, len(records))
	for _, r := range records {
		out = append(out, emissionRow{
			Country:   r.Country,
			ISOCode:   r.ISOCode,
			Year:      r.Year,
			Total:     emissions.Nullable(r.Total),
			Coal:      emissions.Nullable(r.Coal),
			Oil:       emissions.Nullable(r.Oil),
			Gas:       emissions.Nullable(r.Gas),
			Cement:    emissions.Nullable(r.Cement),
			Flaring:   emissions.Nullable(r.Flaring),
			Other:     emissions.Nullable(r.Other),
			PerCapita: emissions.Nullable(r.PerCapita),
		})
	}
	return out
}

func optionsHandler(sel selector) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		tbl := sel.dash.Table()
		if tbl == nil {
			writeError(w, views.ErrNoData, "dataset not loaded")
			return
		}
		first, last := tbl.YearRange()
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{
				"first_year": first,
				"last_year":  last,
			},
			"data": views.Options(tbl, sel.Default()),
		})
	}
}

func dashboardDataHandler(sel selector) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		s, err := sel.FromRequest(r)
		if err != nil {
			writeError(w, err, "invalid selection")
			return
		}
		u, err := sel.dash.Update(r.Context(), s)
		if err != nil {
			writeError(w, err, "failed to compute dashboard")
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{
				"year":         u.Selection.Year,
				"metric":       u.Selection.Metric,
				"generated_at": u.GeneratedAt,
			},
			"data": u,
		})
	}
}

func figureRouter(sel selector) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/figures/"), "/")
		if !knownFigure(name) {
			writeJSON(w, nethttp.StatusNotFound, map[string]any{
				"error": fmt.Sprintf("unknown figure %q", name),
			})
			return
		}
		s, err := sel.FromRequest(r)
		if err != nil {
			writeError(w, err, "invalid selection")
			return
		}
		fig, err := sel.dash.Figure(r.Context(), name, s)
		if err != nil {
			writeError(w, err, "failed to compute figure")
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{
				"name":   name,
				"year":   s.Year,
				"metric": s.Metric,
				"empty":  fig.Empty(),
			},
			"data": fig,
		})
	}
}

// chartRouter serves /charts/{name} as go-echarts HTML and /charts/{name}.png
// as a static image.
func chartRouter(sel selector) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/charts/"), "/")
		asPNG := strings.HasSuffix(name, ".png")
		name = strings.TrimSuffix(name, ".png")
		if !knownFigure(name) {
			writeJSON(w, nethttp.StatusNotFound, map[string]any{
				"error": fmt.Sprintf("unknown chart %q", name),
			})
			return
		}
		s, err := sel.FromRequest(r)
		if err != nil {
			writeError(w, err, "invalid selection")
			return
		}
		fig, err := sel.dash.Figure(r.Context(), name, s)
		if err != nil {
			writeError(w, err, "failed to compute figure")
			return
		}

		var buf bytes.Buffer
		contentType := "text/html; charset=utf-8"
		if asPNG {
			contentType = "image/png"
			width := parsePositive(r.URL.Query().Get("width"), render.PNGSize.Width, 4096)
			height := parsePositive(r.URL.Query().Get("height"), render.PNGSize.Height, 4096)
			err = render.RenderPNG(&buf, fig, width, height)
		} else {
			err = render.RenderHTML(&buf, fig, render.DefaultSize)
		}
		if err != nil {
			writeError(w, err, "failed to render chart")
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(nethttp.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}

// emissionsHandler exports rows of one year, or every row when year is empty.
func emissionsHandler(defaultLimit int, sel selector) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		tbl := sel.dash.Table()
		if tbl == nil {
			writeError(w, views.ErrNoData, "dataset not loaded")
			return
		}

		year := 0
		if raw := strings.TrimSpace(r.URL.Query().Get("year")); raw != "" {
			s, err := views.ParseSelection(raw, "", sel.Default())
			if err != nil {
				writeError(w, err, "invalid year")
				return
			}
			year = s.Year
		}

		switch format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))); format {
		case "csv":
			var buf bytes.Buffer
			if err := tbl.WriteCSV(&buf, year); err != nil {
				writeError(w, err, "failed to export csv")
				return
			}
			filename := "co2_emissions.csv"
			if year > 0 {
				filename = fmt.Sprintf("co2_emissions_%d.csv", year)
			}
			w.Header().Set("Content-Type", "text/csv")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
			w.WriteHeader(nethttp.StatusOK)
			_, _ = w.Write(buf.Bytes())
		case "", "json":
			rows := tbl.Records()
			if year > 0 {
				rows = tbl.ForYear(year)
			}
			total := len(rows)
			limit := parseLimit(r, defaultLimit)
			offset := parseOffset(r)
			if offset > total {
				offset = total
			}
			end := offset + limit
			if end > total {
				end = total
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{
				"meta": map[string]any{
					"year":   year,
					"limit":  limit,
					"offset": offset,
					"total":  total,
					"count":  end - offset,
				},
				"data": toRows(rows[offset:end]),
			})
		default:
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{
				"error": fmt.Sprintf("unsupported format %q (expected json or csv)", format),
			})
		}
	}
}

func summaryHandler(sel selector) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		s, err := sel.FromRequest(r)
		if err != nil {
			writeError(w, err, "invalid selection")
			return
		}
		tbl := sel.dash.Table()
		if tbl == nil {
			writeError(w, views.ErrNoData, "dataset not loaded")
			return
		}
		top := parseLimit(r, sel.dash.TopN())
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{
				"year":   s.Year,
				"metric": s.Metric,
				"top":    top,
			},
			"data": views.Summarize(tbl, s, top),
		})
	}
}

func reloadHandler(provider *dataset.Provider) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			w.Header().Set("Allow", nethttp.MethodPost)
			writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
			return
		}
		if provider == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{"error": "no dataset source configured"})
			return
		}
		if _, err := provider.Reload(r.Context()); err != nil {
			writeError(w, err, "dataset reload failed")
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{"source": provider.SourceName()},
			"data": provider.Status(),
		})
	}
}

func knownFigure(name string) bool {
	for _, n := range views.FigureNames {
		if n == name {
			return true
		}
	}
	return false
}

// errorStatus maps domain errors to response codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, views.ErrInvalidYear), errors.Is(err, emissions.ErrInvalidMetric):
		return nethttp.StatusBadRequest
	case errors.Is(err, views.ErrUnknownFigure),
		errors.Is(err, sqlitestore.ErrViewNotFound),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, render.ErrEmpty):
		return nethttp.StatusNotFound
	case errors.Is(err, render.ErrUnsupported):
		return nethttp.StatusUnsupportedMediaType
	case errors.Is(err, views.ErrNoData), errors.Is(err, dataset.ErrNotLoaded):
		return nethttp.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, nethttp.ErrHandlerTimeout):
		return nethttp.StatusGatewayTimeout
	default:
		return nethttp.StatusInternalServerError
	}
}

// writeError responds with the status of err. Client errors carry the error
// text; server errors only carry msg.
func writeError(w nethttp.ResponseWriter, err error, msg string) {
	status := errorStatus(err)
	text := msg
	if status < nethttp.StatusInternalServerError || status == nethttp.StatusServiceUnavailable || status == nethttp.StatusUnsupportedMediaType {
		text = err.Error()
	}
	if status >= nethttp.StatusInternalServerError {
		logging.Component("http").Warn(msg, "error", err, "status", status)
	}
	writeJSON(w, status, map[string]any{"error": text})
}

func parseLimit(r *nethttp.Request, defaultLimit int) int {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}
	return limit
}

func parseOffset(r *nethttp.Request) int {
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return offset
}

func parsePositive(raw string, def, max int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

func decodeJSON(w nethttp.ResponseWriter, r *nethttp.Request, dst any) error {
	dec := json.NewDecoder(nethttp.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func elapsedSeconds(start time.Time) float64 {
	return time.Since(start).Seconds()
}
