package http

import (
	"fmt"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"

	sqlitestore "go-co2-emissions-dashboard/internal/connectors/sqlite"
	"go-co2-emissions-dashboard/internal/emissions"
	"go-co2-emissions-dashboard/internal/views"
)

type saveViewRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Year        int    `json:"year"`
	Metric      string `json:"metric"`
}

// savedViewsRouter serves /api/v1/views and /api/v1/views/{id}.
func savedViewsRouter(defaultLimit int, store *sqlitestore.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if store == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"error": "saved views disabled (set APP_VIEWS_SQLITE_PATH)",
			})
			return
		}

		path := strings.TrimSuffix(r.URL.Path, "/")
		if path == "/api/v1/views" {
			switch r.Method {
			case nethttp.MethodGet:
				listSavedViews(w, r, defaultLimit, store)
			case nethttp.MethodPost:
				saveView(w, r, store)
			default:
				w.Header().Set("Allow", "GET, POST")
				writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
			}
			return
		}

		rawID := strings.TrimPrefix(path, "/api/v1/views/")
		if rawID == "" || strings.Contains(rawID, "/") {
			writeJSON(w, nethttp.StatusNotFound, map[string]any{"error": "not found"})
			return
		}
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil || id <= 0 {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": fmt.Sprintf("invalid view id %q", rawID)})
			return
		}

		switch r.Method {
		case nethttp.MethodGet:
			start := time.Now()
			item, err := store.GetView(r.Context(), id)
			recordDBQuery("sqlite", "GetView", elapsedSeconds(start), err)
			if err != nil {
				writeError(w, err, "failed to fetch saved view")
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{
				"meta": map[string]any{"id": id},
				"data": item,
			})
		case nethttp.MethodDelete:
			start := time.Now()
			n, err := store.DeleteView(r.Context(), id)
			recordDBQuery("sqlite", "DeleteView", elapsedSeconds(start), err)
			if err != nil {
				writeError(w, err, "failed to delete saved view")
				return
			}
			if n == 0 {
				writeJSON(w, nethttp.StatusNotFound, map[string]any{"error": fmt.Sprintf("saved view %d not found", id)})
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{
				"meta": map[string]any{"id": id, "deleted": n},
				"data": nil,
			})
		default:
			w.Header().Set("Allow", "GET, DELETE")
			writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		}
	}
}

func listSavedViews(w nethttp.ResponseWriter, r *nethttp.Request, defaultLimit int, store *sqlitestore.Store) {
	limit := parseLimit(r, defaultLimit)
	start := time.Now()
	items, err := store.ListViews(r.Context(), limit)
	recordDBQuery("sqlite", "ListViews", elapsedSeconds(start), err)
	if err != nil {
		writeError(w, err, "failed to list saved views")
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"meta": map[string]any{
			"limit": limit,
			"count": len(items),
		},
		"data": items,
	})
}

func saveView(w nethttp.ResponseWriter, r *nethttp.Request, store *sqlitestore.Store) {
	var req saveViewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": "invalid json body"})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": "name is required"})
		return
	}
	sel, err := views.Selection{Year: req.Year, Metric: emissions.Metric(req.Metric)}.Validate()
	if err != nil {
		writeError(w, err, "invalid selection")
		return
	}

	start := time.Now()
	id, err := store.UpsertView(r.Context(), req.Name, req.Description, sel.Year, string(sel.Metric))
	recordDBQuery("sqlite", "UpsertView", elapsedSeconds(start), err)
	if err != nil {
		writeError(w, err, "failed to save view")
		return
	}
	item, err := store.GetView(r.Context(), id)
	if err != nil {
		writeError(w, err, "failed to fetch saved view")
		return
	}
	writeJSON(w, nethttp.StatusCreated, map[string]any{
		"meta": map[string]any{"id": id},
		"data": item,
	})
}
