package http

import (
	"fmt"
	nethttp "net/http"
	"strings"
	"time"

	"go-co2-emissions-dashboard/internal/render"
	"go-co2-emissions-dashboard/internal/snapshot"
	"go-co2-emissions-dashboard/internal/storage"
)

// snapshotsRouter serves POST|GET /api/v1/snapshots and GET /api/v1/snapshots/{name}.
func snapshotsRouter(sel selector, client storage.Client) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if client == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"error": "snapshot storage unavailable",
			})
			return
		}

		name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/snapshots"), "/")
		if name != "" {
			if r.Method != nethttp.MethodGet {
				w.Header().Set("Allow", nethttp.MethodGet)
				writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
				return
			}
			serveSnapshot(w, r, client, name)
			return
		}

		switch r.Method {
		case nethttp.MethodGet:
			items, err := snapshot.List(r.Context(), client)
			if err != nil {
				writeError(w, err, "failed to list snapshots")
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{
				"meta": map[string]any{"count": len(items)},
				"data": items,
			})
		case nethttp.MethodPost:
			createSnapshot(w, r, sel, client)
		default:
			w.Header().Set("Allow", "GET, POST")
			writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		}
	}
}

func createSnapshot(w nethttp.ResponseWriter, r *nethttp.Request, sel selector, client storage.Client) {
	s, err := sel.FromRequest(r)
	if err != nil {
		writeError(w, err, "invalid selection")
		return
	}

	start := time.Now()
	u, err := sel.dash.Update(r.Context(), s)
	if err != nil {
		recordSnapshotRun("error", elapsedSeconds(start))
		writeError(w, err, "failed to compute dashboard")
		return
	}
	rep, err := snapshot.Build(r.Context(), u, render.DefaultSize)
	if err != nil {
		recordSnapshotRun("error", elapsedSeconds(start))
		writeError(w, err, "failed to build snapshot")
		return
	}
	obj, err := snapshot.Store(r.Context(), client, rep)
	if err != nil {
		recordSnapshotRun("error", elapsedSeconds(start))
		writeError(w, err, "failed to store snapshot")
		return
	}
	recordSnapshotRun("ok", elapsedSeconds(start))

	writeJSON(w, nethttp.StatusCreated, map[string]any{
		"meta": map[string]any{
			"id":         rep.ID,
			"year":       rep.Selection.Year,
			"metric":     rep.Selection.Metric,
			"created_at": rep.CreatedAt,
		},
		"data": obj,
	})
}

func serveSnapshot(w nethttp.ResponseWriter, r *nethttp.Request, client storage.Client, name string) {
	if strings.Contains(name, "/") || !strings.HasSuffix(name, ".html") {
		writeJSON(w, nethttp.StatusNotFound, map[string]any{"error": fmt.Sprintf("snapshot %q not found", name)})
		return
	}
	data, err := client.Get(r.Context(), snapshot.Prefix+name)
	if err != nil {
		writeError(w, err, "failed to read snapshot")
		return
	}
	w.Header().Set("Content-Type", storage.ContentType(name))
	w.WriteHeader(nethttp.StatusOK)
	_, _ = w.Write(data)
}
