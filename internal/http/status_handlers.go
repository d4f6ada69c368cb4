package http

import (
	"context"
	nethttp "net/http"
	"time"

	mysqlstore "go-co2-emissions-dashboard/internal/connectors/mysql"
	"go-co2-emissions-dashboard/internal/connectors/remote"
	sqlitestore "go-co2-emissions-dashboard/internal/connectors/sqlite"
	"go-co2-emissions-dashboard/internal/dataset"
	"go-co2-emissions-dashboard/internal/storage"
)

// statusDeps are the backends probed by the services status endpoint. Any of
// them may be nil.
type statusDeps struct {
	provider  *dataset.Provider
	backends  *dataset.Backends
	views     *sqlitestore.Store
	snapshots storage.Client
}

func servicesStatusHandler(deps statusDeps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
		defer cancel()

		payload := map[string]any{
			"generated_at": time.Now().UTC(),
			"services":     map[string]any{},
		}
		services := payload["services"].(map[string]any)

		services["dataset"] = datasetStatus(deps.provider)
		backends := deps.backends
		if backends == nil {
			backends = &dataset.Backends{}
		}
		services["remote"] = remoteStatus(ctx, backends.Remote)
		services["mysql"] = mysqlStatus(ctx, backends.MySQL)
		services["sqlite_dataset"] = sqliteStatus(ctx, "dataset", backends.SQLite)
		services["sqlite_views"] = sqliteStatus(ctx, "views", deps.views)
		services["snapshot_storage"] = snapshotStorageStatus(deps.snapshots)

		writeJSON(w, nethttp.StatusOK, payload)
	}
}

func datasetStatus(provider *dataset.Provider) map[string]any {
	if provider == nil {
		return map[string]any{"enabled": false, "ok": false, "error": "no dataset source configured"}
	}
	st := provider.Status()
	out := map[string]any{"enabled": true, "ok": st.Loaded, "stats": st}
	if !st.Loaded {
		out["error"] = dataset.ErrNotLoaded.Error()
	}
	return out
}

func remoteStatus(ctx context.Context, client *remote.Client) map[string]any {
	if client == nil || !client.Enabled() {
		return map[string]any{"enabled": false, "ok": false, "error": "remote dataset not configured"}
	}

	start := time.Now()
	stats, err := client.ServiceStats(ctx)
	recordExternalProbe("remote_csv", "ServiceStats", time.Since(start).Seconds(), err)
	if err != nil {
		return map[string]any{"enabled": true, "ok": false, "error": err.Error(), "stats": stats}
	}
	return map[string]any{"enabled": true, "ok": true, "stats": stats}
}

func mysqlStatus(ctx context.Context, store *mysqlstore.Store) map[string]any {
	if store == nil {
		return map[string]any{"enabled": false, "ok": false, "error": "mysql dataset not configured"}
	}

	start := time.Now()
	stats, err := store.ServiceStats(ctx)
	recordDBQuery("mysql", "ServiceStats", time.Since(start).Seconds(), err)
	if err != nil {
		return map[string]any{"enabled": true, "ok": false, "error": err.Error()}
	}

	return map[string]any{"enabled": true, "ok": true, "stats": stats}
}

func sqliteStatus(ctx context.Context, role string, store *sqlitestore.Store) map[string]any {
	if store == nil {
		return map[string]any{"enabled": false, "ok": false, "error": "sqlite " + role + " store not configured"}
	}

	start := time.Now()
	err := store.Ping(ctx)
	elapsed := time.Since(start)
	recordDBQuery("sqlite", "Ping", elapsed.Seconds(), err)
	if err != nil {
		return map[string]any{"enabled": true, "ok": false, "error": err.Error(), "path": store.Path()}
	}
	return map[string]any{"enabled": true, "ok": true, "path": store.Path(), "ping_ms": elapsed.Milliseconds()}
}

func snapshotStorageStatus(client storage.Client) map[string]any {
	if client == nil {
		return map[string]any{"enabled": false, "ok": false, "error": "snapshot storage unavailable"}
	}
	return map[string]any{"enabled": true, "ok": true, "location": client.Location("")}
}
