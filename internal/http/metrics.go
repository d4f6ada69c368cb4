package http

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

const metricPrefix = "co2_dashboard_"

var (
	appStartedAtUnix = time.Now().Unix()
	inFlightRequests int64
	wsClients        int64
	metricsMu        sync.Mutex
	httpSeries       = map[httpMetricKey]*durationSeries{}
	loadSeries       = map[string]*loadMetricSeries{}
	dbQuerySeries    = map[dbMetricKey]*durationSeries{}
	externalSeries   = map[externalMetricKey]*durationSeries{}
	snapshotSeries   = map[string]*durationSeries{}
)

type httpMetricKey struct {
	Method string
	Path   string
	Status string
}

type dbMetricKey struct {
	Connector string
	Operation string
}

type externalMetricKey struct {
	Target    string
	Operation string
}

type durationSeries struct {
	Count              uint64
	Errors             uint64
	DurationSecondsSum float64
}

type loadMetricSeries struct {
	durationSeries
	Rows int
}

func writeHeader(w io.Writer, name, kind, help string) {
	_, _ = fmt.Fprintf(w, "# HELP %s%s %s\n", metricPrefix, name, help)
	_, _ = fmt.Fprintf(w, "# TYPE %s%s %s\n", metricPrefix, name, kind)
}

func metricsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		metricsMu.Lock()
		httpKeys := make([]httpMetricKey, 0, len(httpSeries))
		for k := range httpSeries {
			httpKeys = append(httpKeys, k)
		}
		sort.Slice(httpKeys, func(i, j int) bool {
			if httpKeys[i].Method != httpKeys[j].Method {
				return httpKeys[i].Method < httpKeys[j].Method
			}
			if httpKeys[i].Path != httpKeys[j].Path {
				return httpKeys[i].Path < httpKeys[j].Path
			}
			return httpKeys[i].Status < httpKeys[j].Status
		})
		httpSnap := make([]durationSeries, len(httpKeys))
		for i, k := range httpKeys {
			httpSnap[i] = *httpSeries[k]
		}

		sources := sortedKeys(loadSeries)
		loadSnap := make([]loadMetricSeries, len(sources))
		for i, k := range sources {
			loadSnap[i] = *loadSeries[k]
		}

		dbKeys := make([]dbMetricKey, 0, len(dbQuerySeries))
		for k := range dbQuerySeries {
			dbKeys = append(dbKeys, k)
		}
		sort.Slice(dbKeys, func(i, j int) bool {
			if dbKeys[i].Connector != dbKeys[j].Connector {
				return dbKeys[i].Connector < dbKeys[j].Connector
			}
			return dbKeys[i].Operation < dbKeys[j].Operation
		})
		dbSnap := make([]durationSeries, len(dbKeys))
		for i, k := range dbKeys {
			dbSnap[i] = *dbQuerySeries[k]
		}

		exKeys := make([]externalMetricKey, 0, len(externalSeries))
		for k := range externalSeries {
			exKeys = append(exKeys, k)
		}
		sort.Slice(exKeys, func(i, j int) bool {
			if exKeys[i].Target != exKeys[j].Target {
				return exKeys[i].Target < exKeys[j].Target
			}
			return exKeys[i].Operation < exKeys[j].Operation
		})
		exSnap := make([]durationSeries, len(exKeys))
		for i, k := range exKeys {
			exSnap[i] = *externalSeries[k]
		}

		statuses := sortedKeys(snapshotSeries)
		snapSnap := make([]durationSeries, len(statuses))
		for i, k := range statuses {
			snapSnap[i] = *snapshotSeries[k]
		}
		metricsMu.Unlock()

		httpLabels := func(k httpMetricKey) string {
			return fmt.Sprintf("method=%q,path=%q,status=%q", escapeLabel(k.Method), escapeLabel(k.Path), escapeLabel(k.Status))
		}
		writeHeader(w, "http_requests_total", "counter", "Total HTTP requests handled by this app.")
		for i, k := range httpKeys {
			_, _ = fmt.Fprintf(w, "%shttp_requests_total{%s} %d\n", metricPrefix, httpLabels(k), httpSnap[i].Count)
		}
		writeHeader(w, "http_request_duration_seconds_sum", "counter", "Total duration in seconds for observed requests.")
		for i, k := range httpKeys {
			_, _ = fmt.Fprintf(w, "%shttp_request_duration_seconds_sum{%s} %.9f\n", metricPrefix, httpLabels(k), httpSnap[i].DurationSecondsSum)
		}
		writeHeader(w, "http_request_duration_seconds_count", "counter", "Number of observed requests in duration series.")
		for i, k := range httpKeys {
			_, _ = fmt.Fprintf(w, "%shttp_request_duration_seconds_count{%s} %d\n", metricPrefix, httpLabels(k), httpSnap[i].Count)
		}
		writeHeader(w, "http_in_flight_requests", "gauge", "In-flight HTTP requests currently served by this app.")
		_, _ = fmt.Fprintf(w, "%shttp_in_flight_requests %d\n", metricPrefix, atomic.LoadInt64(&inFlightRequests))

		writeHeader(w, "dataset_loads_total", "counter", "Dataset load attempts by source.")
		for i, src := range sources {
			_, _ = fmt.Fprintf(w, "%sdataset_loads_total{source=%q} %d\n", metricPrefix, escapeLabel(src), loadSnap[i].Count)
		}
		writeHeader(w, "dataset_load_errors_total", "counter", "Failed dataset loads by source.")
		for i, src := range sources {
			_, _ = fmt.Fprintf(w, "%sdataset_load_errors_total{source=%q} %d\n", metricPrefix, escapeLabel(src), loadSnap[i].Errors)
		}
		writeHeader(w, "dataset_load_duration_seconds_sum", "counter", "Dataset load duration sum in seconds by source.")
		for i, src := range sources {
			_, _ = fmt.Fprintf(w, "%sdataset_load_duration_seconds_sum{source=%q} %.9f\n", metricPrefix, escapeLabel(src), loadSnap[i].DurationSecondsSum)
		}
		writeHeader(w, "dataset_rows", "gauge", "Rows in the last successfully loaded table by source.")
		for i, src := range sources {
			_, _ = fmt.Fprintf(w, "%sdataset_rows{source=%q} %d\n", metricPrefix, escapeLabel(src), loadSnap[i].Rows)
		}

		dbLabels := func(k dbMetricKey) string {
			return fmt.Sprintf("connector=%q,operation=%q", escapeLabel(k.Connector), escapeLabel(k.Operation))
		}
		writeHeader(w, "db_query_duration_seconds_sum", "counter", "Database query duration sum in seconds by connector/operation.")
		for i, k := range dbKeys {
			_, _ = fmt.Fprintf(w, "%sdb_query_duration_seconds_sum{%s} %.9f\n", metricPrefix, dbLabels(k), dbSnap[i].DurationSecondsSum)
		}
		writeHeader(w, "db_query_duration_seconds_count", "counter", "Database query observation count by connector/operation.")
		for i, k := range dbKeys {
			_, _ = fmt.Fprintf(w, "%sdb_query_duration_seconds_count{%s} %d\n", metricPrefix, dbLabels(k), dbSnap[i].Count)
		}
		writeHeader(w, "db_query_errors_total", "counter", "Database query errors by connector/operation.")
		for i, k := range dbKeys {
			_, _ = fmt.Fprintf(w, "%sdb_query_errors_total{%s} %d\n", metricPrefix, dbLabels(k), dbSnap[i].Errors)
		}

		exLabels := func(k externalMetricKey) string {
			return fmt.Sprintf("target=%q,operation=%q", escapeLabel(k.Target), escapeLabel(k.Operation))
		}
		writeHeader(w, "external_probe_duration_seconds_sum", "counter", "External probe duration sum in seconds by target/operation.")
		for i, k := range exKeys {
			_, _ = fmt.Fprintf(w, "%sexternal_probe_duration_seconds_sum{%s} %.9f\n", metricPrefix, exLabels(k), exSnap[i].DurationSecondsSum)
		}
		writeHeader(w, "external_probe_duration_seconds_count", "counter", "External probe observation count by target/operation.")
		for i, k := range exKeys {
			_, _ = fmt.Fprintf(w, "%sexternal_probe_duration_seconds_count{%s} %d\n", metricPrefix, exLabels(k), exSnap[i].Count)
		}
		writeHeader(w, "external_probe_errors_total", "counter", "External probe errors by target/operation.")
		for i, k := range exKeys {
			_, _ = fmt.Fprintf(w, "%sexternal_probe_errors_total{%s} %d\n", metricPrefix, exLabels(k), exSnap[i].Errors)
		}

		writeHeader(w, "snapshot_runs_total", "counter", "Snapshot run count by status.")
		for i, st := range statuses {
			_, _ = fmt.Fprintf(w, "%ssnapshot_runs_total{status=%q} %d\n", metricPrefix, escapeLabel(st), snapSnap[i].Count)
		}
		writeHeader(w, "snapshot_run_duration_seconds_sum", "counter", "Snapshot run duration sum in seconds by status.")
		for i, st := range statuses {
			_, _ = fmt.Fprintf(w, "%ssnapshot_run_duration_seconds_sum{status=%q} %.9f\n", metricPrefix, escapeLabel(st), snapSnap[i].DurationSecondsSum)
		}

		writeHeader(w, "ws_clients", "gauge", "Connected websocket clients.")
		_, _ = fmt.Fprintf(w, "%sws_clients %d\n", metricPrefix, atomic.LoadInt64(&wsClients))

		writeRuntimeMetrics(w)
	})
}

func writeRuntimeMetrics(w io.Writer) {
	uptime := time.Now().Unix() - appStartedAtUnix
	writeHeader(w, "uptime_seconds", "gauge", "Process uptime in seconds.")
	_, _ = fmt.Fprintf(w, "%suptime_seconds %d\n", metricPrefix, uptime)

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	writeHeader(w, "runtime_goroutines", "gauge", "Number of goroutines.")
	_, _ = fmt.Fprintf(w, "%sruntime_goroutines %d\n", metricPrefix, runtime.NumGoroutine())
	writeHeader(w, "runtime_memory_alloc_bytes", "gauge", "Heap allocation bytes.")
	_, _ = fmt.Fprintf(w, "%sruntime_memory_alloc_bytes %d\n", metricPrefix, ms.Alloc)
	writeHeader(w, "runtime_gc_total", "counter", "Total GC runs since process start.")
	_, _ = fmt.Fprintf(w, "%sruntime_gc_total %d\n", metricPrefix, ms.NumGC)

	if cpuSec, ok := processCPUSeconds(); ok {
		writeHeader(w, "runtime_cpu_seconds_total", "counter", "Total CPU time consumed by this process in seconds.")
		_, _ = fmt.Fprintf(w, "%sruntime_cpu_seconds_total %.6f\n", metricPrefix, cpuSec)
	}
	if st := processIOStats(); st != nil {
		writeHeader(w, "runtime_io_read_bytes_total", "counter", "Bytes read by this process from storage.")
		_, _ = fmt.Fprintf(w, "%sruntime_io_read_bytes_total %d\n", metricPrefix, st.ReadBytes)
		writeHeader(w, "runtime_io_write_bytes_total", "counter", "Bytes written by this process to storage.")
		_, _ = fmt.Fprintf(w, "%sruntime_io_write_bytes_total %d\n", metricPrefix, st.WriteBytes)
	}
}

func appMetricsSummaryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		type endpointRow struct {
			Method  string  `json:"method"`
			Path    string  `json:"path"`
			Status  string  `json:"status"`
			Count   uint64  `json:"count"`
			AvgMS   float64 `json:"avg_ms"`
			TotalMS float64 `json:"total_ms"`
		}
		type loadRow struct {
			Source string  `json:"source"`
			Count  uint64  `json:"count"`
			Errors uint64  `json:"errors"`
			AvgMS  float64 `json:"avg_ms"`
			Rows   int     `json:"rows"`
		}

		metricsMu.Lock()
		httpRows := make([]endpointRow, 0, len(httpSeries))
		for k, s := range httpSeries {
			httpRows = append(httpRows, endpointRow{
				Method:  k.Method,
				Path:    k.Path,
				Status:  k.Status,
				Count:   s.Count,
				AvgMS:   avgMS(s),
				TotalMS: s.DurationSecondsSum * 1000.0,
			})
		}
		loads := make([]loadRow, 0, len(loadSeries))
		loadErrors := uint64(0)
		for src, s := range loadSeries {
			loads = append(loads, loadRow{Source: src, Count: s.Count, Errors: s.Errors, AvgMS: avgMS(&s.durationSeries), Rows: s.Rows})
			loadErrors += s.Errors
		}
		dbErrors := uint64(0)
		for _, s := range dbQuerySeries {
			dbErrors += s.Errors
		}
		externalErrors := uint64(0)
		for _, s := range externalSeries {
			externalErrors += s.Errors
		}
		snapshotRuns := uint64(0)
		for _, s := range snapshotSeries {
			snapshotRuns += s.Count
		}
		metricsMu.Unlock()

		sort.Slice(httpRows, func(i, j int) bool { return httpRows[i].AvgMS > httpRows[j].AvgMS })
		sort.Slice(loads, func(i, j int) bool { return loads[i].Source < loads[j].Source })
		if len(httpRows) > 5 {
			httpRows = httpRows[:5]
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"meta": map[string]any{
				"generated_at": time.Now().UTC(),
			},
			"data": map[string]any{
				"top_http_slowest_avg_ms": httpRows,
				"dataset_loads":           loads,
				"snapshot_runs_total":     snapshotRuns,
				"ws_clients":              atomic.LoadInt64(&wsClients),
				"errors": map[string]any{
					"dataset_load_total":   loadErrors,
					"db_query_total":       dbErrors,
					"external_probe_total": externalErrors,
				},
			},
		})
	}
}

func avgMS(s *durationSeries) float64 {
	if s.Count == 0 {
		return 0
	}
	return (s.DurationSecondsSum / float64(s.Count)) * 1000.0
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack passes websocket upgrades through to the underlying connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func observabilityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		atomic.AddInt64(&inFlightRequests, 1)
		defer atomic.AddInt64(&inFlightRequests, -1)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		recordHTTPMetric(r.Method, normalizeMetricPath(r.URL.Path), rec.status, time.Since(start).Seconds())
	})
}

func normalizeMetricPath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/v1/views/"):
		return "/api/v1/views/{id}"
	case strings.HasPrefix(path, "/charts/") && strings.HasSuffix(path, ".png"):
		return "/charts/{name}.png"
	case strings.HasPrefix(path, "/charts/"):
		return "/charts/{name}"
	case strings.HasPrefix(path, "/api/v1/figures/"):
		return "/api/v1/figures/{name}"
	case strings.HasPrefix(path, "/api/v1/snapshots/"):
		return "/api/v1/snapshots/{name}"
	default:
		return path
	}
}

func recordHTTPMetric(method, path string, status int, durationSeconds float64) {
	key := httpMetricKey{Method: method, Path: path, Status: strconv.Itoa(status)}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := httpSeries[key]
	if !ok {
		row = &durationSeries{}
		httpSeries[key] = row
	}
	row.Count++
	row.DurationSecondsSum += durationSeconds
}

// recordDatasetLoad matches dataset.LoadObserver.
func recordDatasetLoad(source string, elapsed time.Duration, rows int, err error) {
	if source == "" {
		return
	}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := loadSeries[source]
	if !ok {
		row = &loadMetricSeries{}
		loadSeries[source] = row
	}
	row.Count++
	row.DurationSecondsSum += elapsed.Seconds()
	if err != nil {
		row.Errors++
		return
	}
	row.Rows = rows
}

func recordDBQuery(connector, operation string, durationSeconds float64, err error) {
	if connector == "" || operation == "" {
		return
	}
	key := dbMetricKey{Connector: connector, Operation: operation}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := dbQuerySeries[key]
	if !ok {
		row = &durationSeries{}
		dbQuerySeries[key] = row
	}
	row.Count++
	row.DurationSecondsSum += durationSeconds
	if err != nil {
		row.Errors++
	}
}

func recordExternalProbe(target, operation string, durationSeconds float64, err error) {
	if target == "" || operation == "" {
		return
	}
	key := externalMetricKey{Target: target, Operation: operation}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := externalSeries[key]
	if !ok {
		row = &durationSeries{}
		externalSeries[key] = row
	}
	row.Count++
	row.DurationSecondsSum += durationSeconds
	if err != nil {
		row.Errors++
	}
}

func recordSnapshotRun(status string, durationSeconds float64) {
	status = strings.TrimSpace(strings.ToLower(status))
	if status == "" {
		status = "unknown"
	}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := snapshotSeries[status]
	if !ok {
		row = &durationSeries{}
		snapshotSeries[status] = row
	}
	row.Count++
	row.DurationSecondsSum += durationSeconds
	if status != "success" {
		row.Errors++
	}
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, "\n", `\n`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return v
}

func processCPUSeconds() (float64, bool) {
	var ru syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &ru); err != nil {
		return 0, false
	}
	user := float64(ru.Utime.Sec) + (float64(ru.Utime.Usec) / 1_000_000.0)
	sys := float64(ru.Stime.Sec) + (float64(ru.Stime.Usec) / 1_000_000.0)
	return user + sys, true
}

type ioStats struct {
	ReadBytes  uint64
	WriteBytes uint64
}

func processIOStats() *ioStats {
	b, err := os.ReadFile("/proc/self/io")
	if err != nil {
		return nil
	}
	out := &ioStats{}
	for _, line := range strings.Split(string(b), "\n") {
		key, val, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		v, err := strconv.ParseUint(strings.TrimSpace(val), 10, 64)
		if err != nil {
			continue
		}
		switch strings.TrimSpace(key) {
		case "read_bytes":
			out.ReadBytes = v
		case "write_bytes":
			out.WriteBytes = v
		}
	}
	return out
}
