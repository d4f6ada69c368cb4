package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ServiceStats contains lightweight DB health and dataset counters.
type ServiceStats struct {
	PingMS        int64  `json:"ping_ms"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Database      string `json:"database"`
	Table         string `json:"table"`
	Rows          int64  `json:"rows"`
	Countries     int64  `json:"countries"`
	FirstYear     int64  `json:"first_year"`
	LastYear      int64  `json:"last_year"`
}

// ServiceStats returns MySQL health and high-level emissions table counters.
func (s *Store) ServiceStats(ctx context.Context) (*ServiceStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	start := time.Now()
	if err := s.db.PingContext(ctx); err != nil {
		return nil, err
	}

	out := &ServiceStats{
		PingMS:   time.Since(start).Milliseconds(),
		Database: s.dbName,
		Table:    s.table,
	}

	var statusName string
	var statusValue sql.NullString
	if err := s.db.QueryRowContext(ctx, `SHOW GLOBAL STATUS LIKE 'Uptime';`).Scan(&statusName, &statusValue); err == nil && statusValue.Valid {
		if v, err := time.ParseDuration(statusValue.String + "s"); err == nil {
			out.UptimeSeconds = int64(v.Seconds())
		}
	}

	var first, last sql.NullInt64
	q := fmt.Sprintf(`SELECT COUNT(*), COUNT(DISTINCT country), MIN(year), MAX(year) FROM %s;`, s.table)
	if err := s.db.QueryRowContext(ctx, q).Scan(&out.Rows, &out.Countries, &first, &last); err != nil {
		return nil, err
	}
	out.FirstYear = first.Int64
	out.LastYear = last.Int64

	return out, nil
}
