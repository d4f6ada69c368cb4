// Package sqlutil holds the emissions table queries shared by the SQL stores.
package sqlutil

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"regexp"
	"strings"

	"go-co2-emissions-dashboard/internal/emissions"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ValidTable rejects table names that cannot be interpolated safely.
func ValidTable(name string) (string, error) {
	name = strings.TrimSpace(name)
	if !identifier.MatchString(name) {
		return "", fmt.Errorf("invalid table name %q", name)
	}
	return name, nil
}

// SelectEmissions is the column list read by QueryEmissions.
func SelectEmissions(table string) string {
	return fmt.Sprintf(`
SELECT country, COALESCE(iso_code, ''), year,
  total, coal, oil, gas, cement, flaring, other, per_capita
FROM %s
ORDER BY year, country;
`, table)
}

// QueryEmissions reads every row of an emissions table.
func QueryEmissions(ctx context.Context, q Querier, table string) ([]emissions.Record, error) {
	table, err := ValidTable(table)
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, SelectEmissions(table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]emissions.Record, 0, 1024)
	for rows.Next() {
		var (
			rec  emissions.Record
			vals [8]sql.NullFloat64
		)
		if err := rows.Scan(&rec.Country, &rec.ISOCode, &rec.Year,
			&vals[0], &vals[1], &vals[2], &vals[3], &vals[4], &vals[5], &vals[6], &vals[7]); err != nil {
			return nil, err
		}
		rec.Total = nullToNaN(vals[0])
		rec.Coal = nullToNaN(vals[1])
		rec.Oil = nullToNaN(vals[2])
		rec.Gas = nullToNaN(vals[3])
		rec.Cement = nullToNaN(vals[4])
		rec.Flaring = nullToNaN(vals[5])
		rec.Other = nullToNaN(vals[6])
		rec.PerCapita = nullToNaN(vals[7])
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Args returns the insert arguments for rec in emissions.Columns order.
func Args(rec emissions.Record) []any {
	return []any{
		rec.Country, rec.ISOCode, rec.Year,
		nanToNull(rec.Total), nanToNull(rec.Coal), nanToNull(rec.Oil), nanToNull(rec.Gas),
		nanToNull(rec.Cement), nanToNull(rec.Flaring), nanToNull(rec.Other), nanToNull(rec.PerCapita),
	}
}

func nullToNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func nanToNull(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
