package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"go-co2-emissions-dashboard/internal/connectors/sqlutil"
	"go-co2-emissions-dashboard/internal/emissions"
)

// ErrViewNotFound is returned when a saved view id does not exist.
var ErrViewNotFound = errors.New("saved view not found")

// Store keeps saved dashboard views and, optionally, an emissions dataset in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// SavedView is a named dashboard selection.
type SavedView struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Year        int        `json:"year"`
	Metric      string     `json:"metric"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS saved_views (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL DEFAULT '',
  year INTEGER NOT NULL,
  metric TEXT NOT NULL DEFAULT 'total',
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path is the database file the store was opened with.
func (s *Store) Path() string { return s.path }

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ListViews(ctx context.Context, limit int) ([]SavedView, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, description, year, metric, created_at, updated_at
FROM saved_views
ORDER BY name ASC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]SavedView, 0)
	for rows.Next() {
		item, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetView(ctx context.Context, id int64) (*SavedView, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, description, year, metric, created_at, updated_at
FROM saved_views
WHERE id = ?;
`, id)
	item, err := scanView(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrViewNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpsertView creates a view or updates the one with the same name and
// returns its id. Year and metric are validated by the caller.
func (s *Store) UpsertView(ctx context.Context, name, description string, year int, metric string) (int64, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	metric = strings.TrimSpace(metric)
	if name == "" {
		return 0, fmt.Errorf("view name is required")
	}
	if metric == "" {
		metric = string(emissions.MetricTotal)
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
INSERT INTO saved_views (name, description, year, metric, created_at, updated_at)
VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
ON CONFLICT(name) DO UPDATE SET
  description = excluded.description,
  year = excluded.year,
  metric = excluded.metric,
  updated_at = CURRENT_TIMESTAMP
RETURNING id;
`, name, description, year, metric).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) DeleteView(ctx context.Context, id int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_views WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ImportEmissions replaces the contents of table with records.
func (s *Store) ImportEmissions(ctx context.Context, table string, records []emissions.Record) (int, error) {
	table, err := sqlutil.ValidTable(table)
	if err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  country TEXT NOT NULL,
  iso_code TEXT NOT NULL DEFAULT '',
  year INTEGER NOT NULL,
  total REAL, coal REAL, oil REAL, gas REAL, cement REAL, flaring REAL, other REAL, per_capita REAL,
  PRIMARY KEY (country, year)
);
`, table)); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(country, year) DO UPDATE SET
  iso_code = excluded.iso_code,
  total = excluded.total,
  coal = excluded.coal,
  oil = excluded.oil,
  gas = excluded.gas,
  cement = excluded.cement,
  flaring = excluded.flaring,
  other = excluded.other,
  per_capita = excluded.per_capita;
`, table, strings.Join(emissions.Columns, ", ")))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, sqlutil.Args(rec)...); err != nil {
			return 0, fmt.Errorf("insert %s %d: %w", rec.Country, rec.Year, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(records), nil
}

// LoadEmissions reads every row of table.
func (s *Store) LoadEmissions(ctx context.Context, table string) ([]emissions.Record, error) {
	return sqlutil.QueryEmissions(ctx, s.db, table)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanView(row rowScanner) (*SavedView, error) {
	var (
		item      SavedView
		createdAt sql.NullTime
		updatedAt sql.NullTime
	)
	if err := row.Scan(&item.ID, &item.Name, &item.Description, &item.Year, &item.Metric, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if createdAt.Valid {
		t := createdAt.Time.UTC()
		item.CreatedAt = &t
	}
	if updatedAt.Valid {
		t := updatedAt.Time.UTC()
		item.UpdatedAt = &t
	}
	return &item, nil
}
