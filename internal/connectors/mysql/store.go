package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"go-co2-emissions-dashboard/internal/config"
	"go-co2-emissions-dashboard/internal/connectors/sqlutil"
	"go-co2-emissions-dashboard/internal/emissions"
)

// Store reads an emissions table from MySQL.
type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
	dbName       string
	table        string
}

// NewStore opens and pings a MySQL-backed store.
func NewStore(cfg config.Config) (*Store, error) {
	table, err := sqlutil.ValidTable(cfg.DataTable)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DBConnTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	ok, err := tableExists(ctx, db, cfg.DBName, table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if !ok {
		_ = db.Close()
		return nil, fmt.Errorf("table %s.%s not found", cfg.DBName, table)
	}

	return &Store{
		db:           db,
		queryTimeout: cfg.DBQueryTimeout,
		dbName:       cfg.DBName,
		table:        table,
	}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Table is the emissions table name the store reads.
func (s *Store) Table() string { return s.table }

// LoadEmissions reads every emissions row.
func (s *Store) LoadEmissions(ctx context.Context) ([]emissions.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	return sqlutil.QueryEmissions(ctx, s.db, s.table)
}

func tableExists(ctx context.Context, db *sql.DB, dbName, table string) (bool, error) {
	const q = `
SELECT COUNT(*)
FROM information_schema.tables
WHERE table_schema = ?
  AND table_name = ?;
`
	var count sql.NullInt64
	if err := db.QueryRowContext(ctx, q, dbName, table).Scan(&count); err != nil {
		return false, err
	}
	return count.Valid && count.Int64 > 0, nil
}
