// Package dataset loads the emissions table from its configured source and
// keeps the current copy for readers.
package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go-co2-emissions-dashboard/internal/config"
	mysqlstore "go-co2-emissions-dashboard/internal/connectors/mysql"
	"go-co2-emissions-dashboard/internal/connectors/remote"
	sqlitestore "go-co2-emissions-dashboard/internal/connectors/sqlite"
	"go-co2-emissions-dashboard/internal/emissions"
	"go-co2-emissions-dashboard/internal/storage"
)

// ErrUnchanged is returned by a source whose data has not changed since the
// previous load.
var ErrUnchanged = errors.New("dataset unchanged")

// Source loads a full emissions table.
type Source interface {
	Name() string
	Load(ctx context.Context) (*emissions.Table, error)
}

// FileSource reads a local CSV file.
type FileSource struct {
	Path     string
	Excluded []string
}

func (s FileSource) Name() string { return config.SourceFile }

func (s FileSource) Load(_ context.Context) (*emissions.Table, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return readCSV(f, s.Path, s.Excluded)
}

// HTTPSource downloads a CSV. Reloads use conditional requests.
type HTTPSource struct {
	Client   *remote.Client
	Excluded []string

	loaded bool
}

func (s *HTTPSource) Name() string { return config.SourceHTTP }

func (s *HTTPSource) Load(ctx context.Context) (*emissions.Table, error) {
	body, err := s.Client.Fetch(ctx, s.loaded)
	if errors.Is(err, remote.ErrNotModified) {
		return nil, ErrUnchanged
	}
	if err != nil {
		return nil, err
	}
	tbl, err := readCSV(bytes.NewReader(body), s.Client.URL(), s.Excluded)
	if err != nil {
		return nil, err
	}
	s.loaded = true
	return tbl, nil
}

// ObjectSource reads a CSV object through a storage client, such as a GCS bucket.
type ObjectSource struct {
	Storage  storage.Client
	Object   string
	Excluded []string
}

func (s ObjectSource) Name() string { return config.SourceGCS }

func (s ObjectSource) Load(ctx context.Context) (*emissions.Table, error) {
	data, err := s.Storage.Get(ctx, s.Object)
	if err != nil {
		return nil, err
	}
	return readCSV(bytes.NewReader(data), s.Storage.Location(s.Object), s.Excluded)
}

// SQLiteSource reads an emissions table from SQLite.
type SQLiteSource struct {
	Store    *sqlitestore.Store
	Table    string
	Excluded []string
}

func (s SQLiteSource) Name() string { return config.SourceSQLite }

func (s SQLiteSource) Load(ctx context.Context) (*emissions.Table, error) {
	records, err := s.Store.LoadEmissions(ctx, s.Table)
	if err != nil {
		return nil, fmt.Errorf("load sqlite emissions: %w", err)
	}
	return emissions.NewTable(emissions.Exclude(records, s.Excluded)), nil
}

// MySQLSource reads an emissions table from MySQL.
type MySQLSource struct {
	Store    *mysqlstore.Store
	Excluded []string
}

func (s MySQLSource) Name() string { return config.SourceMySQL }

func (s MySQLSource) Load(ctx context.Context) (*emissions.Table, error) {
	records, err := s.Store.LoadEmissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load mysql emissions: %w", err)
	}
	return emissions.NewTable(emissions.Exclude(records, s.Excluded)), nil
}

func readCSV(r io.Reader, origin string, excluded []string) (*emissions.Table, error) {
	tbl, err := emissions.ReadCSV(r, emissions.WithExcluded(excluded))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", origin, err)
	}
	return tbl, nil
}

// Backends are the open connections behind a source. Close releases them.
type Backends struct {
	Remote *remote.Client
	SQLite *sqlitestore.Store
	MySQL  *mysqlstore.Store
	Object storage.Client
}

func (b *Backends) Close() error {
	if b == nil {
		return nil
	}
	var errs []error
	if b.SQLite != nil {
		errs = append(errs, b.SQLite.Close())
	}
	if b.MySQL != nil {
		errs = append(errs, b.MySQL.Close())
	}
	if b.Object != nil {
		errs = append(errs, b.Object.Close())
	}
	return errors.Join(errs...)
}

// NewSource builds the source selected by cfg.DataSource.
func NewSource(ctx context.Context, cfg config.Config) (Source, *Backends, error) {
	excluded := cfg.Excluded
	if excluded == nil {
		excluded = emissions.DefaultExcluded
	}
	backends := &Backends{}

	switch cfg.DataSource {
	case config.SourceFile, "":
		return FileSource{Path: cfg.DataPath, Excluded: excluded}, backends, nil
	case config.SourceHTTP:
		backends.Remote = remote.NewClient(cfg.DataPath, cfg.FetchTimeout, cfg.FetchRetries)
		return &HTTPSource{Client: backends.Remote, Excluded: excluded}, backends, nil
	case config.SourceGCS:
		bucket, object, err := storage.ParseGCSURI(cfg.DataPath)
		if err != nil {
			return nil, nil, err
		}
		client, err := storage.NewGCS(ctx, bucket)
		if err != nil {
			return nil, nil, err
		}
		backends.Object = client
		return ObjectSource{Storage: client, Object: object, Excluded: excluded}, backends, nil
	case config.SourceSQLite:
		store, err := sqlitestore.NewStore(strings.TrimPrefix(cfg.DataPath, "sqlite://"))
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite dataset: %w", err)
		}
		backends.SQLite = store
		return SQLiteSource{Store: store, Table: cfg.DataTable, Excluded: excluded}, backends, nil
	case config.SourceMySQL:
		store, err := mysqlstore.NewStore(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql dataset: %w", err)
		}
		backends.MySQL = store
		return MySQLSource{Store: store, Excluded: excluded}, backends, nil
	default:
		return nil, nil, fmt.Errorf("unknown data source %q", cfg.DataSource)
	}
}
