package dataset

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-co2-emissions-dashboard/internal/config"
	"go-co2-emissions-dashboard/internal/connectors/remote"
	sqlitestore "go-co2-emissions-dashboard/internal/connectors/sqlite"
	"go-co2-emissions-dashboard/internal/emissions"
	"go-co2-emissions-dashboard/internal/storage"
)

const fixtureCSV = `Country,Year,Total,Coal,Oil,Gas,Cement,Flaring,Per Capita
China,1995,3000,2200,500,50,200,1,2.5
Global,1995,23000,9000,8000,4000,1000,300,4.1
China,1996,3100,2250,520,55,210,2,2.6
`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "co2.csv")
	require.NoError(t, os.WriteFile(path, []byte(fixtureCSV), 0o600))
	return path
}

type fakeSource struct {
	mu    sync.Mutex
	calls int
	fn    func(call int) (*emissions.Table, error)
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Load(context.Context) (*emissions.Table, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.fn(call)
}

func TestFileSourceExcludesAggregates(t *testing.T) {
	src := FileSource{Path: writeFixture(t), Excluded: emissions.DefaultExcluded}
	tbl, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"China"}, tbl.Countries())
}

func TestFileSourceMissingFile(t *testing.T) {
	_, err := FileSource{Path: filepath.Join(t.TempDir(), "missing.csv")}.Load(context.Background())
	assert.Error(t, err)
}

func TestProviderReloadNotifiesSubscribers(t *testing.T) {
	tbl := emissions.NewTable([]emissions.Record{{Country: "Chad", Year: 2000}})
	src := &fakeSource{fn: func(int) (*emissions.Table, error) { return tbl, nil }}

	var observed []string
	p := NewProvider(src, func(source string, _ time.Duration, rows int, err error) {
		observed = append(observed, source)
		assert.Equal(t, 1, rows)
		assert.NoError(t, err)
	})
	assert.False(t, p.Ready())
	assert.Nil(t, p.Table())

	var notified *emissions.Table
	p.Subscribe(func(loaded *emissions.Table) { notified = loaded })

	got, err := p.Reload(context.Background())
	require.NoError(t, err)
	assert.Same(t, tbl, got)
	assert.Same(t, tbl, notified)
	assert.True(t, p.Ready())
	assert.Equal(t, []string{"fake"}, observed)

	st := p.Status()
	assert.True(t, st.Loaded)
	assert.Equal(t, 1, st.Rows)
	assert.Equal(t, 2000, st.FirstYear)
	assert.NotNil(t, st.LoadedAt)
	assert.EqualValues(t, 1, st.Loads)
}

func TestProviderKeepsTableOnFailure(t *testing.T) {
	tbl := emissions.NewTable([]emissions.Record{{Country: "Chad", Year: 2000}})
	src := &fakeSource{fn: func(call int) (*emissions.Table, error) {
		if call == 1 {
			return tbl, nil
		}
		return nil, errors.New("boom")
	}}
	p := NewProvider(src, nil)

	_, err := p.Reload(context.Background())
	require.NoError(t, err)
	_, err = p.Reload(context.Background())
	require.Error(t, err)

	assert.Same(t, tbl, p.Table(), "a failed reload must not drop the served table")
	assert.Equal(t, "boom", p.Status().LastError)
}

func TestProviderUnchanged(t *testing.T) {
	tbl := emissions.NewTable([]emissions.Record{{Country: "Chad", Year: 2000}})
	src := &fakeSource{fn: func(call int) (*emissions.Table, error) {
		if call == 1 {
			return nil, ErrUnchanged
		}
		if call == 2 {
			return tbl, nil
		}
		return nil, ErrUnchanged
	}}
	p := NewProvider(src, nil)

	_, err := p.Reload(context.Background())
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, err = p.Reload(context.Background())
	require.NoError(t, err)

	notified := 0
	p.Subscribe(func(*emissions.Table) { notified++ })
	got, err := p.Reload(context.Background())
	require.NoError(t, err)
	assert.Same(t, tbl, got)
	assert.Zero(t, notified, "unchanged data should not notify subscribers")
}

func TestProviderStartTicks(t *testing.T) {
	var loads atomic.Int32
	tbl := emissions.NewTable(nil)
	src := &fakeSource{fn: func(int) (*emissions.Table, error) {
		loads.Add(1)
		return tbl, nil
	}}
	p := NewProvider(src, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool { return loads.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestStaticProvider(t *testing.T) {
	tbl := emissions.NewTable([]emissions.Record{{Country: "Chad", Year: 2000}})
	p := NewStaticProvider(tbl)
	assert.True(t, p.Ready())
	assert.Equal(t, "static", p.SourceName())

	assert.False(t, NewStaticProvider(nil).Ready())
}

func TestHTTPSourceConditionalReload(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(fixtureCSV))
	}))
	defer srv.Close()

	src := &HTTPSource{Client: remote.NewClient(srv.URL, time.Second, 0), Excluded: emissions.DefaultExcluded}
	p := NewProvider(src, nil)

	first, err := p.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Len())

	second, err := p.Reload(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.EqualValues(t, 2, hits.Load())
}

func TestSQLiteSource(t *testing.T) {
	ctx := context.Background()
	store, err := sqlitestore.NewStore(filepath.Join(t.TempDir(), "co2.db"))
	require.NoError(t, err)
	defer store.Close()

	tbl, err := FileSource{Path: writeFixture(t)}.Load(ctx)
	require.NoError(t, err)
	_, err = store.ImportEmissions(ctx, "emissions", tbl.Records())
	require.NoError(t, err)

	loaded, err := SQLiteSource{Store: store, Table: "emissions", Excluded: emissions.DefaultExcluded}.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
	assert.Equal(t, []int{1995, 1996}, loaded.Years())
}

func TestObjectSource(t *testing.T) {
	ctx := context.Background()
	local, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, local.Put(ctx, "data/co2.csv", []byte(fixtureCSV)))

	tbl, err := ObjectSource{Storage: local, Object: "data/co2.csv"}.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())

	_, err = ObjectSource{Storage: local, Object: "missing.csv"}.Load(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestNewSource(t *testing.T) {
	ctx := context.Background()

	src, backends, err := NewSource(ctx, config.Config{DataSource: config.SourceFile, DataPath: "x.csv"})
	require.NoError(t, err)
	assert.Equal(t, config.SourceFile, src.Name())
	assert.Equal(t, emissions.DefaultExcluded, src.(FileSource).Excluded)
	assert.NoError(t, backends.Close())

	src, backends, err = NewSource(ctx, config.Config{DataSource: config.SourceHTTP, DataPath: "http://example.invalid/co2.csv", FetchTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, config.SourceHTTP, src.Name())
	assert.NotNil(t, backends.Remote)

	dbPath := filepath.Join(t.TempDir(), "co2.db")
	src, backends, err = NewSource(ctx, config.Config{DataSource: config.SourceSQLite, DataPath: dbPath, DataTable: "emissions", Excluded: []string{}})
	require.NoError(t, err)
	assert.Equal(t, config.SourceSQLite, src.Name())
	assert.NoError(t, backends.Close())

	_, _, err = NewSource(ctx, config.Config{DataSource: config.SourceGCS, DataPath: "not-a-uri"})
	assert.Error(t, err)

	_, _, err = NewSource(ctx, config.Config{DataSource: "ftp"})
	assert.True(t, err != nil && strings.Contains(err.Error(), "unknown data source"))
}
