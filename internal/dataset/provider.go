package dataset

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go-co2-emissions-dashboard/internal/emissions"
	"go-co2-emissions-dashboard/internal/logging"
)

// ErrNotLoaded is returned while no table has been loaded yet.
var ErrNotLoaded = errors.New("dataset not loaded")

// LoadObserver receives the outcome of every load attempt.
type LoadObserver func(source string, elapsed time.Duration, rows int, err error)

// Status describes the currently served table.
type Status struct {
	Source    string     `json:"source"`
	Loaded    bool       `json:"loaded"`
	Rows      int        `json:"rows"`
	Countries int        `json:"countries"`
	FirstYear int        `json:"first_year,omitempty"`
	LastYear  int        `json:"last_year,omitempty"`
	LoadedAt  *time.Time `json:"loaded_at,omitempty"`
	Loads     int64      `json:"loads"`
	LastError string     `json:"last_error,omitempty"`
}

// Provider serves the most recently loaded table. Readers never block on a
// reload; the swap is atomic.
type Provider struct {
	source  Source
	observe LoadObserver
	logger  *slog.Logger

	current  atomic.Pointer[emissions.Table]
	loadedAt atomic.Pointer[time.Time]
	loads    atomic.Int64

	reloadMu sync.Mutex

	mu      sync.Mutex
	subs    []func(*emissions.Table)
	lastErr error
}

// NewProvider wraps source. observe may be nil.
func NewProvider(source Source, observe LoadObserver) *Provider {
	return &Provider{
		source:  source,
		observe: observe,
		logger:  logging.Component("dataset"),
	}
}

// NewStaticProvider serves a fixed table. It is used by the CLI and tests.
func NewStaticProvider(tbl *emissions.Table) *Provider {
	p := NewProvider(staticSource{tbl: tbl}, nil)
	p.store(tbl)
	return p
}

// Table returns the current table or nil.
func (p *Provider) Table() *emissions.Table {
	return p.current.Load()
}

// Ready reports whether a table is loaded.
func (p *Provider) Ready() bool {
	return p.current.Load() != nil
}

// SourceName names the configured source.
func (p *Provider) SourceName() string {
	return p.source.Name()
}

// Subscribe registers fn to run after every successful reload.
func (p *Provider) Subscribe(fn func(*emissions.Table)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = append(p.subs, fn)
}

// Reload loads the source and swaps the table in. When the source reports no
// change the current table is returned unchanged.
func (p *Provider) Reload(ctx context.Context) (*emissions.Table, error) {
	p.reloadMu.Lock()
	defer p.reloadMu.Unlock()

	start := time.Now()
	tbl, err := p.source.Load(ctx)
	elapsed := time.Since(start)

	if errors.Is(err, ErrUnchanged) {
		p.logger.Debug("dataset unchanged", "source", p.source.Name())
		if cur := p.current.Load(); cur != nil {
			p.record(elapsed, cur.Len(), nil)
			return cur, nil
		}
		err = ErrNotLoaded
	}
	if err != nil {
		p.record(elapsed, 0, err)
		p.logger.Error("dataset load failed", "source", p.source.Name(), "error", err, "duration", elapsed)
		return nil, err
	}

	p.store(tbl)
	p.record(elapsed, tbl.Len(), nil)
	first, last := tbl.YearRange()
	p.logger.Info("dataset loaded",
		"source", p.source.Name(),
		"rows", tbl.Len(),
		"first_year", first,
		"last_year", last,
		"duration", elapsed,
	)

	p.mu.Lock()
	subs := append([]func(*emissions.Table){}, p.subs...)
	p.mu.Unlock()
	for _, fn := range subs {
		fn(tbl)
	}
	return tbl, nil
}

// Start reloads every interval until ctx is done. A zero interval disables it.
func (p *Provider) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = p.Reload(ctx)
			}
		}
	}()
}

// Status reports what is currently served.
func (p *Provider) Status() Status {
	st := Status{Source: p.source.Name(), Loads: p.loads.Load()}
	if tbl := p.current.Load(); tbl != nil {
		st.Loaded = true
		st.Rows = tbl.Len()
		st.Countries = len(tbl.Countries())
		st.FirstYear, st.LastYear = tbl.YearRange()
	}
	if at := p.loadedAt.Load(); at != nil {
		t := *at
		st.LoadedAt = &t
	}
	p.mu.Lock()
	if p.lastErr != nil {
		st.LastError = p.lastErr.Error()
	}
	p.mu.Unlock()
	return st
}

func (p *Provider) store(tbl *emissions.Table) {
	now := time.Now().UTC()
	p.current.Store(tbl)
	p.loadedAt.Store(&now)
}

func (p *Provider) record(elapsed time.Duration, rows int, err error) {
	p.loads.Add(1)
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
	if p.observe != nil {
		p.observe(p.source.Name(), elapsed, rows, err)
	}
}

type staticSource struct {
	tbl *emissions.Table
}

func (s staticSource) Name() string { return "static" }

func (s staticSource) Load(context.Context) (*emissions.Table, error) {
	if s.tbl == nil {
		return nil, ErrNotLoaded
	}
	return s.tbl, nil
}
