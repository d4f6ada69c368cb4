package views

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"go-co2-emissions-dashboard/internal/countries"
	"go-co2-emissions-dashboard/internal/emissions"
)

// ErrNoData is returned while no emissions table is loaded.
var ErrNoData = errors.New("no emissions data loaded")

// ErrUnknownFigure is returned for a figure name outside FigureNames.
var ErrUnknownFigure = errors.New("unknown figure")

// TableSource yields the current emissions table.
type TableSource interface {
	Table() *emissions.Table
}

// Summary is the KPI block shown next to the charts.
type Summary struct {
	Year        int                      `json:"year"`
	Countries   int                      `json:"countries"`
	Stats       emissions.Stats          `json:"stats"`
	TopEmitters []emissions.CountryTotal `json:"top_emitters"`
}

// Update is everything the dashboard redraws after a control change.
type Update struct {
	Selection   Selection `json:"selection"`
	WorldMap    *Figure   `json:"world_map"`
	FuelBar     *Figure   `json:"fuel_bar"`
	FuelArea    *Figure   `json:"fuel_area"`
	Summary     Summary   `json:"summary"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Figure returns one figure of the update by name.
func (u *Update) Figure(name string) (*Figure, error) {
	switch name {
	case WorldMapName:
		return u.WorldMap, nil
	case FuelBarName:
		return u.FuelBar, nil
	case FuelAreaName:
		return u.FuelArea, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFigure, name)
	}
}

// Dashboard recomputes the views for a selection and memoizes results for the
// lifetime of the current table.
type Dashboard struct {
	source  TableSource
	aliases *countries.Aliases
	topN    int

	mu         sync.Mutex
	cacheTable *emissions.Table
	cache      map[Selection]*Update
}

// NewDashboard creates a dashboard reading tables from source.
func NewDashboard(source TableSource, aliases *countries.Aliases, topN int) *Dashboard {
	if topN <= 0 {
		topN = 10
	}
	if aliases == nil {
		aliases = countries.Default()
	}
	return &Dashboard{
		source:  source,
		aliases: aliases,
		topN:    topN,
		cache:   map[Selection]*Update{},
	}
}

// TopN returns the number of countries in the bar chart.
func (d *Dashboard) TopN() int {
	return d.topN
}

// Table returns the current table, or nil.
func (d *Dashboard) Table() *emissions.Table {
	if d.source == nil {
		return nil
	}
	return d.source.Table()
}

// Update computes the three figures and the summary for sel.
func (d *Dashboard) Update(ctx context.Context, sel Selection) (*Update, error) {
	sel, err := sel.Validate()
	if err != nil {
		return nil, err
	}
	tbl := d.Table()
	if tbl == nil {
		return nil, ErrNoData
	}
	if cached := d.cached(tbl, sel); cached != nil {
		return cached, nil
	}

	out := &Update{Selection: sel}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.WorldMap = WorldMap(tbl, sel.Year, sel.Metric, d.aliases)
		return ctx.Err()
	})
	g.Go(func() error {
		out.FuelBar = FuelBar(tbl, sel.Year, d.topN)
		return ctx.Err()
	})
	g.Go(func() error {
		out.FuelArea = FuelArea(tbl, sel.Year)
		return ctx.Err()
	})
	g.Go(func() error {
		out.Summary = Summarize(tbl, sel, d.topN)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out.GeneratedAt = time.Now().UTC()

	// Absent years are cheap to recompute and unbounded in number.
	if tbl.HasYear(sel.Year) {
		d.store(tbl, sel, out)
	}
	return out, nil
}

// Figure computes a single named figure for sel.
func (d *Dashboard) Figure(ctx context.Context, name string, sel Selection) (*Figure, error) {
	switch name {
	case WorldMapName, FuelBarName, FuelAreaName:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFigure, name)
	}
	u, err := d.Update(ctx, sel)
	if err != nil {
		return nil, err
	}
	return u.Figure(name)
}

// Summarize computes the KPI block of one selection.
func Summarize(tbl *emissions.Table, sel Selection, topN int) Summary {
	rows := tbl.ForYear(sel.Year)
	top := emissions.TopEmitters(rows, topN)
	if top == nil {
		top = []emissions.CountryTotal{}
	}
	return Summary{
		Year:        sel.Year,
		Countries:   len(rows),
		Stats:       emissions.YearStats(rows, sel.Metric),
		TopEmitters: top,
	}
}

func (d *Dashboard) cached(tbl *emissions.Table, sel Selection) *Update {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cacheTable != tbl {
		d.cacheTable = tbl
		d.cache = map[Selection]*Update{}
		return nil
	}
	return d.cache[sel]
}

func (d *Dashboard) store(tbl *emissions.Table, sel Selection, u *Update) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cacheTable != tbl {
		return
	}
	d.cache[sel] = u
}
