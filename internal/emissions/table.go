package emissions

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Table is an immutable in-memory emissions dataset indexed by year.
type Table struct {
	records []Record
	byYear  map[int][]Record
	years   []int

	frameOnce sync.Once
	frame     dataframe.DataFrame
}

// NewTable builds a table from records. Records are sorted by year then country.
func NewTable(records []Record) *Table {
	rows := make([]Record, len(records))
	copy(rows, records)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Year != rows[j].Year {
			return rows[i].Year < rows[j].Year
		}
		return rows[i].Country < rows[j].Country
	})

	t := &Table{
		records: rows,
		byYear:  make(map[int][]Record),
	}
	for _, r := range rows {
		if _, ok := t.byYear[r.Year]; !ok {
			t.years = append(t.years, r.Year)
		}
		t.byYear[r.Year] = append(t.byYear[r.Year], r)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// Records returns a copy of all rows.
func (t *Table) Records() []Record {
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Years returns the distinct years in ascending order.
func (t *Table) Years() []int {
	out := make([]int, len(t.years))
	copy(out, t.years)
	return out
}

// HasYear reports whether any row carries the given year.
func (t *Table) HasYear(year int) bool {
	_, ok := t.byYear[year]
	return ok
}

// YearRange returns the first and last year, or zeros for an empty table.
func (t *Table) YearRange() (int, int) {
	if len(t.years) == 0 {
		return 0, 0
	}
	return t.years[0], t.years[len(t.years)-1]
}

// Countries returns the distinct country names in ascending order.
func (t *Table) Countries() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range t.records {
		if _, ok := seen[r.Country]; ok {
			continue
		}
		seen[r.Country] = struct{}{}
		out = append(out, r.Country)
	}
	sort.Strings(out)
	return out
}

// ForYear returns the rows for exactly one year.
func (t *Table) ForYear(year int) []Record {
	rows := t.byYear[year]
	out := make([]Record, len(rows))
	copy(out, rows)
	return out
}

// UpTo returns every row with a year less than or equal to the given one.
func (t *Table) UpTo(year int) []Record {
	out := make([]Record, 0, len(t.records))
	for _, r := range t.records {
		if r.Year > year {
			break
		}
		out = append(out, r)
	}
	return out
}

// Frame returns the table as a gota DataFrame. It is built once and shared.
func (t *Table) Frame() dataframe.DataFrame {
	t.frameOnce.Do(func() {
		t.frame = recordsToFrame(t.records)
	})
	return t.frame
}

func recordsToFrame(rows []Record) dataframe.DataFrame {
	n := len(rows)
	country := make([]string, n)
	iso := make([]string, n)
	year := make([]int, n)
	cols := map[string][]float64{}
	for _, name := range floatColumns {
		cols[name] = make([]float64, n)
	}
	for i, r := range rows {
		country[i] = r.Country
		iso[i] = r.ISOCode
		year[i] = r.Year
		cols[colTotal][i] = r.Total
		cols[colCoal][i] = r.Coal
		cols[colOil][i] = r.Oil
		cols[colGas][i] = r.Gas
		cols[colCement][i] = r.Cement
		cols[colFlaring][i] = r.Flaring
		cols[colOther][i] = r.Other
		cols[colPerCapita][i] = r.PerCapita
	}

	se := []series.Series{
		series.New(country, series.String, colCountry),
		series.New(iso, series.String, colISOCode),
		series.New(year, series.Int, colYear),
	}
	for _, name := range floatColumns {
		se = append(se, series.New(cols[name], series.Float, name))
	}
	return dataframe.New(se...)
}

// WriteCSV writes rows for year, or every row when year is zero, as CSV.
func (t *Table) WriteCSV(w io.Writer, year int) error {
	df := t.Frame()
	if year != 0 {
		df = df.Filter(dataframe.F{Colname: colYear, Comparator: series.Eq, Comparando: year})
	}
	if df.Err != nil {
		return fmt.Errorf("filter frame: %w", df.Err)
	}
	df = csvFrame(df)
	if df.Err != nil {
		return fmt.Errorf("format frame: %w", df.Err)
	}
	if err := df.WriteCSV(w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// csvFrame replaces the float columns with their shortest text form so missing
// values export as empty cells instead of NaN.
func csvFrame(df dataframe.DataFrame) dataframe.DataFrame {
	for _, name := range floatColumns {
		vals := df.Col(name).Float()
		text := make([]string, len(vals))
		for i, v := range vals {
			if math.IsNaN(v) {
				continue
			}
			text[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		df = df.Mutate(series.New(text, series.String, name))
		if df.Err != nil {
			return df
		}
	}
	return df
}
