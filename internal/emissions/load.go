package emissions

import (
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ErrMissingColumns is returned when the CSV lacks one or more required columns.
var ErrMissingColumns = errors.New("missing required columns")

const (
	colCountry   = "country"
	colISOCode   = "iso_code"
	colYear      = "year"
	colTotal     = "total"
	colCoal      = "coal"
	colOil       = "oil"
	colGas       = "gas"
	colCement    = "cement"
	colFlaring   = "flaring"
	colOther     = "other"
	colPerCapita = "per_capita"
)

var (
	requiredColumns = []string{colCountry, colYear, colTotal, colCoal, colOil, colGas, colCement, colFlaring, colPerCapita}
	floatColumns    = []string{colTotal, colCoal, colOil, colGas, colCement, colFlaring, colOther, colPerCapita}
	missingValues   = []string{"", "NA", "N/A", "NaN", "nan", "null", "<nil>"}
	headerSeparator = regexp.MustCompile(`[\s\-\.]+`)
	headerAliases   = map[string]string{
		"iso_3166_1_alpha_3": colISOCode,
		"iso3":               colISOCode,
		"percapita":          colPerCapita,
		"per_capita_co2":     colPerCapita,
	}
)

// DefaultExcluded lists aggregate rows that are not countries.
var DefaultExcluded = []string{"Global", "International Transport", "Kuwaiti Oil Fires"}

type loadOptions struct {
	excluded map[string]struct{}
}

// LoadOption configures ReadCSV.
type LoadOption func(*loadOptions)

// WithExcluded drops rows whose country matches one of names (case-insensitive).
func WithExcluded(names []string) LoadOption {
	return func(o *loadOptions) {
		for _, n := range names {
			n = strings.ToLower(strings.TrimSpace(n))
			if n != "" {
				o.excluded[n] = struct{}{}
			}
		}
	}
}

// Columns lists the canonical column order used for CSV export and SQL tables.
var Columns = []string{colCountry, colISOCode, colYear, colTotal, colCoal, colOil, colGas, colCement, colFlaring, colOther, colPerCapita}

// Exclude returns records whose country is not in names (case-insensitive).
func Exclude(records []Record, names []string) []Record {
	o := loadOptions{excluded: map[string]struct{}{}}
	WithExcluded(names)(&o)
	if len(o.excluded) == 0 {
		return records
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if _, skip := o.excluded[strings.ToLower(strings.TrimSpace(r.Country))]; skip {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ReadCSV parses an emissions CSV into a Table.
func ReadCSV(r io.Reader, options ...LoadOption) (*Table, error) {
	o := loadOptions{excluded: map[string]struct{}{}}
	for _, opt := range options {
		opt(&o)
	}

	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(missingValues),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("read csv: %w", df.Err)
	}

	df = normalizeHeaders(df)
	if df.Err != nil {
		return nil, fmt.Errorf("normalize headers: %w", df.Err)
	}
	if missing := missingColumns(df.Names()); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	records, err := frameToRecords(df, o.excluded)
	if err != nil {
		return nil, err
	}
	return NewTable(records), nil
}

// NormalizeHeader maps a raw CSV header to its canonical column name.
func NormalizeHeader(name string) string {
	n := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
	n = headerSeparator.ReplaceAllString(n, "_")
	n = strings.Trim(n, "_")
	if alias, ok := headerAliases[n]; ok {
		return alias
	}
	return n
}

func normalizeHeaders(df dataframe.DataFrame) dataframe.DataFrame {
	for _, name := range df.Names() {
		norm := NormalizeHeader(name)
		if norm == name {
			continue
		}
		df = df.Rename(norm, name)
		if df.Err != nil {
			return df
		}
	}
	return df
}

func missingColumns(names []string) []string {
	have := make(map[string]struct{}, len(names))
	for _, n := range names {
		have[n] = struct{}{}
	}
	var missing []string
	for _, req := range requiredColumns {
		if _, ok := have[req]; !ok {
			missing = append(missing, req)
		}
	}
	sort.Strings(missing)
	return missing
}

func frameToRecords(df dataframe.DataFrame, excluded map[string]struct{}) ([]Record, error) {
	nrow := df.Nrow()
	countries := df.Col(colCountry).Records()
	years := df.Col(colYear).Float()

	var iso []string
	if hasColumn(df, colISOCode) {
		iso = df.Col(colISOCode).Records()
	}

	values := make(map[string][]float64, len(floatColumns))
	for _, name := range floatColumns {
		if !hasColumn(df, name) {
			values[name] = nanColumn(nrow)
			continue
		}
		values[name] = df.Col(name).Float()
	}

	out := make([]Record, 0, nrow)
	for i := 0; i < nrow; i++ {
		line := i + 2
		country := strings.TrimSpace(countries[i])
		if country == "" || country == "NaN" {
			return nil, fmt.Errorf("line %d: missing country", line)
		}
		if _, skip := excluded[strings.ToLower(country)]; skip {
			continue
		}
		y := years[i]
		if math.IsNaN(y) || y != math.Trunc(y) {
			return nil, fmt.Errorf("line %d: invalid year for %s", line, country)
		}

		rec := Record{
			Country:   country,
			Year:      int(y),
			Total:     values[colTotal][i],
			Coal:      values[colCoal][i],
			Oil:       values[colOil][i],
			Gas:       values[colGas][i],
			Cement:    values[colCement][i],
			Flaring:   values[colFlaring][i],
			Other:     values[colOther][i],
			PerCapita: values[colPerCapita][i],
		}
		if iso != nil && iso[i] != "NaN" {
			rec.ISOCode = strings.TrimSpace(iso[i])
		}
		out = append(out, rec)
	}
	return out, nil
}

func hasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

func nanColumn(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
