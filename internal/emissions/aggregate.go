package emissions

import (
	"math"
	"sort"
)

// CountryTotal is a country and its summed total emissions.
type CountryTotal struct {
	Country string  `json:"country"`
	Total   float64 `json:"total"`
}

// YearValue is one point of a per-year series.
type YearValue struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// TopEmitters groups rows by country, sums total with missing values as zero,
// and returns the n largest sums. Ties are ordered by country name.
func TopEmitters(rows []Record, n int) []CountryTotal {
	if n <= 0 {
		return nil
	}
	sums := make(map[string]float64)
	for _, r := range rows {
		sums[r.Country] += zeroIfMissing(r.Total)
	}
	out := make([]CountryTotal, 0, len(sums))
	for c, v := range sums {
		out = append(out, CountryTotal{Country: c, Total: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Country < out[j].Country
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// FuelValues returns the fuel values of the first row matching country.
// Values are NaN when the country has no row or the cell is missing.
func FuelValues(rows []Record, country string, fuels []Fuel) []float64 {
	out := make([]float64, len(fuels))
	for i := range out {
		out[i] = math.NaN()
	}
	for _, r := range rows {
		if r.Country != country {
			continue
		}
		for i, f := range fuels {
			out[i] = r.FuelValue(f)
		}
		break
	}
	return out
}

// SumByYear groups rows by year and sums one fuel, counting missing values as zero.
func SumByYear(rows []Record, fuel Fuel) []YearValue {
	sums := make(map[int]float64)
	for _, r := range rows {
		sums[r.Year] += zeroIfMissing(r.FuelValue(fuel))
	}
	out := make([]YearValue, 0, len(sums))
	for y, v := range sums {
		out = append(out, YearValue{Year: y, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// MetricRange returns the min and max of the non-missing metric values.
// ok is false when no row has a value.
func MetricRange(rows []Record, m Metric) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, r := range rows {
		v := r.MetricValue(m)
		if math.IsNaN(v) {
			continue
		}
		ok = true
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if !ok {
		return 0, 0, false
	}
	return lo, hi, true
}
