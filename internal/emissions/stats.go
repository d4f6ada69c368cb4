package emissions

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes one metric across the countries of a year.
type Stats struct {
	Metric     Metric   `json:"metric"`
	Count      int      `json:"count"`
	Missing    int      `json:"missing"`
	Sum        float64  `json:"sum"`
	Mean       *float64 `json:"mean"`
	Median     *float64 `json:"median"`
	StdDev     *float64 `json:"std_dev"`
	P90        *float64 `json:"p90"`
	Min        *float64 `json:"min"`
	MinCountry string   `json:"min_country,omitempty"`
	Max        *float64 `json:"max"`
	MaxCountry string   `json:"max_country,omitempty"`
}

type countryValue struct {
	country string
	value   float64
}

// YearStats computes summary statistics of metric over rows. Missing values are
// counted but excluded from every statistic.
func YearStats(rows []Record, m Metric) Stats {
	out := Stats{Metric: m}
	vals := make([]countryValue, 0, len(rows))
	for _, r := range rows {
		v := r.MetricValue(m)
		if math.IsNaN(v) {
			out.Missing++
			continue
		}
		vals = append(vals, countryValue{country: r.Country, value: v})
	}
	out.Count = len(vals)
	if out.Count == 0 {
		return out
	}

	sort.SliceStable(vals, func(i, j int) bool { return vals[i].value < vals[j].value })
	x := make([]float64, len(vals))
	for i, cv := range vals {
		x[i] = cv.value
	}

	out.Sum = floats.Sum(x)
	out.Mean = Nullable(stat.Mean(x, nil))
	out.Median = Nullable(stat.Quantile(0.5, stat.Empirical, x, nil))
	out.P90 = Nullable(stat.Quantile(0.9, stat.Empirical, x, nil))
	if len(x) > 1 {
		out.StdDev = Nullable(stat.StdDev(x, nil))
	}
	out.Min = Nullable(x[0])
	out.MinCountry = vals[0].country
	out.Max = Nullable(x[len(x)-1])
	out.MaxCountry = vals[len(vals)-1].country
	return out
}
