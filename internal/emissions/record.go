package emissions

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidMetric is returned when a metric name is neither total nor per_capita.
var ErrInvalidMetric = errors.New("invalid metric")

// Record is one country-year row of the emissions table. Missing values are NaN.
type Record struct {
	Country   string  `json:"country"`
	ISOCode   string  `json:"iso_code,omitempty"`
	Year      int     `json:"year"`
	Total     float64 `json:"total"`
	Coal      float64 `json:"coal"`
	Oil       float64 `json:"oil"`
	Gas       float64 `json:"gas"`
	Cement    float64 `json:"cement"`
	Flaring   float64 `json:"flaring"`
	Other     float64 `json:"other"`
	PerCapita float64 `json:"per_capita"`
}

// Fuel names one emission-source column.
type Fuel string

const (
	Coal    Fuel = "coal"
	Oil     Fuel = "oil"
	Gas     Fuel = "gas"
	Cement  Fuel = "cement"
	Flaring Fuel = "flaring"
)

// FossilFuels are the columns shown in the top-emitter bar chart.
var FossilFuels = []Fuel{Coal, Oil, Gas}

// AllFuels are the columns stacked in the time-series chart.
var AllFuels = []Fuel{Coal, Oil, Gas, Cement, Flaring}

// Title returns the fuel name with its first letter upper-cased.
func (f Fuel) Title() string {
	s := string(f)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Metric selects which aggregate colours the world map.
type Metric string

const (
	MetricTotal     Metric = "total"
	MetricPerCapita Metric = "per_capita"
)

// ParseMetric validates a metric name. An empty string yields MetricTotal.
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case "", MetricTotal:
		return MetricTotal, nil
	case MetricPerCapita:
		return MetricPerCapita, nil
	default:
		return "", fmt.Errorf("%w: %q (expected total or per_capita)", ErrInvalidMetric, s)
	}
}

// Label is the human readable name used by the metric selector.
func (m Metric) Label() string {
	if m == MetricPerCapita {
		return "Per Capita"
	}
	return "Total"
}

// FuelValue returns the value of the given fuel column.
func (r Record) FuelValue(f Fuel) float64 {
	switch f {
	case Coal:
		return r.Coal
	case Oil:
		return r.Oil
	case Gas:
		return r.Gas
	case Cement:
		return r.Cement
	case Flaring:
		return r.Flaring
	default:
		return math.NaN()
	}
}

// MetricValue returns total or per-capita emissions.
func (r Record) MetricValue(m Metric) float64 {
	if m == MetricPerCapita {
		return r.PerCapita
	}
	return r.Total
}

// Nullable converts NaN to nil so values can be encoded as JSON null.
func Nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func zeroIfMissing(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
