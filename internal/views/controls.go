package views

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go-co2-emissions-dashboard/internal/emissions"
)

// ErrInvalidYear is returned for a year that is not a positive integer.
var ErrInvalidYear = errors.New("invalid year")

// Selection is the state of the control panel.
type Selection struct {
	Year   int              `json:"year"`
	Metric emissions.Metric `json:"metric"`
}

// String renders the selection as year/metric.
func (s Selection) String() string {
	return fmt.Sprintf("%d/%s", s.Year, s.Metric)
}

// Option is one entry of a selector.
type Option struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// ControlOptions are the choices offered by the control panel.
type ControlOptions struct {
	Years   []Option  `json:"years"`
	Metrics []Option  `json:"metrics"`
	Default Selection `json:"default"`
}

// DefaultSelection returns the preset selection. If the preset year has no
// data, the latest year of the table is used instead.
func DefaultSelection(tbl *emissions.Table, year int, metric emissions.Metric) Selection {
	if metric == "" {
		metric = emissions.MetricTotal
	}
	sel := Selection{Year: year, Metric: metric}
	if tbl == nil || tbl.HasYear(year) {
		return sel
	}
	if _, last := tbl.YearRange(); last > 0 {
		sel.Year = last
	}
	return sel
}

// Options lists the year and metric choices for tbl.
func Options(tbl *emissions.Table, def Selection) ControlOptions {
	out := ControlOptions{
		Years: []Option{},
		Metrics: []Option{
			{Label: emissions.MetricTotal.Label(), Value: emissions.MetricTotal},
			{Label: emissions.MetricPerCapita.Label(), Value: emissions.MetricPerCapita},
		},
		Default: def,
	}
	if tbl == nil {
		return out
	}
	for _, y := range tbl.Years() {
		out.Years = append(out.Years, Option{Label: strconv.Itoa(y), Value: y})
	}
	return out
}

// ParseSelection reads a selection from raw year and metric strings. Empty
// values fall back to def.
func ParseSelection(yearRaw, metricRaw string, def Selection) (Selection, error) {
	sel := def
	if yearRaw = strings.TrimSpace(yearRaw); yearRaw != "" {
		y, err := strconv.Atoi(yearRaw)
		if err != nil || y <= 0 {
			return Selection{}, fmt.Errorf("%w: %q", ErrInvalidYear, yearRaw)
		}
		sel.Year = y
	}
	if strings.TrimSpace(metricRaw) != "" {
		m, err := emissions.ParseMetric(metricRaw)
		if err != nil {
			return Selection{}, err
		}
		sel.Metric = m
	}
	return sel.Validate()
}

// Validate checks the year and normalizes the metric.
func (s Selection) Validate() (Selection, error) {
	if s.Year <= 0 {
		return Selection{}, fmt.Errorf("%w: %d", ErrInvalidYear, s.Year)
	}
	m, err := emissions.ParseMetric(string(s.Metric))
	if err != nil {
		return Selection{}, err
	}
	s.Metric = m
	return s, nil
}
