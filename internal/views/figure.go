// Package views turns the emissions table and the control-panel selection into
// renderer-neutral chart specifications.
package views

import (
	"fmt"

	"go-co2-emissions-dashboard/internal/emissions"
)

// Kind identifies the chart family of a Figure.
type Kind string

const (
	KindChoropleth  Kind = "choropleth"
	KindGroupedBar  Kind = "grouped_bar"
	KindStackedArea Kind = "stacked_area"
)

// Figure names used in URLs.
const (
	WorldMapName = "world-map"
	FuelBarName  = "fuel-bar"
	FuelAreaName = "fuel-area"
)

// FigureNames lists every figure in dashboard order.
var FigureNames = []string{WorldMapName, FuelBarName, FuelAreaName}

// Theme colours shared by every figure.
const (
	BackgroundColor = "#212529"
	FontColor       = "#FFFFFF"
	ColorScale      = "Viridis"
	MetricTonsTitle = "CO2 Emissions (Metric Tons)"
)

// Layout holds titles, axes and theming of a figure.
type Layout struct {
	Title              string `json:"title"`
	XAxisTitle         string `json:"xaxis_title,omitempty"`
	YAxisTitle         string `json:"yaxis_title,omitempty"`
	YTickFormat        string `json:"yaxis_tickformat,omitempty"`
	LegendTitle        string `json:"legend_title,omitempty"`
	ColorbarTitle      string `json:"colorbar_title,omitempty"`
	ColorbarTickFormat string `json:"colorbar_tickformat,omitempty"`
	ColorScale         string `json:"color_scale,omitempty"`
	BarMode            string `json:"barmode,omitempty"`
	PlotBackground     string `json:"plot_bgcolor"`
	PaperBackground    string `json:"paper_bgcolor"`
	FontColor          string `json:"font_color"`
}

// Trace is one named series of a bar or area figure.
type Trace struct {
	Name       string     `json:"name"`
	X          []string   `json:"x"`
	Y          []*float64 `json:"y"`
	Mode       string     `json:"mode,omitempty"`
	StackGroup string     `json:"stackgroup,omitempty"`
	HoverInfo  string     `json:"hoverinfo,omitempty"`
}

// Location is one country of a choropleth.
type Location struct {
	Country string   `json:"country"`
	Region  string   `json:"region"`
	Value   *float64 `json:"value"`
}

// Figure is a chart specification.
type Figure struct {
	ID           string     `json:"id"`
	Kind         Kind       `json:"kind"`
	Layout       Layout     `json:"layout"`
	Traces       []Trace    `json:"traces,omitempty"`
	Locations    []Location `json:"locations,omitempty"`
	LocationMode string     `json:"locationmode,omitempty"`
	ColorMin     *float64   `json:"color_min,omitempty"`
	ColorMax     *float64   `json:"color_max,omitempty"`
}

// Empty reports whether the figure carries no data.
func (f *Figure) Empty() bool {
	if f == nil {
		return true
	}
	for _, t := range f.Traces {
		if len(t.Y) > 0 {
			return false
		}
	}
	return len(f.Locations) == 0
}

func baseLayout(title string) Layout {
	return Layout{
		Title:           title,
		PlotBackground:  BackgroundColor,
		PaperBackground: BackgroundColor,
		FontColor:       FontColor,
	}
}

func nullables(vals []float64) []*float64 {
	out := make([]*float64, len(vals))
	for i, v := range vals {
		out[i] = emissions.Nullable(v)
	}
	return out
}

func yearLabel(year int) string {
	return fmt.Sprintf("%d", year)
}
