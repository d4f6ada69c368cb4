package views

import (
	"fmt"

	"go-co2-emissions-dashboard/internal/countries"
	"go-co2-emissions-dashboard/internal/emissions"
)

// WorldMap builds the choropleth of one year coloured by metric.
func WorldMap(tbl *emissions.Table, year int, metric emissions.Metric, aliases *countries.Aliases) *Figure {
	title := fmt.Sprintf("Total CO2 Emissions by Country in %d", year)
	colorbar := MetricTonsTitle
	if metric == emissions.MetricPerCapita {
		title = fmt.Sprintf("CO2 Emissions Per Capita by Country in %d", year)
		colorbar = "CO2 Emissions Per Capita"
	}

	layout := baseLayout(title)
	layout.ColorbarTitle = colorbar
	layout.ColorbarTickFormat = ".2f"
	layout.ColorScale = ColorScale

	fig := &Figure{
		ID:           WorldMapName,
		Kind:         KindChoropleth,
		Layout:       layout,
		LocationMode: "country names",
		Locations:    []Location{},
	}

	rows := tbl.ForYear(year)
	for _, r := range rows {
		fig.Locations = append(fig.Locations, Location{
			Country: r.Country,
			Region:  aliases.Resolve(r.Country),
			Value:   emissions.Nullable(r.MetricValue(metric)),
		})
	}
	if lo, hi, ok := emissions.MetricRange(rows, metric); ok {
		fig.ColorMin = &lo
		fig.ColorMax = &hi
	}
	return fig
}

// FuelBar builds the grouped bar chart of coal, oil and gas for the top n
// emitters of one year.
func FuelBar(tbl *emissions.Table, year, n int) *Figure {
	layout := baseLayout(fmt.Sprintf("CO2 Emissions by Fossil Fuels for Top %d Countries in %d", n, year))
	layout.BarMode = "group"
	layout.XAxisTitle = "Emission Type"
	layout.YAxisTitle = MetricTonsTitle
	layout.LegendTitle = "Country"

	fig := &Figure{
		ID:     FuelBarName,
		Kind:   KindGroupedBar,
		Layout: layout,
		Traces: []Trace{},
	}

	categories := make([]string, len(emissions.FossilFuels))
	for i, f := range emissions.FossilFuels {
		categories[i] = string(f)
	}

	rows := tbl.ForYear(year)
	for _, top := range emissions.TopEmitters(rows, n) {
		fig.Traces = append(fig.Traces, Trace{
			Name:      top.Country,
			X:         categories,
			Y:         nullables(emissions.FuelValues(rows, top.Country, emissions.FossilFuels)),
			HoverInfo: "y+name",
		})
	}
	return fig
}

// FuelArea builds the stacked time series of every fuel up to and including year.
func FuelArea(tbl *emissions.Table, year int) *Figure {
	layout := baseLayout(fmt.Sprintf("Total CO2 Emissions Over Time until %d", year))
	layout.XAxisTitle = "Year"
	layout.YAxisTitle = MetricTonsTitle
	layout.YTickFormat = ",.0f"

	fig := &Figure{
		ID:     FuelAreaName,
		Kind:   KindStackedArea,
		Layout: layout,
		Traces: make([]Trace, 0, len(emissions.AllFuels)),
	}

	rows := tbl.UpTo(year)
	for _, fuel := range emissions.AllFuels {
		sums := emissions.SumByYear(rows, fuel)
		tr := Trace{
			Name:       fuel.Title(),
			X:          make([]string, len(sums)),
			Y:          make([]*float64, len(sums)),
			Mode:       "lines",
			StackGroup: "one",
		}
		for i, s := range sums {
			tr.X[i] = yearLabel(s.Year)
			tr.Y[i] = emissions.Nullable(s.Value)
		}
		fig.Traces = append(fig.Traces, tr)
	}
	return fig
}
