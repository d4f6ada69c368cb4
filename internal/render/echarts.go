// Package render draws view figures with go-echarts (interactive HTML) and
// go-chart (static PNG).
package render

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"go-co2-emissions-dashboard/internal/views"
)

var (
	// ErrUnsupported is returned when a figure kind cannot be drawn by a renderer.
	ErrUnsupported = errors.New("unsupported figure")
	// ErrEmpty is returned when a figure has nothing to plot.
	ErrEmpty = errors.New("figure has no plottable data")
)

// Viridis is the colour scale of the choropleth, dark to light.
var Viridis = []string{
	"#440154", "#482878", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

// Size is the pixel size of a rendered chart.
type Size struct {
	Width  string
	Height string
}

// DefaultSize fits the dashboard panels.
var DefaultSize = Size{Width: "900px", Height: "500px"}

// Chart is a go-echarts chart that can be rendered alone or added to a page.
type Chart interface {
	components.Charter
	Render(w io.Writer) error
}

// ECharts maps a figure to a go-echarts chart.
func ECharts(fig *views.Figure, size Size) (Chart, error) {
	if fig == nil {
		return nil, fmt.Errorf("%w: nil figure", ErrUnsupported)
	}
	if size.Width == "" || size.Height == "" {
		size = DefaultSize
	}
	switch fig.Kind {
	case views.KindChoropleth:
		return worldMap(fig, size), nil
	case views.KindGroupedBar:
		return groupedBar(fig, size), nil
	case views.KindStackedArea:
		return stackedArea(fig, size), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, fig.Kind)
	}
}

// RenderHTML writes a standalone HTML page holding one chart.
func RenderHTML(w io.Writer, fig *views.Figure, size Size) error {
	c, err := ECharts(fig, size)
	if err != nil {
		return err
	}
	return c.Render(w)
}

// NewPage collects several figures on one go-echarts page.
func NewPage(title string, size Size, figs ...*views.Figure) (*components.Page, error) {
	page := components.NewPage()
	page.PageTitle = title
	page.SetLayout(components.PageFlexLayout)
	for _, fig := range figs {
		c, err := ECharts(fig, size)
		if err != nil {
			return nil, err
		}
		page.AddCharts(c)
	}
	return page, nil
}

func globalOpts(fig *views.Figure, size Size) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:       fig.Layout.Title,
			ChartID:         fig.ID,
			Width:           size.Width,
			Height:          size.Height,
			BackgroundColor: fig.Layout.PaperBackground,
			Theme:           types.ThemeChalk,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      fig.Layout.Title,
			TitleStyle: &opts.TextStyle{Color: fig.Layout.FontColor},
		}),
	}
}

func worldMap(fig *views.Figure, size Size) *charts.Map {
	m := charts.NewMap()
	m.RegisterMapType("world")

	vm := opts.VisualMap{
		Calculable: opts.Bool(true),
		Text:       []string{fig.Layout.ColorbarTitle},
		InRange:    &opts.VisualMapInRange{Color: Viridis},
	}
	if fig.ColorMin != nil && fig.ColorMax != nil {
		vm.Min = float32(*fig.ColorMin)
		vm.Max = float32(*fig.ColorMax)
	}

	m.SetGlobalOptions(append(globalOpts(fig, size),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithVisualMapOpts(vm),
	)...)

	data := make([]opts.MapData, 0, len(fig.Locations))
	for _, loc := range fig.Locations {
		item := opts.MapData{Name: loc.Region}
		if loc.Value != nil {
			item.Value = round2(*loc.Value)
		}
		data = append(data, item)
	}
	m.AddSeries(fig.Layout.ColorbarTitle, data)
	return m
}

func groupedBar(fig *views.Figure, size Size) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(append(globalOpts(fig, size),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithLegendOpts(opts.Legend{
			Show:      opts.Bool(true),
			Top:       "30",
			TextStyle: &opts.TextStyle{Color: fig.Layout.FontColor},
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: fig.Layout.XAxisTitle}),
		charts.WithYAxisOpts(opts.YAxis{Name: fig.Layout.YAxisTitle}),
	)...)

	var categories []string
	if len(fig.Traces) > 0 {
		categories = fig.Traces[0].X
	}
	bar.SetXAxis(categories)
	for _, tr := range fig.Traces {
		data := make([]opts.BarData, len(tr.Y))
		for i, v := range tr.Y {
			if v != nil {
				data[i] = opts.BarData{Value: *v}
			}
		}
		bar.AddSeries(tr.Name, data)
	}
	return bar
}

func stackedArea(fig *views.Figure, size Size) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(append(globalOpts(fig, size),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{
			Show:      opts.Bool(true),
			Top:       "30",
			TextStyle: &opts.TextStyle{Color: fig.Layout.FontColor},
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: fig.Layout.XAxisTitle}),
		charts.WithYAxisOpts(opts.YAxis{Name: fig.Layout.YAxisTitle}),
	)...)

	var years []string
	if len(fig.Traces) > 0 {
		years = fig.Traces[0].X
	}
	line.SetXAxis(years)
	for _, tr := range fig.Traces {
		data := make([]opts.LineData, len(tr.Y))
		for i, v := range tr.Y {
			if v != nil {
				data[i] = opts.LineData{Value: *v}
			}
		}
		line.AddSeries(tr.Name, data,
			charts.WithLineChartOpts(opts.LineChart{Stack: tr.StackGroup, ShowSymbol: opts.Bool(false)}),
			charts.WithAreaStyleOpts(opts.AreaStyle{}),
		)
	}
	return line
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
