package render

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"go-co2-emissions-dashboard/internal/views"
)

// PNGSize is the default static chart size in pixels.
var PNGSize = struct{ Width, Height int }{Width: 1024, Height: 560}

// fuelPalette colours the coal, oil, gas, cement and flaring series.
var fuelPalette = []string{"440154", "3e4989", "26828e", "35b779", "fde725"}

// RenderPNG draws a bar or area figure as a PNG image. The choropleth has no
// static rendering.
func RenderPNG(w io.Writer, fig *views.Figure, width, height int) error {
	if fig == nil {
		return fmt.Errorf("%w: nil figure", ErrUnsupported)
	}
	if width <= 0 || height <= 0 {
		width, height = PNGSize.Width, PNGSize.Height
	}
	switch fig.Kind {
	case views.KindGroupedBar:
		return barPNG(w, fig, width, height)
	case views.KindStackedArea:
		return areaPNG(w, fig, width, height)
	default:
		return fmt.Errorf("%w: %s as png", ErrUnsupported, fig.Kind)
	}
}

func pngStyles(fig *views.Figure) (title, background, axis chart.Style) {
	bg := drawing.ColorFromHex(strings.TrimPrefix(fig.Layout.PaperBackground, "#"))
	fg := drawing.ColorFromHex(strings.TrimPrefix(fig.Layout.FontColor, "#"))
	title = chart.Style{FontSize: 14, FontColor: fg}
	background = chart.Style{
		FillColor: bg,
		Padding:   chart.Box{Top: 60, Left: 20, Right: 20, Bottom: 20},
	}
	axis = chart.Style{FontColor: fg, StrokeColor: fg}
	return title, background, axis
}

// barPNG stacks each country's fuels into one bar.
func barPNG(w io.Writer, fig *views.Figure, width, height int) error {
	if len(fig.Traces) == 0 {
		return ErrEmpty
	}

	bars := make([]chart.StackedBar, 0, len(fig.Traces))
	for _, tr := range fig.Traces {
		sb := chart.StackedBar{Name: tr.Name, Values: make([]chart.Value, 0, len(tr.Y))}
		for i, v := range tr.Y {
			val := 0.0
			if v != nil {
				val = *v
			}
			label := ""
			if i < len(tr.X) {
				label = tr.X[i]
			}
			sb.Values = append(sb.Values, chart.Value{
				Label: label,
				Value: val,
				Style: chart.Style{
					FillColor:   drawing.ColorFromHex(fuelPalette[i%len(fuelPalette)]),
					StrokeColor: drawing.ColorFromHex(fuelPalette[i%len(fuelPalette)]),
				},
			})
		}
		bars = append(bars, sb)
	}
	return stackedBarsPNG(w, fig, bars, width, height)
}

func stackedBarsPNG(w io.Writer, fig *views.Figure, bars []chart.StackedBar, width, height int) error {
	titleStyle, bg, axis := pngStyles(fig)
	graph := chart.StackedBarChart{
		Title:      fig.Layout.Title,
		TitleStyle: titleStyle,
		Width:      width,
		Height:     height,
		Background: bg,
		Canvas:     chart.Style{FillColor: bg.FillColor},
		XAxis:      axis,
		YAxis:      axis,
		BarSpacing: 16,
		Bars:       bars,
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render bar png: %w", err)
	}
	return nil
}

// areaPNG draws cumulative fuel totals as filled series, top layer first.
// A single year has no area to fill and is drawn as one stacked bar.
func areaPNG(w io.Writer, fig *views.Figure, width, height int) error {
	if len(fig.Traces) == 0 || len(fig.Traces[0].X) == 0 {
		return ErrEmpty
	}
	if len(fig.Traces[0].X) == 1 {
		return singleYearPNG(w, fig, width, height)
	}
	titleStyle, bg, axis := pngStyles(fig)

	xs := make([]float64, len(fig.Traces[0].X))
	for i, label := range fig.Traces[0].X {
		y, err := strconv.Atoi(label)
		if err != nil {
			return fmt.Errorf("area x value %q: %w", label, err)
		}
		xs[i] = float64(y)
	}

	cumulative := make([]float64, len(xs))
	layers := make([]chart.ContinuousSeries, 0, len(fig.Traces))
	for li, tr := range fig.Traces {
		ys := make([]float64, len(xs))
		for i := range xs {
			if i < len(tr.Y) && tr.Y[i] != nil {
				cumulative[i] += *tr.Y[i]
			}
			ys[i] = cumulative[i]
		}
		color := drawing.ColorFromHex(fuelPalette[li%len(fuelPalette)])
		layers = append(layers, chart.ContinuousSeries{
			Name:    tr.Name,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: color,
				FillColor:   color.WithAlpha(220),
			},
		})
	}

	series := make([]chart.Series, 0, len(layers))
	for i := len(layers) - 1; i >= 0; i-- {
		series = append(series, layers[i])
	}

	graph := chart.Chart{
		Title:      fig.Layout.Title,
		TitleStyle: titleStyle,
		Width:      width,
		Height:     height,
		Background: bg,
		Canvas:     chart.Style{FillColor: bg.FillColor},
		XAxis: chart.XAxis{
			Name:           fig.Layout.XAxisTitle,
			Style:          axis,
			ValueFormatter: yearFormatter,
		},
		YAxis: chart.YAxis{
			Name:           fig.Layout.YAxisTitle,
			Style:          axis,
			ValueFormatter: thousandsFormatter,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render area png: %w", err)
	}
	return nil
}

func singleYearPNG(w io.Writer, fig *views.Figure, width, height int) error {
	sb := chart.StackedBar{Name: fig.Traces[0].X[0], Values: make([]chart.Value, 0, len(fig.Traces))}
	for i, tr := range fig.Traces {
		val := 0.0
		if len(tr.Y) > 0 && tr.Y[0] != nil {
			val = *tr.Y[0]
		}
		color := drawing.ColorFromHex(fuelPalette[i%len(fuelPalette)])
		sb.Values = append(sb.Values, chart.Value{
			Label: tr.Name,
			Value: val,
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
	}
	return stackedBarsPNG(w, fig, []chart.StackedBar{sb}, width, height)
}

func yearFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.Itoa(int(f))
	}
	return fmt.Sprint(v)
}

func thousandsFormatter(v interface{}) string {
	f, ok := v.(float64)
	if !ok {
		return fmt.Sprint(v)
	}
	return FormatThousands(f)
}

// FormatThousands renders a number rounded to an integer with comma grouping.
func FormatThousands(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "n/a"
	}
	return humanize.Comma(int64(math.Round(f)))
}
